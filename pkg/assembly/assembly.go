// Package assembly stitches the fields of a well into one canvas.
//
// A Strategy turns a resolved layout into a Placement once per well. The
// same Placement is then used to assemble every channel and z-plane, so all
// canvases of a well share one shape and can be stacked.
package assembly

import (
	"fmt"
	"math"

	"hcswell/internal/models"
	"hcswell/pkg/layout"
)

// Strategy is a named way of placing fields on the canvas
type Strategy struct {
	// Name is the configuration name of the strategy
	Name string

	// Mode is the layout the strategy places from
	Mode layout.Mode

	place func(l *layout.Layout) *Placement
}

var (
	// Grid tiles fields by their nominal grid cell, ignoring stage coordinates
	Grid = Strategy{Name: "grid", Mode: layout.Grid, place: placeGrid}

	// StagePosition draws each field at its recorded stage position
	StagePosition = Strategy{Name: "stage-position", Mode: layout.Stage, place: placeStage}
)

var strategies = map[string]Strategy{
	Grid.Name:          Grid,
	StagePosition.Name: StagePosition,
}

// Lookup returns the strategy registered under name
func Lookup(name string) (Strategy, error) {
	s, ok := strategies[name]
	if !ok {
		return Strategy{}, fmt.Errorf("%w: assembly strategy %q", models.ErrUnknownMethod, name)
	}
	return s, nil
}

// Tile is one field's position on the canvas
type Tile struct {
	Label string

	// OffsetX and OffsetY are the top-left corner in canvas pixels
	OffsetX int
	OffsetY int

	// X and Y are the top-left corner in micrometers
	X float64
	Y float64

	Width  int
	Height int
}

// Placement is the canvas geometry shared by all channels of a well
type Placement struct {
	Layout *layout.Layout

	// Width and Height are the canvas size in pixels
	Width  int
	Height int

	// Tiles are in drawing order
	Tiles []Tile
}

// Place computes the canvas geometry for a layout
func (s Strategy) Place(l *layout.Layout) (*Placement, error) {
	if s.place == nil {
		return nil, fmt.Errorf("%w: assembly strategy %q", models.ErrUnknownMethod, s.Name)
	}
	if l.Mode != s.Mode {
		return nil, fmt.Errorf("assembly strategy %q needs a %v layout, got %v", s.Name, s.Mode, l.Mode)
	}
	if len(l.Fields) == 0 {
		return nil, fmt.Errorf("%w: layout has no fields", models.ErrEmptyInput)
	}
	return s.place(l), nil
}

func placeGrid(l *layout.Layout) *Placement {
	p := &Placement{
		Layout: l,
		Width:  l.Cols * l.FieldWidth,
		Height: l.Rows * l.FieldHeight,
		Tiles:  make([]Tile, len(l.Fields)),
	}
	for i, f := range l.Fields {
		ox, oy := f.Col*l.FieldWidth, f.Row*l.FieldHeight
		p.Tiles[i] = Tile{
			Label:   f.Label,
			OffsetX: ox,
			OffsetY: oy,
			X:       float64(ox) * l.Calibration.X,
			Y:       float64(oy) * l.Calibration.Y,
			Width:   f.Width,
			Height:  f.Height,
		}
	}
	return p
}

func placeStage(l *layout.Layout) *Placement {
	p := &Placement{
		Layout: l,
		Tiles:  make([]Tile, len(l.Fields)),
	}
	for i, f := range l.Fields {
		t := Tile{
			Label:   f.Label,
			OffsetX: int(math.Round(f.X / l.Calibration.X)),
			OffsetY: int(math.Round(f.Y / l.Calibration.Y)),
			X:       f.X,
			Y:       f.Y,
			Width:   f.Width,
			Height:  f.Height,
		}
		p.Width = max(p.Width, t.OffsetX+t.Width)
		p.Height = max(p.Height, t.OffsetY+t.Height)
		p.Tiles[i] = t
	}
	return p
}

// Assemble draws one plane per field onto a new canvas. Fields are drawn in
// label order and later fields overwrite earlier ones where they overlap.
// Fields without a plane are left at zero.
func (p *Placement) Assemble(planes map[string]*models.Plane) (*models.Plane, error) {
	canvas := models.NewPlane(p.Width, p.Height)
	for _, t := range p.Tiles {
		plane, ok := planes[t.Label]
		if !ok || plane == nil {
			continue
		}
		if plane.Width != t.Width || plane.Height != t.Height {
			return nil, fmt.Errorf("%w: field %q is %dx%d, layout expects %dx%d", models.ErrShapeMismatch,
				t.Label, plane.Width, plane.Height, t.Width, t.Height)
		}
		for y := 0; y < t.Height; y++ {
			dst := (t.OffsetY+y)*canvas.Width + t.OffsetX
			copy(canvas.Pix[dst:dst+t.Width], plane.Pix[y*t.Width:(y+1)*t.Width])
		}
	}
	return canvas, nil
}

// Tile returns the placement of the field with the given label
func (p *Placement) Tile(label string) (Tile, bool) {
	for _, t := range p.Tiles {
		if t.Label == label {
			return t, true
		}
	}
	return Tile{}, false
}
