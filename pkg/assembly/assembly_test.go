package assembly

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"hcswell/internal/models"
	"hcswell/pkg/layout"
)

const pixelSize = 1.3668

// regularWell builds n fields on a perfectly regular stage grid of the given columns
func regularWell(n, cols, w, h int) ([]models.ImageRecord, map[string]layout.Extent) {
	var records []models.ImageRecord
	extents := make(map[string]layout.Extent)
	for i := 0; i < n; i++ {
		label := fmt.Sprintf("Site %d", i+1)
		records = append(records, models.ImageRecord{
			Well:    "E07",
			Field:   label,
			Channel: "w1",
			RawMetadata: models.RawMetadata{
				"spatial-calibration-x": pixelSize,
				"spatial-calibration-y": pixelSize,
				"stage-position-x":      1000 + float64((i%cols)*w)*pixelSize,
				"stage-position-y":      -500 + float64((i/cols)*h)*pixelSize,
			},
		})
		extents[label] = layout.Extent{Width: w, Height: h}
	}
	return records, extents
}

func place(t *testing.T, s Strategy, records []models.ImageRecord, extents map[string]layout.Extent) *Placement {
	t.Helper()
	l, err := layout.Resolve(s.Mode, records, extents)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	p, err := s.Place(l)
	if err != nil {
		t.Fatalf("Place failed: %v", err)
	}
	return p
}

func constPlanes(p *Placement) map[string]*models.Plane {
	planes := make(map[string]*models.Plane)
	for i, tile := range p.Tiles {
		plane := models.NewPlane(tile.Width, tile.Height)
		for j := range plane.Pix {
			plane.Pix[j] = uint16(i + 1)
		}
		planes[tile.Label] = plane
	}
	return planes
}

func TestLookup(t *testing.T) {
	for _, name := range []string{"grid", "stage-position"} {
		s, err := Lookup(name)
		if err != nil || s.Name != name {
			t.Errorf("Lookup(%q) = %v, %v", name, s.Name, err)
		}
	}
	if _, err := Lookup("overlap-blend"); !errors.Is(err, models.ErrUnknownMethod) {
		t.Errorf("Expected ErrUnknownMethod, got %v", err)
	}
}

func TestGridAndStageAgreeOnRegularPlacement(t *testing.T) {
	tests := []struct{ n, cols int }{
		{1, 1},
		{2, 2},
		{4, 2},
		{6, 3},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d fields", tt.n), func(t *testing.T) {
			records, extents := regularWell(tt.n, tt.cols, 512, 512)
			grid := place(t, Grid, records, extents)
			stage := place(t, StagePosition, records, extents)
			if grid.Width != stage.Width || grid.Height != stage.Height {
				t.Errorf("Grid canvas %dx%d differs from stage canvas %dx%d",
					grid.Width, grid.Height, stage.Width, stage.Height)
			}
		})
	}
}

func TestGridPlacement(t *testing.T) {
	records, extents := regularWell(2, 2, 512, 512)
	p := place(t, Grid, records, extents)

	if p.Width != 1024 || p.Height != 512 {
		t.Fatalf("Expected a 1024x512 canvas, got %dx%d", p.Width, p.Height)
	}
	tile, ok := p.Tile("Site 2")
	if !ok {
		t.Fatal("Missing Site 2")
	}
	if tile.OffsetX != 512 || tile.OffsetY != 0 {
		t.Errorf("Unexpected Site 2 offset %d,%d", tile.OffsetX, tile.OffsetY)
	}
	if tile.X != 512*pixelSize || tile.Y != 0 {
		t.Errorf("Unexpected Site 2 position %v,%v", tile.X, tile.Y)
	}

	canvas, err := p.Assemble(constPlanes(p))
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if canvas.At(511, 0) != 1 || canvas.At(512, 511) != 2 {
		t.Errorf("Unexpected boundary pixels %d, %d", canvas.At(511, 0), canvas.At(512, 511))
	}
}

func TestStageOverlapLaterFieldWins(t *testing.T) {
	records := []models.ImageRecord{
		{Well: "A01", Field: "Site 2", RawMetadata: models.RawMetadata{
			"spatial-calibration-x": 1.0, "stage-position-x": 5.0, "stage-position-y": 0.0}},
		{Well: "A01", Field: "Site 1", RawMetadata: models.RawMetadata{
			"spatial-calibration-x": 1.0, "stage-position-x": 0.0, "stage-position-y": 2.0}},
	}
	extents := map[string]layout.Extent{
		"Site 1": {Width: 10, Height: 10},
		"Site 2": {Width: 10, Height: 10},
	}
	p := place(t, StagePosition, records, extents)
	if p.Width != 15 || p.Height != 12 {
		t.Fatalf("Expected a 15x12 canvas, got %dx%d", p.Width, p.Height)
	}

	canvas, err := p.Assemble(constPlanes(p))
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if got := canvas.At(6, 5); got != 2 {
		t.Errorf("Expected Site 2 to overwrite the overlap, got %d", got)
	}
	if got := canvas.At(0, 11); got != 1 {
		t.Errorf("Expected Site 1 below the overlap, got %d", got)
	}
	if got := canvas.At(0, 0); got != 0 {
		t.Errorf("Expected an uncovered pixel to stay 0, got %d", got)
	}
}

func TestAssembleDeterministic(t *testing.T) {
	records, extents := regularWell(4, 2, 16, 8)
	for _, s := range []Strategy{Grid, StagePosition} {
		p := place(t, s, records, extents)
		planes := constPlanes(p)
		a, err := p.Assemble(planes)
		if err != nil {
			t.Fatalf("Assemble failed: %v", err)
		}
		b, _ := p.Assemble(planes)
		if !reflect.DeepEqual(a, b) {
			t.Errorf("%s: expected identical canvases", s.Name)
		}
	}
}

func TestAssembleErrors(t *testing.T) {
	records, extents := regularWell(2, 2, 8, 8)
	p := place(t, Grid, records, extents)

	_, err := p.Assemble(map[string]*models.Plane{"Site 1": models.NewPlane(4, 8)})
	if !errors.Is(err, models.ErrShapeMismatch) {
		t.Errorf("Expected ErrShapeMismatch, got %v", err)
	}

	l, _ := layout.Resolve(layout.Grid, records, extents)
	if _, err := StagePosition.Place(l); err == nil {
		t.Error("Expected stage placement to reject a grid layout")
	}
	if _, err := (Strategy{Name: "custom"}).Place(l); !errors.Is(err, models.ErrUnknownMethod) {
		t.Errorf("Expected ErrUnknownMethod, got %v", err)
	}
}
