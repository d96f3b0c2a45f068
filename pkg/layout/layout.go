// Package layout computes where the fields of a well sit relative to each
// other, either on a nominal grid or from recorded stage coordinates.
package layout

import (
	"fmt"
	"math"
	"sort"

	"hcswell/internal/models"
	"hcswell/pkg/metadata"
)

// Mode selects how field positions are derived
type Mode int

const (
	// Grid tiles fields row-major in site-label order
	Grid Mode = iota

	// Stage places fields at their recorded stage positions
	Stage
)

func (m Mode) String() string {
	switch m {
	case Grid:
		return "grid"
	case Stage:
		return "stage"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Extent is the pixel size of a field
type Extent struct {
	Width  int
	Height int
}

// Field is the resolved position of one field of view
type Field struct {
	// Label is the site label, e.g. "Site 2"
	Label string

	// Row and Col are the grid cell. Only set in Grid mode.
	Row int
	Col int

	// X and Y are the min-subtracted stage position in micrometers. Only
	// set in Stage mode.
	X float64
	Y float64

	Width  int
	Height int
}

// Layout is the arrangement of all fields of one well
type Layout struct {
	Mode Mode

	// Fields are sorted by natural label order
	Fields []Field

	// Rows and Cols are the grid dimensions in Grid mode
	Rows int
	Cols int

	// FieldWidth and FieldHeight are the extent of the first field
	FieldWidth  int
	FieldHeight int

	Calibration metadata.Calibration

	// ZIndices are the distinct z-indices present, ascending. Empty for 2D.
	ZIndices []int

	index map[string]int
}

// Field returns the resolved field with the given label
func (l *Layout) Field(label string) (Field, bool) {
	i, ok := l.index[label]
	if !ok {
		return Field{}, false
	}
	return l.Fields[i], true
}

// Labels returns the field labels in drawing order
func (l *Layout) Labels() []string {
	labels := make([]string, len(l.Fields))
	for i, f := range l.Fields {
		labels[i] = f.Label
	}
	return labels
}

// Is3D reports whether the layout was resolved from z-stack records
func (l *Layout) Is3D() bool {
	return len(l.ZIndices) > 0
}

// FieldLabel returns the field label of a record, falling back to the site
// part of its stage label.
func FieldLabel(r models.ImageRecord) string {
	if r.Field != "" {
		return r.Field
	}
	return metadata.StageLabel(r.RawMetadata)
}

// Resolve computes the layout of one well. records must belong to a single
// well and either all be 2D or all be z-stack planes. extents gives the
// pixel size of each field, keyed by field label.
func Resolve(mode Mode, records []models.ImageRecord, extents map[string]Extent) (*Layout, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no records to lay out", models.ErrEmptyInput)
	}

	// Representative record per field is the first one encountered
	labels, reps, err := partition(records)
	if err != nil {
		return nil, err
	}

	cal, err := metadata.SpatialCalibration(records[0].RawMetadata)
	if err != nil {
		return nil, fmt.Errorf("well %s: %w", records[0].Well, err)
	}

	l := &Layout{
		Mode:        mode,
		Fields:      make([]Field, len(labels)),
		Calibration: cal,
		ZIndices:    zIndices(records),
		index:       make(map[string]int, len(labels)),
	}

	for i, label := range labels {
		ext, ok := extents[label]
		if !ok || ext.Width <= 0 || ext.Height <= 0 {
			return nil, fmt.Errorf("%w: no pixel extent for field %q", models.ErrShapeMismatch, label)
		}
		l.Fields[i] = Field{Label: label, Width: ext.Width, Height: ext.Height}
		l.index[label] = i
	}
	l.FieldWidth = l.Fields[0].Width
	l.FieldHeight = l.Fields[0].Height

	switch mode {
	case Grid:
		err = l.resolveGrid()
	case Stage:
		err = l.resolveStage(reps)
	default:
		err = fmt.Errorf("%w: layout mode %v", models.ErrUnknownMethod, mode)
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

// partition returns the sorted distinct field labels and the first record of each
func partition(records []models.ImageRecord) ([]string, map[string]models.ImageRecord, error) {
	reps := make(map[string]models.ImageRecord)
	var labels []string
	well := records[0].Well
	is3D := records[0].Is3D()

	for _, r := range records {
		if r.Well != well {
			return nil, nil, fmt.Errorf("records span wells %s and %s", well, r.Well)
		}
		if r.Is3D() != is3D {
			return nil, nil, fmt.Errorf("well %s mixes 2D and z-stack records", well)
		}
		label := FieldLabel(r)
		if _, ok := reps[label]; !ok {
			reps[label] = r
			labels = append(labels, label)
		}
	}

	sort.SliceStable(labels, func(i, j int) bool {
		return models.NaturalLess(labels[i], labels[j])
	})
	return labels, reps, nil
}

func zIndices(records []models.ImageRecord) []int {
	seen := make(map[int]bool)
	var zs []int
	for _, r := range records {
		if r.Z == nil || seen[*r.Z] {
			continue
		}
		seen[*r.Z] = true
		zs = append(zs, *r.Z)
	}
	sort.Ints(zs)
	return zs
}

// resolveGrid assigns row-major cells on a square-ish grid, wider than tall
func (l *Layout) resolveGrid() error {
	n := len(l.Fields)
	l.Cols = int(math.Ceil(math.Sqrt(float64(n))))
	l.Rows = (n + l.Cols - 1) / l.Cols

	for i := range l.Fields {
		f := &l.Fields[i]
		if f.Width != l.FieldWidth || f.Height != l.FieldHeight {
			return fmt.Errorf("%w: field %q is %dx%d, expected %dx%d", models.ErrShapeMismatch,
				f.Label, f.Width, f.Height, l.FieldWidth, l.FieldHeight)
		}
		f.Row = i / l.Cols
		f.Col = i % l.Cols
	}
	return nil
}

// resolveStage reads one stage position per field and shifts them so the
// top-left field sits at the origin.
func (l *Layout) resolveStage(reps map[string]models.ImageRecord) error {
	minX, minY := math.Inf(1), math.Inf(1)
	for i := range l.Fields {
		f := &l.Fields[i]
		x, y, err := metadata.StagePosition(reps[f.Label].RawMetadata)
		if err != nil {
			return fmt.Errorf("field %q: %w", f.Label, err)
		}
		f.X, f.Y = x, y
		minX = math.Min(minX, x)
		minY = math.Min(minY, y)
	}
	for i := range l.Fields {
		l.Fields[i].X -= minX
		l.Fields[i].Y -= minY
	}
	return nil
}
