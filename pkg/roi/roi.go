// Package roi derives region-of-interest tables in micrometers from the
// placement of a well's fields.
package roi

import (
	"hcswell/pkg/assembly"
)

// Table names
const (
	WellTable = "well_ROI_table"
	FOVTable  = "FOV_ROI_table"
)

// WellROI is the name of the single row of the well table
const WellROI = "well_1"

// Columns are the table columns in their fixed order
var Columns = []string{
	"x_micrometer",
	"y_micrometer",
	"z_micrometer",
	"len_x_micrometer",
	"len_y_micrometer",
	"len_z_micrometer",
}

// Row is one named region
type Row struct {
	Name string

	XMicrometer    float64
	YMicrometer    float64
	ZMicrometer    float64
	LenXMicrometer float64
	LenYMicrometer float64
	LenZMicrometer float64
}

// Values returns the row's values in column order
func (r Row) Values() []float64 {
	return []float64{
		r.XMicrometer,
		r.YMicrometer,
		r.ZMicrometer,
		r.LenXMicrometer,
		r.LenYMicrometer,
		r.LenZMicrometer,
	}
}

// Table is a table of regions indexed by row name
type Table struct {
	Name string
	Rows []Row
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// Row returns the row with the given name
func (t *Table) Row(name string) (Row, bool) {
	for _, r := range t.Rows {
		if r.Name == name {
			return r, true
		}
	}
	return Row{}, false
}

// Tables are the two ROI tables of a well
type Tables struct {
	Well *Table
	FOV  *Table
}

// ByName returns the tables keyed by their names
func (t *Tables) ByName() map[string]*Table {
	return map[string]*Table{
		WellTable: t.Well,
		FOVTable:  t.FOV,
	}
}

// PlaceholderLenZ is the z-extent written for 2D images
const PlaceholderLenZ = 1.0

// Build derives both tables from a placement. lenZ is the z-extent of the
// well in micrometers, or PlaceholderLenZ for 2D.
//
// FOV offsets are written in array-axis order: the field's row offset goes
// into x_micrometer and its column offset into y_micrometer. Downstream
// tables written from this acquisition type expect that order.
func Build(p *assembly.Placement, lenZ float64) *Tables {
	cal := p.Layout.Calibration

	well := &Table{Name: WellTable, Rows: []Row{{
		Name:           WellROI,
		LenXMicrometer: float64(p.Width) * cal.X,
		LenYMicrometer: float64(p.Height) * cal.Y,
		LenZMicrometer: lenZ,
	}}}

	fov := &Table{Name: FOVTable, Rows: make([]Row, len(p.Tiles))}
	for i, t := range p.Tiles {
		fov.Rows[i] = Row{
			Name:           t.Label,
			XMicrometer:    t.Y,
			YMicrometer:    t.X,
			LenXMicrometer: float64(t.Width) * cal.X,
			LenYMicrometer: float64(t.Height) * cal.Y,
			LenZMicrometer: lenZ,
		}
	}

	return &Tables{Well: well, FOV: fov}
}
