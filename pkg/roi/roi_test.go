package roi

import (
	"reflect"
	"testing"

	"hcswell/internal/models"
	"hcswell/pkg/assembly"
	"hcswell/pkg/layout"
)

func twoSitePlacement(t *testing.T) *assembly.Placement {
	t.Helper()
	var records []models.ImageRecord
	extents := make(map[string]layout.Extent)
	for _, label := range []string{"Site 1", "Site 2"} {
		records = append(records, models.ImageRecord{
			Well:  "E07",
			Field: label,
			RawMetadata: models.RawMetadata{
				"spatial-calibration-x":     1.3668,
				"spatial-calibration-y":     1.3668,
				"spatial-calibration-units": "um",
			},
		})
		extents[label] = layout.Extent{Width: 512, Height: 512}
	}

	l, err := layout.Resolve(layout.Grid, records, extents)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	p, err := assembly.Grid.Place(l)
	if err != nil {
		t.Fatalf("Place failed: %v", err)
	}
	return p
}

func TestBuild2D(t *testing.T) {
	tables := Build(twoSitePlacement(t), PlaceholderLenZ)

	if tables.Well.Len() != 1 {
		t.Fatalf("Expected one well row, got %d", tables.Well.Len())
	}
	well, ok := tables.Well.Row(WellROI)
	if !ok {
		t.Fatalf("Missing %s row", WellROI)
	}
	if want := []float64{0.0, 0.0, 0.0, 1399.6032, 699.8016, 1.0}; !reflect.DeepEqual(well.Values(), want) {
		t.Errorf("Expected well row %v, got %v", want, well.Values())
	}

	if tables.FOV.Len() != 2 {
		t.Fatalf("Expected two FOV rows, got %d", tables.FOV.Len())
	}
	site2, ok := tables.FOV.Row("Site 2")
	if !ok {
		t.Fatal("Missing Site 2 row")
	}
	if want := []float64{0.0, 699.8016, 0.0, 699.8016, 699.8016, 1.0}; !reflect.DeepEqual(site2.Values(), want) {
		t.Errorf("Expected Site 2 row %v, got %v", want, site2.Values())
	}
	site1, _ := tables.FOV.Row("Site 1")
	if site1.XMicrometer != 0 || site1.YMicrometer != 0 {
		t.Errorf("Expected Site 1 at the origin, got %v", site1.Values())
	}
}

func TestBuild3DLenZ(t *testing.T) {
	tables := Build(twoSitePlacement(t), 45.0)

	for name, table := range tables.ByName() {
		if table.Name != name {
			t.Errorf("Table keyed %q is named %q", name, table.Name)
		}
		for _, r := range table.Rows {
			if r.LenZMicrometer != 45.0 || r.ZMicrometer != 0 {
				t.Errorf("%s/%s: unexpected z columns %v", name, r.Name, r.Values())
			}
		}
	}
}

func TestColumns(t *testing.T) {
	want := []string{
		"x_micrometer", "y_micrometer", "z_micrometer",
		"len_x_micrometer", "len_y_micrometer", "len_z_micrometer",
	}
	if !reflect.DeepEqual(Columns, want) {
		t.Errorf("Unexpected columns %v", Columns)
	}
	if _, ok := (&Table{}).Row("missing"); ok {
		t.Error("Expected no row in an empty table")
	}
}
