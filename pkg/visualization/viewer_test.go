package visualization

import (
	"encoding/csv"
	"image"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/tiff"
	"gopkg.in/yaml.v3"

	"hcswell/internal/models"
	"hcswell/pkg/histogram"
	"hcswell/pkg/metadata"
	"hcswell/pkg/roi"
	"hcswell/pkg/well"
)

// testStack fills a (2, 3, 4, 5) stack with value c*1000 + z*100 + y*10 + x
func testStack() *models.Stack {
	s := models.NewStack(2, 3, 4, 5, true)
	for c := 0; c < s.Channels; c++ {
		for z := 0; z < s.Depth; z++ {
			p := s.Plane(c, z)
			for y := 0; y < s.Height; y++ {
				for x := 0; x < s.Width; x++ {
					p.Set(x, y, uint16(c*1000+z*100+y*10+x))
				}
			}
		}
	}
	return s
}

// TestExtractSlice verifies that slices are correctly extracted along each axis
func TestExtractSlice(t *testing.T) {
	v := NewViewer(testStack(), []string{"w1", "w2"})

	tests := []struct {
		axis          string
		pos           int
		width, height int
		x, y          int
		want          uint16
	}{
		{"z", 2, 5, 4, 3, 1, 1213},
		{"x", 4, 3, 4, 1, 2, 1124},
		{"y", 3, 5, 3, 2, 0, 1032},
	}

	for _, tt := range tests {
		t.Run(tt.axis, func(t *testing.T) {
			img, err := v.ExtractSlice(1, tt.axis, tt.pos)
			if err != nil {
				t.Fatalf("Failed to extract slice: %v", err)
			}
			b := img.Bounds()
			if b.Dx() != tt.width || b.Dy() != tt.height {
				t.Errorf("Expected %dx%d slice, got %dx%d", tt.width, tt.height, b.Dx(), b.Dy())
			}
			if got := img.Gray16At(tt.x, tt.y).Y; got != tt.want {
				t.Errorf("Expected value %d at (%d,%d), got %d", tt.want, tt.x, tt.y, got)
			}
		})
	}
}

func TestExtractSliceErrors(t *testing.T) {
	v := NewViewer(testStack(), nil)

	cases := []struct {
		channel int
		axis    string
		pos     int
	}{
		{0, "z", 3},
		{0, "x", 5},
		{0, "y", -1},
		{2, "z", 0},
		{0, "w", 0},
	}
	for _, c := range cases {
		if _, err := v.ExtractSlice(c.channel, c.axis, c.pos); err == nil {
			t.Errorf("Expected an error for channel %d axis %q position %d", c.channel, c.axis, c.pos)
		}
	}
}

// TestSaveSliceSequence verifies that a whole sequence is written and decodes back
func TestSaveSliceSequence(t *testing.T) {
	dir := t.TempDir()
	v := NewViewer(testStack(), []string{"w1", "w2"})

	if err := v.SaveSliceSequence(0, "z", dir); err != nil {
		t.Fatalf("Failed to save slice sequence: %v", err)
	}

	for _, name := range []string{"w1_z_000.tif", "w1_z_001.tif", "w1_z_002.tif"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("Expected %s to exist: %v", name, err)
		}
	}

	f, err := os.Open(filepath.Join(dir, "w1_z_001.tif"))
	if err != nil {
		t.Fatalf("Failed to open slice: %v", err)
	}
	defer f.Close()
	img, err := tiff.Decode(f)
	if err != nil {
		t.Fatalf("Failed to decode slice: %v", err)
	}
	gray, ok := img.(*image.Gray16)
	if !ok {
		t.Fatalf("Expected a 16-bit slice, got %T", img)
	}
	if got := gray.Gray16At(3, 1).Y; got != 113 {
		t.Errorf("Expected value 113, got %d", got)
	}

	if err := v.SaveSliceSequence(0, "q", dir); err == nil {
		t.Error("Expected an error for an invalid axis")
	}
}

func TestWriteResult(t *testing.T) {
	dir := t.TempDir()

	s := testStack()
	bins := []*histogram.Histogram{histogram.New(s.Channel(0)), histogram.New(s.Channel(1))}
	tables := &roi.Tables{
		Well: &roi.Table{Name: roi.WellTable, Rows: []roi.Row{{Name: roi.WellROI, LenXMicrometer: 1399.6032, LenYMicrometer: 699.8016, LenZMicrometer: 1}}},
		FOV:  &roi.Table{Name: roi.FOVTable, Rows: []roi.Row{{Name: "Site 1"}, {Name: "Site 2", YMicrometer: 699.8016}}},
	}
	step := 5.0
	res := &well.Result{
		Well:            "E07",
		Image:           s,
		Histograms:      bins,
		ChannelMetadata: []metadata.ChannelMetadata{{ChannelName: "FITC_05"}, {ChannelName: "DAPI"}},
		Metadata:        metadata.WellMetadata{PixelType: "uint16", SpatialCalibrationUnits: "um", ZScaling: &step},
		ROITables:       tables,
	}

	if err := WriteResult(dir, res, []string{"w1", "w2"}, true); err != nil {
		t.Fatalf("WriteResult failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "E07", MetadataFile))
	if err != nil {
		t.Fatalf("Failed to read metadata: %v", err)
	}
	var summary WellSummary
	if err := yaml.Unmarshal(data, &summary); err != nil {
		t.Fatalf("Failed to parse metadata: %v", err)
	}
	if summary.Channels[1].Channel != "w2" || summary.Channels[1].Min != 1000 {
		t.Errorf("Unexpected channel summary %+v", summary.Channels[1])
	}
	c1 := summary.Channels[1]
	if c1.Mean != 1117 || c1.StdDev <= 0 || c1.P01 != 1000 || c1.P99 != 1234 {
		t.Errorf("Unexpected channel statistics mean=%v stddev=%v p01=%v p99=%v", c1.Mean, c1.StdDev, c1.P01, c1.P99)
	}
	if summary.Metadata.ZScaling == nil || *summary.Metadata.ZScaling != 5 {
		t.Errorf("Expected z-scaling to be written, got %+v", summary.Metadata)
	}
	if summary.Channels[0].Histogram.Offset != 0 {
		t.Errorf("Unexpected histogram offset %d", summary.Channels[0].Histogram.Offset)
	}

	f, err := os.Open(filepath.Join(dir, "E07", roi.FOVTable+".csv"))
	if err != nil {
		t.Fatalf("Failed to open FOV table: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("Failed to read FOV table: %v", err)
	}
	if len(rows) != 3 || rows[0][1] != "x_micrometer" || rows[2][0] != "Site 2" || rows[2][2] != "699.8016" {
		t.Errorf("Unexpected FOV table %v", rows)
	}

	planes, err := filepath.Glob(filepath.Join(dir, "E07", "planes", "*.tif"))
	if err != nil || len(planes) != 6 {
		t.Errorf("Expected 6 planes, got %d (%v)", len(planes), err)
	}
}
