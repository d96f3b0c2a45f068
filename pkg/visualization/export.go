package visualization

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"hcswell/pkg/histogram"
	"hcswell/pkg/metadata"
	"hcswell/pkg/roi"
	"hcswell/pkg/well"
)

// MetadataFile is the name of the per-well metadata document
const MetadataFile = "metadata.yaml"

// ChannelSummary is the exported record of one channel
type ChannelSummary struct {
	Channel   string                   `yaml:"channel"`
	Metadata  metadata.ChannelMetadata `yaml:"metadata"`
	Min       uint16                   `yaml:"min"`
	Max       uint16                   `yaml:"max"`
	Mean      float64                  `yaml:"mean"`
	StdDev    float64                  `yaml:"stddev"`
	P01       float64                  `yaml:"p01"`
	P99       float64                  `yaml:"p99"`
	Histogram histogram.Sparse         `yaml:"histogram"`
}

// WellSummary is the exported metadata document of one well
type WellSummary struct {
	Well     string                `yaml:"well"`
	Shape    []int                 `yaml:"shape"`
	Metadata metadata.WellMetadata `yaml:"metadata"`
	Channels []ChannelSummary      `yaml:"channels"`
}

// Summarize builds the metadata document of a result
func Summarize(res *well.Result, channels []string) WellSummary {
	s := WellSummary{
		Well:     res.Well,
		Shape:    res.Image.Shape(),
		Metadata: res.Metadata,
		Channels: make([]ChannelSummary, len(res.ChannelMetadata)),
	}
	for i, ch := range res.ChannelMetadata {
		h := res.Histograms[i]
		s.Channels[i] = ChannelSummary{
			Metadata:  ch,
			Min:       h.Min(),
			Max:       h.Max(),
			Mean:      h.Mean(),
			StdDev:    h.StdDev(),
			P01:       h.Quantile(0.01),
			P99:       h.Quantile(0.99),
			Histogram: h.Sparse(),
		}
		if i < len(channels) {
			s.Channels[i].Channel = channels[i]
		}
	}
	return s
}

// WriteResult writes a well's metadata, ROI tables and, when savePlanes is
// set, every stitched plane under dir/<well>.
func WriteResult(dir string, res *well.Result, channels []string, savePlanes bool) error {
	wellDir := filepath.Join(dir, res.Well)
	if err := os.MkdirAll(wellDir, 0755); err != nil {
		return fmt.Errorf("error creating well directory: %w", err)
	}

	data, err := yaml.Marshal(Summarize(res, channels))
	if err != nil {
		return fmt.Errorf("error marshaling metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(wellDir, MetadataFile), data, 0644); err != nil {
		return fmt.Errorf("error writing metadata: %w", err)
	}

	for name, table := range res.ROITables.ByName() {
		if err := WriteTable(filepath.Join(wellDir, name+".csv"), table); err != nil {
			return err
		}
	}

	if savePlanes {
		viewer := NewViewer(res.Image, channels)
		for c := 0; c < res.Image.Channels; c++ {
			if err := viewer.SaveSliceSequence(c, "z", filepath.Join(wellDir, "planes")); err != nil {
				return fmt.Errorf("error saving planes: %w", err)
			}
		}
	}
	return nil
}

// WriteTable writes an ROI table as CSV with the row name as first column
func WriteTable(path string, t *roi.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{"name"}, roi.Columns...)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range t.Rows {
		record := []string{r.Name}
		for _, v := range r.Values() {
			record = append(record, strconv.FormatFloat(v, 'f', -1, 64))
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
