package metadata

// WellMetadata is the metadata shared by all channels of a well
type WellMetadata struct {
	PixelType               string   `yaml:"pixel-type"`
	SpatialCalibrationUnits string   `yaml:"spatial-calibration-units"`
	SpatialCalibrationX     float64  `yaml:"spatial-calibration-x"`
	SpatialCalibrationY     float64  `yaml:"spatial-calibration-y"`
	ZScaling                *float64 `yaml:"z-scaling,omitempty"`
}

// Consolidate records a channel's calibration into the well metadata.
// Calibration is expected to agree across channels; when it does not, the
// last channel written wins.
func (w *WellMetadata) Consolidate(pixelType string, cal Calibration) {
	w.PixelType = pixelType
	w.SpatialCalibrationUnits = cal.Units
	w.SpatialCalibrationX = cal.X
	w.SpatialCalibrationY = cal.Y
}

// SetZScaling marks the well as a z-stack with the given step
func (w *WellMetadata) SetZScaling(step float64) {
	w.ZScaling = &step
}
