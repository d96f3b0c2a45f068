// Package metadata normalizes the per-image metadata dictionaries reported by
// the instrument's image files into channel-level and well-level records.
package metadata

import (
	"fmt"
	"strconv"
	"strings"

	"hcswell/internal/models"
)

// Raw metadata keys as written by MetaSeries into the image headers
const (
	KeyIllumSetting      = "_IllumSetting_"
	KeyDisplayColor      = "display-color"
	KeyExposureTime      = "Exposure Time"
	KeyExposureTimeUnit  = "Exposure Time Unit"
	KeyObjective         = "_MagSetting_"
	KeyObjectiveNA       = "_MagNA_"
	KeyPower             = "power"
	KeyShadingCorrection = "ShadingCorrection"
	KeyWavelength        = "wavelength"
	KeyZProjectionMethod = "z-projection-method"

	KeyStageLabel     = "stage-label"
	KeyStagePositionX = "stage-position-x"
	KeyStagePositionY = "stage-position-y"
	KeyZPosition      = "z-position"
	KeyZStep          = "z-step"

	KeyCalibrationX     = "spatial-calibration-x"
	KeyCalibrationY     = "spatial-calibration-y"
	KeyCalibrationUnits = "spatial-calibration-units"
)

// ChannelMetadata describes one channel of a well. Fields that were not
// present in the raw metadata are left empty and omitted on export.
type ChannelMetadata struct {
	ChannelName       string   `yaml:"channel-name,omitempty"`
	DisplayColor      string   `yaml:"display-color,omitempty"`
	ExposureTime      *float64 `yaml:"exposure-time,omitempty"`
	ExposureTimeUnit  string   `yaml:"exposure-time-unit,omitempty"`
	Objective         string   `yaml:"objective,omitempty"`
	ObjectiveNA       *float64 `yaml:"objective-numerical-aperture,omitempty"`
	Power             *float64 `yaml:"power,omitempty"`
	ShadingCorrection *bool    `yaml:"shading-correction,omitempty"`
	Wavelength        string   `yaml:"wavelength,omitempty"`
	ZProjectionMethod string   `yaml:"z-projection-method,omitempty"`
}

// Channel builds the channel metadata from a single raw dictionary.
//
// Only key lookups are performed; nothing is defaulted. A well's channel
// metadata is taken from the first image of that channel and is not
// reconciled against the remaining images.
func Channel(raw models.RawMetadata) ChannelMetadata {
	var ch ChannelMetadata

	ch.ChannelName, _ = raw.String(KeyIllumSetting)
	ch.DisplayColor, _ = raw.String(KeyDisplayColor)
	ch.Objective, _ = raw.String(KeyObjective)
	ch.Wavelength, _ = raw.String(KeyWavelength)
	ch.ZProjectionMethod, _ = raw.String(KeyZProjectionMethod)

	if v, unit, ok := exposure(raw); ok {
		ch.ExposureTime = &v
		ch.ExposureTimeUnit = unit
	}
	if v, ok := raw.Float(KeyObjectiveNA); ok {
		ch.ObjectiveNA = &v
	}
	if v, ok := raw.Float(KeyPower); ok {
		ch.Power = &v
	}
	if v, ok := raw.Bool(KeyShadingCorrection); ok {
		ch.ShadingCorrection = &v
	}

	return ch
}

// exposure reads the exposure time, either a plain number with a separate
// unit key or a "15 ms" style string.
func exposure(raw models.RawMetadata) (float64, string, bool) {
	unit, _ := raw.String(KeyExposureTimeUnit)
	if v, ok := raw.Float(KeyExposureTime); ok {
		return v, unit, true
	}

	s, ok := raw.String(KeyExposureTime)
	if !ok {
		return 0, "", false
	}
	parts := strings.Fields(s)
	if len(parts) == 0 {
		return 0, "", false
	}
	v, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, "", false
	}
	if len(parts) > 1 {
		unit = parts[1]
	}
	return v, unit, true
}

// StageLabel returns the site part of a "E07 : Site 1" stage label. It never
// fails: a missing or malformed label yields the empty string.
func StageLabel(raw models.RawMetadata) string {
	label, ok := raw.String(KeyStageLabel)
	if !ok {
		return ""
	}
	_, site, found := strings.Cut(label, " : ")
	if !found {
		return ""
	}
	return site
}

// StagePosition returns the recorded stage position in micrometers
func StagePosition(raw models.RawMetadata) (x, y float64, err error) {
	x, okX := raw.Float(KeyStagePositionX)
	y, okY := raw.Float(KeyStagePositionY)
	if !okX || !okY {
		return 0, 0, fmt.Errorf("%w: %s/%s", models.ErrMissingMetadata, KeyStagePositionX, KeyStagePositionY)
	}
	return x, y, nil
}

// Calibration is the physical size of one pixel
type Calibration struct {
	X     float64
	Y     float64
	Units string
}

// SpatialCalibration reads the pixel calibration. A missing y calibration is
// taken to be isotropic with x.
func SpatialCalibration(raw models.RawMetadata) (Calibration, error) {
	x, ok := raw.Float(KeyCalibrationX)
	if !ok || x <= 0 {
		return Calibration{}, fmt.Errorf("%w: %s", models.ErrMissingMetadata, KeyCalibrationX)
	}
	y, ok := raw.Float(KeyCalibrationY)
	if !ok || y <= 0 {
		y = x
	}
	units, ok := raw.String(KeyCalibrationUnits)
	if !ok {
		units = "um"
	}
	return Calibration{X: x, Y: y, Units: units}, nil
}

// ZPosition returns the recorded focus position of a plane
func ZPosition(raw models.RawMetadata) (float64, bool) {
	return raw.Float(KeyZPosition)
}

// ZStep returns the recorded distance between consecutive z-planes
func ZStep(raw models.RawMetadata) (float64, bool) {
	return raw.Float(KeyZStep)
}
