package source

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/image/tiff"
	"gopkg.in/yaml.v3"

	"hcswell/internal/models"
)

// SidecarExt is appended to an image path to find its metadata file
const SidecarExt = ".yaml"

// TIFFSource loads planes from TIFF files. Relative record paths are resolved
// against Root. Metadata found in a sidecar YAML file next to the image is
// returned alongside the plane.
type TIFFSource struct {
	Root string
}

// NewTIFFSource creates a source rooted at the manifest's directory
func NewTIFFSource(manifestPath string) *TIFFSource {
	return &TIFFSource{Root: filepath.Dir(manifestPath)}
}

func (s *TIFFSource) resolve(path string) string {
	if filepath.IsAbs(path) || s.Root == "" {
		return path
	}
	return filepath.Join(s.Root, path)
}

// Load decodes the record's TIFF and reads its sidecar metadata
func (s *TIFFSource) Load(rec models.ImageRecord) (*models.Plane, models.RawMetadata, error) {
	path := s.resolve(rec.Path)

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	img, err := tiff.Decode(f)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	raw, err := readSidecar(path + SidecarExt)
	if err != nil {
		return nil, nil, err
	}
	return ToPlane(img), raw, nil
}

func readSidecar(path string) (models.RawMetadata, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var raw models.RawMetadata
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("error parsing metadata %s: %w", path, err)
	}
	return raw, nil
}

// ToPlane converts an image to a 16-bit plane. 8-bit intensities keep their
// value.
func ToPlane(img image.Image) *models.Plane {
	b := img.Bounds()
	p := models.NewPlane(b.Dx(), b.Dy())

	switch src := img.(type) {
	case *image.Gray16:
		for y := 0; y < p.Height; y++ {
			for x := 0; x < p.Width; x++ {
				p.Set(x, y, src.Gray16At(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
	case *image.Gray:
		for y := 0; y < p.Height; y++ {
			for x := 0; x < p.Width; x++ {
				p.Set(x, y, uint16(src.GrayAt(b.Min.X+x, b.Min.Y+y).Y))
			}
		}
	default:
		for y := 0; y < p.Height; y++ {
			for x := 0; x < p.Width; x++ {
				c := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
				p.Set(x, y, c.Y)
			}
		}
	}
	return p
}

// FromPlane converts a plane to a 16-bit grayscale image
func FromPlane(p *models.Plane) *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, p.Width, p.Height))
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			img.SetGray16(x, y, color.Gray16{Y: p.At(x, y)})
		}
	}
	return img
}
