// Package visualization extracts and writes views of assembled well images.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"golang.org/x/image/tiff"

	"hcswell/internal/models"
)

// Viewer extracts 2D views from an assembled (c, [z,] y, x) image
type Viewer struct {
	stack *models.Stack

	// channels names each channel index for file names
	channels []string
}

// NewViewer creates a viewer over stack. channels names the channel axis.
func NewViewer(stack *models.Stack, channels []string) *Viewer {
	return &Viewer{
		stack:    stack,
		channels: channels,
	}
}

// ExtractSlice extracts a 2D slice of one channel along the given axis.
// "z" gives the stitched YX plane at that z-index; "x" and "y" give
// orthogonal ZY and XZ sections through the z-stack.
func (v *Viewer) ExtractSlice(channel int, axis string, position int) (*image.Gray16, error) {
	s := v.stack
	if channel < 0 || channel >= s.Channels {
		return nil, fmt.Errorf("channel %d out of range [0,%d)", channel, s.Channels)
	}
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}

	var img *image.Gray16

	switch axis {
	case "x", "X":
		if position >= s.Width {
			return nil, fmt.Errorf("position %d exceeds width %d", position, s.Width)
		}
		img = image.NewGray16(image.Rect(0, 0, s.Depth, s.Height))
		for z := 0; z < s.Depth; z++ {
			p := s.Plane(channel, z)
			for y := 0; y < s.Height; y++ {
				img.SetGray16(z, y, color.Gray16{Y: p.At(position, y)})
			}
		}

	case "y", "Y":
		if position >= s.Height {
			return nil, fmt.Errorf("position %d exceeds height %d", position, s.Height)
		}
		img = image.NewGray16(image.Rect(0, 0, s.Width, s.Depth))
		for z := 0; z < s.Depth; z++ {
			p := s.Plane(channel, z)
			for x := 0; x < s.Width; x++ {
				img.SetGray16(x, z, color.Gray16{Y: p.At(x, position)})
			}
		}

	case "z", "Z":
		if position >= s.Depth {
			return nil, fmt.Errorf("position %d exceeds depth %d", position, s.Depth)
		}
		p := s.Plane(channel, position)
		img = image.NewGray16(image.Rect(0, 0, s.Width, s.Height))
		for y := 0; y < s.Height; y++ {
			for x := 0; x < s.Width; x++ {
				img.SetGray16(x, y, color.Gray16{Y: p.At(x, y)})
			}
		}

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	return img, nil
}

// SaveSlice saves an extracted slice as an uncompressed 16-bit TIFF
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return tiff.Encode(file, img, &tiff.Options{Compression: tiff.Uncompressed})
}

// SaveSliceSequence saves every slice of one channel along axis into outputDir
func (v *Viewer) SaveSliceSequence(channel int, axis string, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	var maxPos int
	switch axis {
	case "x", "X":
		maxPos = v.stack.Width
	case "y", "Y":
		maxPos = v.stack.Height
	case "z", "Z":
		maxPos = v.stack.Depth
	default:
		return fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := v.ExtractSlice(channel, axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("%s_%s_%03d.tif", v.channelName(channel), axis, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}

func (v *Viewer) channelName(c int) string {
	if c < len(v.channels) && v.channels[c] != "" {
		return v.channels[c]
	}
	return fmt.Sprintf("c%d", c)
}
