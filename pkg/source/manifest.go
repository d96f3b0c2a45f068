// Package source reads image records and their planes from disk. It stands in
// for the acquisition's file discovery: a YAML manifest lists the images and
// the planes are 16-bit grayscale TIFFs.
package source

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"hcswell/internal/models"
)

// Manifest lists every image of a plate acquisition
type Manifest struct {
	Images []models.ImageRecord `yaml:"images"`
}

// LoadManifest reads a manifest file
func LoadManifest(path string) ([]models.ImageRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("error parsing manifest: %w", err)
	}

	for i, r := range m.Images {
		if r.Well == "" || r.Channel == "" || r.Path == "" {
			return nil, fmt.Errorf("manifest image %d: well, channel and path are required", i)
		}
	}
	return m.Images, nil
}

// SaveManifest writes records as a manifest file
func SaveManifest(path string, records []models.ImageRecord) error {
	data, err := yaml.Marshal(Manifest{Images: records})
	if err != nil {
		return fmt.Errorf("error marshaling manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing manifest: %w", err)
	}
	return nil
}
