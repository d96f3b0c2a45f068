// Package config provides configuration loading and management for hcswell.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"hcswell/pkg/assembly"
	"hcswell/pkg/projection"
)

// Processing modes
const (
	Mode2D = "2d"
	Mode3D = "3d"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// NumCores specifies how many wells are built at once
		NumCores int `yaml:"numCores"`

		// Mode selects planar ("2d") or z-stack ("3d") images
		Mode string `yaml:"mode"`

		// Assembly names the stitching strategy: "grid" or "stage-position"
		Assembly string `yaml:"assembly"`

		// Projection, when set in 2d mode, projects z-stacks with the named
		// method ("Maximum" or "Best Focus") instead of reading planar images
		Projection string `yaml:"projection"`

		// Channels lists the channels to assemble, in output order
		Channels []string `yaml:"channels"`
	} `yaml:"processing"`

	// Output parameters
	Output struct {
		// Dir is where per-well results are written
		Dir string `yaml:"dir"`

		// LogMode selects the logger: "dev" or "prod"
		LogMode string `yaml:"logMode"`

		// SavePlanes writes every stitched plane as a TIFF
		SavePlanes bool `yaml:"savePlanes"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.NumCores = runtime.NumCPU()
	cfg.Processing.Mode = Mode2D
	cfg.Processing.Assembly = assembly.Grid.Name
	cfg.Processing.Channels = []string{"w1"}

	cfg.Output.Dir = "wells"
	cfg.Output.LogMode = "dev"
	cfg.Output.SavePlanes = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// Validate checks that the named strategy and projection exist and the mode is known
func (c *Config) Validate() error {
	if _, err := assembly.Lookup(c.Processing.Assembly); err != nil {
		return err
	}
	if _, err := c.ProjectionMethod(); err != nil {
		return err
	}
	switch c.Processing.Mode {
	case Mode2D, Mode3D:
	default:
		return fmt.Errorf("unknown processing mode %q", c.Processing.Mode)
	}
	if c.Processing.Mode == Mode3D && c.Processing.Projection != "" {
		return fmt.Errorf("projection %q only applies to 2d mode", c.Processing.Projection)
	}
	if len(c.Processing.Channels) == 0 {
		return fmt.Errorf("no channels configured")
	}
	return nil
}

// ProjectionMethod returns the configured projection, or 0 when none is set
func (c *Config) ProjectionMethod() (projection.Method, error) {
	if c.Processing.Projection == "" {
		return 0, nil
	}
	return projection.ParseMethod(c.Processing.Projection)
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
