// Package config provides configuration loading and management for volmorph.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// MaxGroupsLimit is the largest number of connected components a label
// operation may keep.
const MaxGroupsLimit = 250

// Range is an inclusive [Floor, Ceil] interval.
type Range struct {
	Floor float64 `yaml:"floor"`
	Ceil  float64 `yaml:"ceil"`
}

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// Range is the intensity range used by binarize and clamp when the
		// operation string gives none
		Range Range `yaml:"range"`

		// GroupRange is the component size range kept by label operations
		GroupRange Range `yaml:"groupRange"`

		// MaxGroups caps the number of labelled components
		MaxGroups int `yaml:"maxGroups"`

		// Successive is the operation string, e.g. "B[0.5:1]DDG"
		Successive string `yaml:"successive"`

		// KernelFile replaces the built-in six-neighbour kernel when set
		KernelFile string `yaml:"kernelFile"`
	} `yaml:"processing"`

	// Output parameters
	Output struct {
		// Verbose enables debug logging
		Verbose bool `yaml:"verbose"`

		// Clobber allows existing output files to be overwritten
		Clobber bool `yaml:"clobber"`

		// SaveIntermediaryResults exports the middle z slice after every operation
		SaveIntermediaryResults bool `yaml:"saveIntermediaryResults"`

		// IntermediaryDir receives the intermediary slices
		IntermediaryDir string `yaml:"intermediaryDir"`

		// SliceFormat is the image extension used for exported slices
		SliceFormat string `yaml:"sliceFormat"`

		// PhysicalAspect resamples exported slices to the voxel aspect ratio
		PhysicalAspect bool `yaml:"physicalAspect"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.Range = Range{Floor: -math.MaxFloat64, Ceil: math.MaxFloat64}
	cfg.Processing.GroupRange = Range{Floor: 0, Ceil: math.MaxFloat64}
	cfg.Processing.MaxGroups = MaxGroupsLimit
	cfg.Processing.Successive = "B"

	cfg.Output.Verbose = false
	cfg.Output.Clobber = false
	cfg.Output.SaveIntermediaryResults = false
	cfg.Output.IntermediaryDir = "intermediary"
	cfg.Output.SliceFormat = "png"

	return cfg
}

// Validate checks values that cannot be corrected later in the pipeline.
func (c *Config) Validate() error {
	if c.Processing.Range.Floor > c.Processing.Range.Ceil {
		return fmt.Errorf("range floor %g exceeds ceil %g", c.Processing.Range.Floor, c.Processing.Range.Ceil)
	}
	if c.Processing.MaxGroups < 0 || c.Processing.MaxGroups > MaxGroupsLimit {
		return fmt.Errorf("maxGroups must be within [0, %d], got %d", MaxGroupsLimit, c.Processing.MaxGroups)
	}
	if c.Processing.Successive == "" {
		return fmt.Errorf("successive must not be empty")
	}
	return nil
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

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
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
