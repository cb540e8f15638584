// Package config provides configuration loading and management for roishape.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"roishape/pkg/shape"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Input parameters
	Input struct {
		// Format selects the input reader: auto, nrrd, dicom or stack
		Format string `yaml:"format"`

		// SpacingX is the voxel step along x in mm; 0 takes the value from the input metadata
		SpacingX float64 `yaml:"spacingX"`

		// SpacingY is the voxel step along y in mm; 0 takes the value from the input metadata
		SpacingY float64 `yaml:"spacingY"`

		// SpacingZ is the slice step along z in mm; 0 takes the value from the input metadata
		SpacingZ float64 `yaml:"spacingZ"`

		// Threshold binarizes image-stack slices; samples above it belong to the region
		Threshold float64 `yaml:"threshold"`

		// DicomThreshold binarizes raw DICOM samples; 0 keeps every nonzero sample
		DicomThreshold int `yaml:"dicomThreshold"`

		// Crop trims the mask to the region bounding box before measuring
		Crop bool `yaml:"crop"`
	} `yaml:"input"`

	// Feature parameters
	Features struct {
		// MaximumDiameter toggles the pairwise surface-distance scan,
		// the slowest feature on large regions
		MaximumDiameter bool `yaml:"maximumDiameter"`

		// DiameterFloor is the lowest reported diameter value in mm
		DiameterFloor float64 `yaml:"diameterFloor"`
	} `yaml:"features"`

	// Output parameters
	Output struct {
		// ReportPath is the file to write the feature report to; empty prints to stdout only
		ReportPath string `yaml:"reportPath"`

		// ReportFormat selects the report encoding: csv or yaml
		ReportFormat string `yaml:"reportFormat"`

		// Previews saves mid-volume slice images next to the report
		Previews bool `yaml:"previews"`

		// PreviewDir is the directory for preview images
		PreviewDir string `yaml:"previewDir"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default input parameters
	cfg.Input.Format = "auto"
	cfg.Input.SpacingX = 0 // Take spacing from the input metadata
	cfg.Input.SpacingY = 0
	cfg.Input.SpacingZ = 0
	cfg.Input.Threshold = 0.5
	cfg.Input.DicomThreshold = 0
	cfg.Input.Crop = false

	// Set default feature parameters
	cfg.Features.MaximumDiameter = true
	cfg.Features.DiameterFloor = shape.DefaultDiameterFloor

	// Set default output parameters
	cfg.Output.ReportPath = ""
	cfg.Output.ReportFormat = "csv"
	cfg.Output.Previews = false
	cfg.Output.PreviewDir = "previews"
	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
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
