// Package config provides configuration loading and management for hippovol.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Study parameters describe how scans are laid out on disk
	Study struct {
		// Prefix is the study prefix of scan directory names, e.g. OAS2
		Prefix string `yaml:"prefix"`

		// ImageExt is the extension of the voxel data file
		ImageExt string `yaml:"imageExt"`

		// HeaderExt is the extension of the header file paired with each image
		HeaderExt string `yaml:"headerExt"`
	} `yaml:"study"`

	// Batch parameters control the checkpointed processing loop
	Batch struct {
		// CheckpointInterval is the number of scans between checkpoint saves
		CheckpointInterval int `yaml:"checkpointInterval"`

		// Resume controls whether a previous checkpoint is picked up on start
		Resume bool `yaml:"resume"`
	} `yaml:"batch"`

	// Segmentation parameters name the external tools
	Segmentation struct {
		// BrainTool is the brain extraction executable
		BrainTool string `yaml:"brainTool"`

		// HippocampusTool is the hippocampal segmentation executable
		HippocampusTool string `yaml:"hippocampusTool"`

		// WorkDir holds the temporary files exchanged with the tools.
		// Empty means the system temp directory.
		WorkDir string `yaml:"workDir"`
	} `yaml:"segmentation"`

	// Output parameters
	Output struct {
		// SaveArtifacts determines whether extracted brains and masks are
		// written next to the result tables
		SaveArtifacts bool `yaml:"saveArtifacts"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default study parameters (OASIS-2 layout)
	cfg.Study.Prefix = "OAS2"
	cfg.Study.ImageExt = ".img"
	cfg.Study.HeaderExt = ".hdr"

	// Set default batch parameters
	cfg.Batch.CheckpointInterval = 50
	cfg.Batch.Resume = true

	// Set default segmentation parameters
	cfg.Segmentation.BrainTool = "brain_extract"
	cfg.Segmentation.HippocampusTool = "hippo_segment"
	cfg.Segmentation.WorkDir = ""

	// Set default output parameters
	cfg.Output.SaveArtifacts = true
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
