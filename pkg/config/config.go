// Package config provides configuration loading and management for the
// labelmesh tools. It handles loading configuration from YAML files and
// provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// NumCores specifies how many CPU cores to use for parallel processing
		NumCores int `yaml:"numCores"`

		// SliceGap is the z spacing in mm used when the input is a slice directory
		SliceGap float64 `yaml:"sliceGap"`
	} `yaml:"processing"`

	// Surface extraction parameters
	Surface struct {
		// ObjectValue is the indicator value of the object region
		ObjectValue uint8 `yaml:"objectValue"`

		// TagLabels stores the original label of each voxel as cell data
		// instead of the object value
		TagLabels bool `yaml:"tagLabels"`
	} `yaml:"surface"`

	// Subdivision parameters
	Subdivision struct {
		// Scheme is one of linear, loop, butterfly or sqrt3
		Scheme string `yaml:"scheme"`

		// Resolution is the number of subdivision passes, 0 disables subdivision
		Resolution int `yaml:"resolution"`

		// Cells restricts subdivision to these cell indices; empty means all
		Cells []int `yaml:"cells"`
	} `yaml:"subdivision"`

	// Output parameters
	Output struct {
		// ASCIISTL writes STL output in ASCII instead of binary
		ASCIISTL bool `yaml:"asciiSTL"`

		// CompressImages compresses written volume files
		CompressImages bool `yaml:"compressImages"`

		// SaveIntermediaryResults determines whether to save intermediary processing results
		SaveIntermediaryResults bool `yaml:"saveIntermediaryResults"`

		// IntermediaryDir is where intermediary results are written
		IntermediaryDir string `yaml:"intermediaryDir"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`

	// Logging parameters
	Logging struct {
		// File receives log output in addition to stderr; empty disables it
		File string `yaml:"file"`

		// MaxSizeMB is the size at which the log file is rotated
		MaxSizeMB int `yaml:"maxSizeMB"`

		// MaxBackups is the number of rotated files to keep
		MaxBackups int `yaml:"maxBackups"`
	} `yaml:"logging"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.NumCores = runtime.NumCPU() // Use all available cores by default
	cfg.Processing.SliceGap = 1.0

	cfg.Surface.ObjectValue = 1
	cfg.Surface.TagLabels = false

	cfg.Subdivision.Scheme = "loop"
	cfg.Subdivision.Resolution = 0

	cfg.Output.ASCIISTL = false
	cfg.Output.CompressImages = true
	cfg.Output.SaveIntermediaryResults = false
	cfg.Output.IntermediaryDir = "intermediary_results"
	cfg.Output.Verbose = true

	cfg.Logging.MaxSizeMB = 10
	cfg.Logging.MaxBackups = 3

	return cfg
}

// Validate checks values that cannot be corrected silently.
func (c *Config) Validate() error {
	if c.Processing.NumCores < 1 {
		return fmt.Errorf("processing.numCores must be at least 1, got %d", c.Processing.NumCores)
	}
	if c.Processing.SliceGap <= 0 {
		return fmt.Errorf("processing.sliceGap must be positive, got %g", c.Processing.SliceGap)
	}
	if c.Subdivision.Resolution < 0 {
		return fmt.Errorf("subdivision.resolution must not be negative, got %d", c.Subdivision.Resolution)
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 {
		return fmt.Errorf("logging limits must not be negative")
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
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
	// Create directory if it doesn't exist
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
