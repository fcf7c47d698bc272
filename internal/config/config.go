// Package config provides configuration loading and validation for the server and the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Paths
	Manifest string `json:"manifest,omitempty"` // Path to the analysis manifest JSON
	Output   string `json:"output,omitempty"`   // Where to write the analysis result JSON

	// Caller
	UserID string `json:"user_id,omitempty"` // Used to look up a stored API key
	APIKey string `json:"api_key,omitempty"` // Gemini API key

	// Models
	ExtractionModel string `json:"extraction_model,omitempty"` // Overrides the standard tier
	ComparisonModel string `json:"comparison_model,omitempty"` // Overrides the advanced tier

	// Behavior
	MaxConcurrency int    `json:"max_concurrency,omitempty"` // Parallel downloads and extractions
	Verbose        bool   `json:"verbose,omitempty"`         // Print detailed debug information
	DatabaseURL    string `json:"database_url,omitempty"`    // PostgreSQL connection URL
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Required fields are checked by the CLI after merging with flags.
func (c *Config) Validate() error {
	if c.MaxConcurrency < 0 {
		return fmt.Errorf("config error: 'max_concurrency' must be non-negative")
	}

	if c.Manifest != "" {
		if _, err := os.Stat(c.Manifest); os.IsNotExist(err) {
			return fmt.Errorf("config error: manifest file not found: %s", c.Manifest)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.Manifest == "" {
		result.Manifest = defaults.Manifest
	}
	if result.Output == "" {
		result.Output = defaults.Output
	}
	if result.UserID == "" {
		result.UserID = defaults.UserID
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.ExtractionModel == "" {
		result.ExtractionModel = defaults.ExtractionModel
	}
	if result.ComparisonModel == "" {
		result.ComparisonModel = defaults.ComparisonModel
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}

	if result.MaxConcurrency == 0 {
		if defaults.MaxConcurrency > 0 {
			result.MaxConcurrency = defaults.MaxConcurrency
		} else {
			result.MaxConcurrency = DefaultMaxConcurrency
		}
	}

	if !result.Verbose {
		result.Verbose = defaults.Verbose
	}

	return result
}
