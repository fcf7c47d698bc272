package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_ValidJSON(t *testing.T) {
	content := `{
		"user_id": "550e8400-e29b-41d4-a716-446655440000",
		"manifest": "shipment.json",
		"comparison_model": "gemini-2.5-pro",
		"max_concurrency": 6,
		"verbose": true
	}`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", cfg.UserID)
	assert.Equal(t, "shipment.json", cfg.Manifest)
	assert.Equal(t, "gemini-2.5-pro", cfg.ComparisonModel)
	assert.Equal(t, 6, cfg.MaxConcurrency)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(`{ invalid json }`), 0644))

	cfg, err := LoadConfig(tmpFile)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config path is empty")
}

func TestValidate(t *testing.T) {
	manifest := filepath.Join(t.TempDir(), "manifest.json")
	require.NoError(t, os.WriteFile(manifest, []byte(`{}`), 0644))

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "valid", cfg: Config{Manifest: manifest, MaxConcurrency: 2}},
		{name: "empty", cfg: Config{}},
		{name: "negative concurrency", cfg: Config{MaxConcurrency: -1}, wantErr: "max_concurrency"},
		{name: "missing manifest", cfg: Config{Manifest: "/nonexistent/manifest.json"}, wantErr: "manifest file not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMergeWithDefaults(t *testing.T) {
	defaults := Config{
		Manifest:       "default.json",
		APIKey:         "default-key",
		MaxConcurrency: 8,
	}

	partial := Config{
		Manifest: "custom.json",
		UserID:   "custom-user-id",
	}

	merged := partial.MergeWithDefaults(defaults)

	assert.Equal(t, "custom.json", merged.Manifest)
	assert.Equal(t, "custom-user-id", merged.UserID)
	assert.Equal(t, "default-key", merged.APIKey)
	assert.Equal(t, 8, merged.MaxConcurrency)
}

func TestMergeWithDefaults_EmptyDefaults(t *testing.T) {
	cfg := Config{UserID: "test-user"}
	merged := cfg.MergeWithDefaults(Config{})

	assert.Equal(t, "test-user", merged.UserID)
	assert.Equal(t, DefaultMaxConcurrency, merged.MaxConcurrency)
	assert.False(t, merged.Verbose)
}
