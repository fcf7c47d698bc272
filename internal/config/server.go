package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/freight-doc-review/internal/llm"
)

// ServerConfig holds the settings of the HTTP API process.
type ServerConfig struct {
	DatabaseURL  string
	GeminiAPIKey string
	Port         int

	MaxConcurrency    int
	DownloadTimeout   time.Duration
	ExtractionTimeout time.Duration
	ComparisonTimeout time.Duration

	ModelLite     string
	ModelStandard string
	ModelAdvanced string

	AllowedOrigins []string
}

// Defaults applied when the matching variable is unset.
const (
	DefaultPort              = 8080
	DefaultMaxConcurrency    = 4
	DefaultDownloadTimeout   = 30 * time.Second
	DefaultExtractionTimeout = 60 * time.Second
	DefaultComparisonTimeout = 120 * time.Second
)

// LoadServerConfig reads the server configuration from environment variables.
// DATABASE_URL is required; GEMINI_API_KEY is the fallback credential for users without one.
func LoadServerConfig() (*ServerConfig, error) {
	cfg := &ServerConfig{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		GeminiAPIKey:  strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		ModelLite:     os.Getenv("GEMINI_MODEL_LITE"),
		ModelStandard: os.Getenv("GEMINI_MODEL_STANDARD"),
		ModelAdvanced: os.Getenv("GEMINI_MODEL_ADVANCED"),
	}

	var err error
	if cfg.Port, err = envInt("PORT", DefaultPort); err != nil {
		return nil, err
	}
	if cfg.MaxConcurrency, err = envInt("ANALYSIS_MAX_CONCURRENCY", DefaultMaxConcurrency); err != nil {
		return nil, err
	}
	if cfg.DownloadTimeout, err = envDuration("DOWNLOAD_TIMEOUT", DefaultDownloadTimeout); err != nil {
		return nil, err
	}
	if cfg.ExtractionTimeout, err = envDuration("EXTRACTION_TIMEOUT", DefaultExtractionTimeout); err != nil {
		return nil, err
	}
	if cfg.ComparisonTimeout, err = envDuration("COMPARISON_TIMEOUT", DefaultComparisonTimeout); err != nil {
		return nil, err
	}
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize validates the configuration.
func (c *ServerConfig) normalize() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required but not set")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got: %d", c.Port)
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("ANALYSIS_MAX_CONCURRENCY must be at least 1, got: %d", c.MaxConcurrency)
	}
	if c.DownloadTimeout <= 0 || c.ExtractionTimeout <= 0 || c.ComparisonTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}

// LLMConfig applies the GEMINI_MODEL_* overrides to the default model configuration.
func (c *ServerConfig) LLMConfig() *llm.Config {
	return llm.DefaultConfig().
		WithModel(llm.TierLite, c.ModelLite).
		WithModel(llm.TierStandard, c.ModelStandard).
		WithModel(llm.TierAdvanced, c.ModelAdvanced)
}

func envInt(name string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", name, err)
	}
	return n, nil
}

// envDuration accepts Go durations ("90s") or a bare number of seconds.
func envDuration(name string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", name, err)
	}
	return d, nil
}
