package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EndpointConfig is the limit applied to one path prefix and method.
// Burst defaults to Limit when zero.
type EndpointConfig struct {
	Path   string
	Method string
	Limit  int
	Window time.Duration
	Burst  int
}

// LoadConfig reads RATE_LIMIT_* variables from the environment.
// Unparseable values fall back to their defaults.
func LoadConfig() *Config {
	return loadConfigFrom(os.Getenv)
}

func loadConfigFrom(getenv func(string) string) *Config {
	if !envOr(getenv, "RATE_LIMIT_ENABLED", true, strconv.ParseBool) {
		return &Config{Enabled: false}
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    envOr(getenv, "RATE_LIMIT_DEFAULT_LIMIT", 1000, strconv.Atoi),
		DefaultWindow:   envOr(getenv, "RATE_LIMIT_DEFAULT_WINDOW", time.Minute, time.ParseDuration),
		CleanupInterval: envOr(getenv, "RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute, time.ParseDuration),
		Whitelist:       clientSet(getenv("RATE_LIMIT_WHITELIST")),
		Blacklist:       clientSet(getenv("RATE_LIMIT_BLACKLIST")),
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns the per-endpoint limits. Reads use the default limit;
// /health and /metrics are never limited.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// Each analysis makes one model call per document plus the comparison.
		{Path: "/document-comparison/analyze", Method: "POST", Limit: 10, Window: time.Hour, Burst: 2},

		{Path: "/document-comparison/rules", Method: "POST", Limit: 100, Window: time.Minute, Burst: 10},
		{Path: "/document-comparison/rules/", Method: "PUT", Limit: 100, Window: time.Minute, Burst: 10},
		{Path: "/document-comparison/rules/", Method: "DELETE", Limit: 100, Window: time.Minute, Burst: 10},
		{Path: "/settings/ai", Method: "POST", Limit: 100, Window: time.Minute, Burst: 10},
	}
}

func envOr[T any](getenv func(string) string, key string, def T, parse func(string) (T, error)) T {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		return def
	}
	return v
}

// clientSet turns a comma separated list of client IDs into a lookup set.
func clientSet(list string) map[string]bool {
	set := make(map[string]bool)
	for _, id := range strings.FieldsFunc(list, func(r rune) bool { return r == ',' || r == ' ' }) {
		set[id] = true
	}
	return set
}
