// Package credentials resolves the Gemini API key used for a caller's analysis.
package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Settings scope under which the per-user key is stored.
const (
	SettingsCategory = "ai"
	SettingsKey      = "gemini_api_key"
)

// MissingKeyMessage is returned to callers when no key can be found.
const MissingKeyMessage = "Gemini API key not configured. Please set your API key in Settings > AI Settings."

// ConfigurationError means the request cannot run because no credential is available.
type ConfigurationError struct {
	Message string
	Cause   error
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

// SettingsStore reads raw settings values. A missing row returns nil, nil.
type SettingsStore interface {
	GetSetting(ctx context.Context, userID, category, key string) (json.RawMessage, error)
}

// Resolver looks up a caller's key, falling back to the process default.
type Resolver struct {
	store      SettingsStore
	defaultKey string
}

// NewResolver creates a Resolver. store may be nil, in which case only defaultKey is used.
func NewResolver(store SettingsStore, defaultKey string) *Resolver {
	return &Resolver{store: store, defaultKey: strings.TrimSpace(defaultKey)}
}

// Resolve returns the API key for userID.
// A store read failure is reported as a configuration error rather than silently using the default.
func (r *Resolver) Resolve(ctx context.Context, userID string) (string, error) {
	if r.store != nil && userID != "" {
		raw, err := r.store.GetSetting(ctx, userID, SettingsCategory, SettingsKey)
		if err != nil {
			return "", &ConfigurationError{
				Message: "failed to load AI settings",
				Cause:   fmt.Errorf("get setting for user %s: %w", userID, err),
			}
		}
		if key := Normalize(raw); key != "" {
			return key, nil
		}
	}

	if r.defaultKey != "" {
		return r.defaultKey, nil
	}

	return "", &ConfigurationError{Message: MissingKeyMessage}
}

// Normalize accepts a stored settings value that is either a JSON string or an object
// with a "value" field and returns the trimmed key, or "" if neither form is present.
func Normalize(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var wrapped struct {
		Value *string `json:"value"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Value != nil {
		return strings.TrimSpace(*wrapped.Value)
	}

	return ""
}
