// Package config defines service configuration and how it is loaded.
//
// Values are layered: defaults from New, then an optional YAML file named
// by TRAPPER_CONFIG, then TRAPPER_* environment variables.
package config

import (
	"fmt"
	"slices"
)

// Supported log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log lines.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":3000".
	Addr string `koanf:"addr"`

	// QueueSize bounds the change-event queue feeding the live feed.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of feed workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds how many Idempotency-Key values are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// StrictItems requires every item's noteID to match its note.
	StrictItems bool `koanf:"strict_items"`

	// CORSAllowedOrigins lists origins allowed to call the API. "*" allows any.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          LogFormatText,
		Addr:               ":3000",
		QueueSize:          1024,
		WorkerCount:        2,
		DedupeSize:         10_000,
		StrictItems:        true,
		CORSAllowedOrigins: []string{"*"},
		MaxBodyBytes:       1 << 20,
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case !slices.Contains([]string{LogFormatText, LogFormatJSON}, c.LogFormat):
		return fmt.Errorf("%w: log_format must be %q or %q, got %q",
			ErrInvalidConfig, LogFormatText, LogFormatJSON, c.LogFormat)
	case c.MaxBodyBytes <= 0:
		return fmt.Errorf("%w: max_body_bytes must be positive", ErrInvalidConfig)
	}
	return nil
}
