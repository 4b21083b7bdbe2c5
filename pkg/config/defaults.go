package config

import (
	"strings"
)

// GetDefaultConfig returns a configuration with all defaults applied.
//
// The default configuration runs an unbounded in-memory store against a
// placeholder static backing identity. It is meant as a starting point for
// 'metacache init', not for production use.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Store: StoreConfig{
			Type: "memory",
		},
		Backing: BackingConfig{
			Type:      "static",
			Scheme:    "s3",
			Authority: "example-bucket",
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and
// environment variables to fill in any missing values with sensible
// defaults. Zero values (0, "", false, nil) are replaced with defaults;
// explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyStoreDefaults(&cfg.Store)
	applyBackingDefaults(&cfg.Backing)
	applyMetricsDefaults(&cfg.Metrics)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyStoreDefaults sets metadata store defaults.
func applyStoreDefaults(cfg *StoreConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}
}

// applyBackingDefaults sets backing store identity defaults.
func applyBackingDefaults(cfg *BackingConfig) {
	if cfg.Type == "" {
		cfg.Type = "static"
	}
	if cfg.Scheme == "" {
		cfg.Scheme = "s3"
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	// Enabled defaults to false (opt-in for metrics)
	// Port defaults to 9090 if metrics are enabled
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}
