package config

import (
	"strings"
	"testing"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "TRACE"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("Expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Format = "xml"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for invalid log format")
	}
}

func TestValidate_InvalidStoreType(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Store.Type = "redis"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for unknown store type")
	}
	if !strings.Contains(err.Error(), "Store.Type") {
		t.Errorf("Expected error to name Store.Type, got: %v", err)
	}
}

func TestValidate_StaticBackingRequiresAuthority(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Backing.Authority = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for static backing without authority")
	}
	if !strings.Contains(err.Error(), "backing.authority") {
		t.Errorf("Expected error to mention backing.authority, got: %v", err)
	}
}

func TestValidate_InvalidMetricsPort(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.Port = 70000

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for out-of-range metrics port")
	}
}

func TestValidate_LogLevelNormalization(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		cfg := GetDefaultConfig()
		cfg.Logging.Level = level
		ApplyDefaults(cfg)

		if err := Validate(cfg); err != nil {
			t.Errorf("Expected normalized level %q to validate, got: %v", level, err)
		}
		if cfg.Logging.Level != strings.ToUpper(level) {
			t.Errorf("Expected level normalized to uppercase, got %q", cfg.Logging.Level)
		}
	}
}
