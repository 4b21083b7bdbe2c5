package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultsApplied(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "INFO"

store:
  type: memory

backing:
  type: static
  authority: "test-bucket"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Verify defaults were applied
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default output 'stdout', got %q", cfg.Logging.Output)
	}
	if cfg.Backing.Scheme != "s3" {
		t.Errorf("Expected default backing scheme 's3', got %q", cfg.Backing.Scheme)
	}
	if cfg.Backing.Authority != "test-bucket" {
		t.Errorf("Expected backing authority 'test-bucket', got %q", cfg.Backing.Authority)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	// Loading with no config file returns a valid default config.
	tmpDir := t.TempDir()
	nonExistentPath := filepath.Join(tmpDir, "nonexistent.yaml")

	cfg, err := Load(nonExistentPath)
	if err != nil {
		t.Fatalf("Expected no error when loading default config, got: %v", err)
	}
	if cfg == nil {
		t.Fatal("Expected default config to be returned")
	}
	if cfg.Store.Type != "memory" {
		t.Errorf("Expected default store type 'memory', got %q", cfg.Store.Type)
	}
	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "INFO"

store:
  type: memory

backing:
  authority: "test-bucket"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	t.Setenv("METACACHE_LOGGING_LEVEL", "debug")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Environment beats the file; level is normalized to uppercase.
	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected env override 'DEBUG', got %q", cfg.Logging.Level)
	}
}

func TestLoad_BackendSections(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
store:
  type: badger
  badger:
    path: "/var/lib/metacache/badger"
    sync_writes: true
  memory:
    max_entries: 4096

backing:
  authority: "test-bucket"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Store.Type != "badger" {
		t.Errorf("Expected store type 'badger', got %q", cfg.Store.Type)
	}
	if got := cfg.Store.Badger["path"]; got != "/var/lib/metacache/badger" {
		t.Errorf("Expected badger path to survive as raw map value, got %v", got)
	}
	if got := cfg.Store.Memory["max_entries"]; got == nil {
		t.Error("Expected memory section to be retained alongside the active backend")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("store: [unclosed"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error for malformed YAML")
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.yaml")

	cfg := GetDefaultConfig()
	cfg.Store.Type = "badger"
	cfg.Store.Badger = map[string]any{"path": "/tmp/metacache"}
	cfg.Backing.Authority = "round-trip-bucket"

	if err := SaveConfig(cfg, configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	// Saved with owner-only permissions
	info, err := os.Stat(configPath)
	if err != nil {
		t.Fatalf("Failed to stat config file: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected file mode 0600, got %v", info.Mode().Perm())
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to reload saved config: %v", err)
	}
	if loaded.Store.Type != "badger" {
		t.Errorf("Expected store type 'badger' after round trip, got %q", loaded.Store.Type)
	}
	if loaded.Backing.Authority != "round-trip-bucket" {
		t.Errorf("Expected authority to survive round trip, got %q", loaded.Backing.Authority)
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-test")

	expected := filepath.Join("/tmp/xdg-test", "metacache", "config.yaml")
	if got := GetDefaultConfigPath(); got != expected {
		t.Errorf("Expected %q, got %q", expected, got)
	}
}
