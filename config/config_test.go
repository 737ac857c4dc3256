package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.App.Name != "ezpubsub" {
		t.Errorf("expected app name 'ezpubsub', got %s", cfg.App.Name)
	}
	if cfg.App.Environment != "development" {
		t.Errorf("expected environment 'development', got %s", cfg.App.Environment)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Log.Level)
	}
	if cfg.Log.Format != "text" {
		t.Errorf("expected log format 'text', got %s", cfg.Log.Format)
	}
	if cfg.Signal.LoggingEnabled {
		t.Error("expected signal.logging_enabled false by default")
	}
	if cfg.Metrics.Enabled {
		t.Error("expected metrics.enabled false by default")
	}
	if cfg.Metrics.Port != 9091 {
		t.Errorf("expected metrics port 9091, got %d", cfg.Metrics.Port)
	}

	if err := ValidateWithDetails(cfg); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected default log level, got %s", cfg.Log.Level)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
log:
  level: debug
  format: json
signal:
  logging_enabled: true
  error_log_limit: 10
  error_log_burst: 5
metrics:
  enabled: true
  port: 9200
`)

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("expected log format json, got %s", cfg.Log.Format)
	}
	if !cfg.Signal.LoggingEnabled {
		t.Error("expected signal.logging_enabled true")
	}
	if cfg.Signal.ErrorLogLimit != 10 {
		t.Errorf("expected error_log_limit 10, got %v", cfg.Signal.ErrorLogLimit)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Port != 9200 {
		t.Errorf("expected metrics enabled on port 9200, got %+v", cfg.Metrics)
	}
	// Values not in the file keep their defaults.
	if cfg.App.Name != "ezpubsub" {
		t.Errorf("expected default app name, got %s", cfg.App.Name)
	}
}

func TestLoad_JSONFile(t *testing.T) {
	path := writeConfig(t, "config.json", `{"log": {"level": "warn"}}`)

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("expected log level warn, got %s", cfg.Log.Level)
	}
}

func TestLoad_UnsupportedFormat(t *testing.T) {
	path := writeConfig(t, "config.toml", `level = "debug"`)
	if _, err := Load(path, nil); err == nil {
		t.Error("expected error for unsupported config format")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "config.yaml", "log:\n  level: debug\n")
	t.Setenv("EZPUBSUB_LOG_LEVEL", "error")
	t.Setenv("EZPUBSUB_SIGNAL_LOGGING_ENABLED", "true")

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Log.Level != "error" {
		t.Errorf("expected env to override file, got %s", cfg.Log.Level)
	}
	if !cfg.Signal.LoggingEnabled {
		t.Error("expected EZPUBSUB_SIGNAL_LOGGING_ENABLED to map to signal.logging_enabled")
	}
}

func TestLoad_ExplicitOverridesWin(t *testing.T) {
	t.Setenv("EZPUBSUB_LOG_LEVEL", "warn")

	cfg, err := Load("", map[string]interface{}{"log.level": "debug"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected explicit override to win, got %s", cfg.Log.Level)
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeConfig(t, "config.yaml", "log:\n  level: loud\n")

	_, err := Load(path, nil)
	if err == nil {
		t.Fatal("expected validation error")
	}
	var details ValidationErrors
	if !errors.As(err, &details) {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(details) == 0 {
		t.Fatal("expected at least one field error")
	}
}

func TestLoad_MetricsPortValidation(t *testing.T) {
	_, err := Load("", map[string]interface{}{"metrics.port": 700000})
	if err == nil {
		t.Error("expected validation error for out-of-range port")
	}
}

func TestConfig_Conversions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Log.Level = "debug"
	cfg.Metrics.Enabled = true
	cfg.Metrics.Port = 9300

	lc := cfg.LoggerConfig()
	if lc.Level.String() != "debug" {
		t.Errorf("expected debug level, got %v", lc.Level)
	}

	mc := cfg.MetricsManagerConfig()
	if !mc.Enabled || mc.Port != 9300 {
		t.Errorf("unexpected metrics config: %+v", mc)
	}
	if len(mc.PublishDurationBuckets) == 0 {
		t.Error("expected default histogram buckets preserved")
	}
}

func TestSignalOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Signal.LoggingEnabled = true
	cfg.Signal.RequireFreeze = true
	cfg.Signal.ErrorLogLimit = 5

	opts := SignalOptions[string](cfg)
	if len(opts) != 3 {
		t.Fatalf("expected 3 options, got %d", len(opts))
	}
}
