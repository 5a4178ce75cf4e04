package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
enabled: true
sink_dir: /var/log/agenttrack
compress: true
validation:
  enabled: true
  strict: true
session_id_format: "20060102_150405"
queue_capacity: 500
max_submit_latency: 1ms
rotate_max_bytes: 1048576
metrics: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected config, got nil")
	}
	if !cfg.LoggingEnabled() || !cfg.ValidationEnabled() {
		t.Fatal("expected logging and validation enabled")
	}
	if !cfg.Validation.Strict {
		t.Fatal("expected strict validation")
	}
	if cfg.SinkDir != "/var/log/agenttrack" {
		t.Fatalf("sink_dir: %q", cfg.SinkDir)
	}
	if cfg.QueueCapacity != 500 {
		t.Fatalf("queue_capacity: %d", cfg.QueueCapacity)
	}
	if time.Duration(cfg.MaxSubmitLatency) != time.Millisecond {
		t.Fatalf("max_submit_latency: %s", cfg.MaxSubmitLatency)
	}
	if cfg.RotateMaxBytes != 1<<20 {
		t.Fatalf("rotate_max_bytes: %d", cfg.RotateMaxBytes)
	}
}

func TestUnsetTogglesDefaultToEnabled(t *testing.T) {
	path := writeConfig(t, `sink_dir: /tmp/tracks`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.LoggingEnabled() {
		t.Fatal("unset enabled should default to true")
	}
	if !cfg.ValidationEnabled() {
		t.Fatal("unset validation.enabled should default to true")
	}
	if cfg.Validation.Strict {
		t.Fatal("strict should default to false")
	}
}

func TestExplicitDisable(t *testing.T) {
	path := writeConfig(t, `
enabled: false
validation:
  enabled: false
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LoggingEnabled() {
		t.Fatal("expected logging disabled")
	}
	if cfg.ValidationEnabled() {
		t.Fatal("expected validation disabled")
	}
}

func TestMissingFileReturnsNilConfig(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg != nil {
		t.Fatalf("expected nil config, got %+v", cfg)
	}
	if !cfg.LoggingEnabled() {
		t.Fatal("nil config should report logging enabled")
	}
}

func TestRejectsNegativeValues(t *testing.T) {
	for _, body := range []string{
		"queue_capacity: -1",
		"rotate_max_bytes: -5",
		"max_submit_latency: -2ms",
	} {
		path := writeConfig(t, body)
		if _, err := Load(path); err == nil {
			t.Fatalf("expected error for %q", body)
		}
	}
}

func TestRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "enabled: [unclosed")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
