// Package config loads operator configuration for the tracking pipeline.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable consulted when no explicit config
// path is given.
const EnvVar = "AGENTTRACK_CONFIG"

// Config holds the recognized pipeline options. Zero values mean "use the
// built-in default"; pointer fields distinguish "unset" from "explicitly
// false".
type Config struct {
	Enabled          *bool            `yaml:"enabled"`
	SinkDir          string           `yaml:"sink_dir"`
	Compress         bool             `yaml:"compress"`
	Validation       ValidationConfig `yaml:"validation"`
	SessionIDFormat  string           `yaml:"session_id_format"`
	QueueCapacity    int              `yaml:"queue_capacity"`
	MaxSubmitLatency Duration         `yaml:"max_submit_latency"`
	RotateMaxBytes   int64            `yaml:"rotate_max_bytes"`
	Metrics          bool             `yaml:"metrics"`
}

// Duration parses yaml values like "250ms" or "2s", which yaml.v3 does
// not decode into a bare time.Duration.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"250ms\"")
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) String() string { return time.Duration(d).String() }

// ValidationConfig controls schema validation of candidate events.
type ValidationConfig struct {
	Enabled *bool `yaml:"enabled"`
	Strict  bool  `yaml:"strict"`
}

// LoggingEnabled reports whether the pipeline should record at all.
// Unset means enabled.
func (c *Config) LoggingEnabled() bool {
	return c == nil || c.Enabled == nil || *c.Enabled
}

// ValidationEnabled reports whether candidate events are schema-checked.
// Unset means enabled.
func (c *Config) ValidationEnabled() bool {
	return c == nil || c.Validation.Enabled == nil || *c.Validation.Enabled
}

// Load reads config from the given path. If path is empty, tries the
// AGENTTRACK_CONFIG env var, then ~/.agenttrack/config.yaml. Returns nil
// config (not error) if no file exists.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, nil
		}
		path = filepath.Join(home, ".agenttrack", "config.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read tracking config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse tracking config: %w", err)
	}

	if cfg.QueueCapacity < 0 {
		return nil, fmt.Errorf("queue_capacity must not be negative, got %d", cfg.QueueCapacity)
	}
	if cfg.RotateMaxBytes < 0 {
		return nil, fmt.Errorf("rotate_max_bytes must not be negative, got %d", cfg.RotateMaxBytes)
	}
	if cfg.MaxSubmitLatency < 0 {
		return nil, fmt.Errorf("max_submit_latency must not be negative, got %s", cfg.MaxSubmitLatency)
	}

	return &cfg, nil
}
