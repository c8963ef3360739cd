// Package config handles YAML config file loading for beacond.
package config

import (
	"fmt"
	"time"
)

// Config represents a beacond.yaml configuration file.
// All values are optional and act as defaults for beacond serve flags.
// CLI flags always override config values.
type Config struct {
	Listen   string         `yaml:"listen"`
	Backend  BackendConfig  `yaml:"backend"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Tracking TrackingConfig `yaml:"tracking"`
}

// BackendConfig holds write-backend defaults from the config file.
type BackendConfig struct {
	URL       string   `yaml:"url"`
	Timeout   Duration `yaml:"timeout,omitempty"`
	EntityTTL Duration `yaml:"entity_ttl,omitempty"`
}

// IngestConfig holds ingestion actor defaults from the config file.
type IngestConfig struct {
	Mode      string `yaml:"mode"`
	QueueSize int    `yaml:"queue_size"`
	MaxBatch  int    `yaml:"max_batch"`
	Workers   int    `yaml:"workers"`
}

// TrackingConfig holds enforcement and aggregation defaults.
type TrackingConfig struct {
	SentinelParam            string `yaml:"sentinel_param"`
	DiscardOnMissingSentinel bool   `yaml:"discard_on_missing_sentinel"`
	EventChannel             string `yaml:"event_channel"`
	ErrorChannel             string `yaml:"error_channel"`
	CounterMode              string `yaml:"counter_mode"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Validate checks cross-field constraints that YAML decoding cannot.
func (c *Config) Validate() error {
	switch c.Ingest.Mode {
	case "", "pipelined", "sync":
	default:
		return fmt.Errorf("invalid ingest mode %q", c.Ingest.Mode)
	}
	switch c.Tracking.CounterMode {
	case "", "scalar", "hashfield":
	default:
		return fmt.Errorf("invalid counter mode %q", c.Tracking.CounterMode)
	}
	return nil
}
