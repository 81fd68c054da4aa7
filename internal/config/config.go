// Package config loads and validates the collector configuration from YAML.
// Credentials come in through ${VAR} expansion, optionally seeded from a
// dotenv file, so config files never carry secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/quantlake/deribit-data/internal/clickhouse"
)

// Config is the root configuration for a collector instance.
type Config struct {
	Instance    InstanceConfig    `yaml:"instance"`
	API         APIConfig         `yaml:"api"`
	ClickHouse  clickhouse.Config `yaml:"clickhouse"`
	Backfill    BackfillConfig    `yaml:"backfill"`
	Checkpoints CheckpointConfig  `yaml:"checkpoints"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Quality     QualityConfig     `yaml:"quality"`
}

// InstanceConfig identifies this collector.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// APIConfig holds Deribit API settings.
type APIConfig struct {
	HistoryURL   string        `yaml:"history_url"`
	MainURL      string        `yaml:"main_url"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// BackfillConfig holds collection loop settings.
type BackfillConfig struct {
	BatchSize       int   `yaml:"batch_size"`
	PageCount       int   `yaml:"page_count"`
	MaxRetainedRows int   `yaml:"max_retained_rows"`
	GapThresholdMS  int64 `yaml:"gap_threshold_ms"`
}

// CheckpointConfig holds checkpoint persistence settings.
type CheckpointConfig struct {
	Dir string `yaml:"dir"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// QualityConfig holds the data-quality monitor settings.
type QualityConfig struct {
	Interval     time.Duration `yaml:"interval"`
	WindowDays   int           `yaml:"window_days"`
	GapThreshold time.Duration `yaml:"gap_threshold"`
	Underlyings  []string      `yaml:"underlyings"`
}

// LoadDotenv seeds process environment from a dotenv file if it exists.
// Variables already set in the environment win over file values.
func LoadDotenv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads config and applies default values.
func LoadWithDefaults(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadAndValidate loads config, applies defaults, and validates.
func LoadAndValidate(path string) (*Config, error) {
	cfg, err := LoadWithDefaults(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}
