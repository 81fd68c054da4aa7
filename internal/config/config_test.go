package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: backfill-01
api:
  history_url: https://history.example.com/api/v2/public
clickhouse:
  host: ch.internal
  port: 9000
  database: deribit
  username: collector
  password: hunter2
backfill:
  batch_size: 5000
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "backfill-01" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "backfill-01")
	}
	if cfg.API.HistoryURL != "https://history.example.com/api/v2/public" {
		t.Errorf("API.HistoryURL = %q", cfg.API.HistoryURL)
	}
	if cfg.ClickHouse.Host != "ch.internal" {
		t.Errorf("ClickHouse.Host = %q, want ch.internal", cfg.ClickHouse.Host)
	}
	if cfg.Backfill.BatchSize != 5000 {
		t.Errorf("Backfill.BatchSize = %d, want 5000", cfg.Backfill.BatchSize)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_CH_PASSWORD", "secret123")

	yaml := `
clickhouse:
  host: localhost
  password: ${TEST_CH_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ClickHouse.Password != "secret123" {
		t.Errorf("ClickHouse.Password = %q, want %q", cfg.ClickHouse.Password, "secret123")
	}
}

func TestLoadDotenv(t *testing.T) {
	t.Run("seeds environment from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(path, []byte("DOTENV_CH_USER=collector\n"), 0o644); err != nil {
			t.Fatalf("write env file: %v", err)
		}
		t.Setenv("DOTENV_CH_USER", "") // register cleanup
		os.Unsetenv("DOTENV_CH_USER")

		if err := LoadDotenv(path); err != nil {
			t.Fatalf("LoadDotenv: %v", err)
		}
		if got := os.Getenv("DOTENV_CH_USER"); got != "collector" {
			t.Errorf("DOTENV_CH_USER = %q, want collector", got)
		}
	})

	t.Run("missing file is not an error", func(t *testing.T) {
		if err := LoadDotenv(filepath.Join(t.TempDir(), "absent.env")); err != nil {
			t.Errorf("LoadDotenv on missing file: %v", err)
		}
	})
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
clickhouse:
  host: localhost
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.API.Timeout != DefaultAPITimeout {
		t.Errorf("API.Timeout = %v, want %v", cfg.API.Timeout, DefaultAPITimeout)
	}
	if cfg.API.MaxRetries != DefaultMaxRetries {
		t.Errorf("API.MaxRetries = %d, want %d", cfg.API.MaxRetries, DefaultMaxRetries)
	}
	if cfg.Backfill.BatchSize != 10000 {
		t.Errorf("Backfill.BatchSize = %d, want 10000", cfg.Backfill.BatchSize)
	}
	if cfg.Backfill.PageCount != 1000 {
		t.Errorf("Backfill.PageCount = %d, want 1000", cfg.Backfill.PageCount)
	}
	if cfg.ClickHouse.Port != 9000 {
		t.Errorf("ClickHouse.Port = %d, want 9000", cfg.ClickHouse.Port)
	}
	if cfg.Checkpoints.Dir != DefaultCheckpointDir {
		t.Errorf("Checkpoints.Dir = %q, want %q", cfg.Checkpoints.Dir, DefaultCheckpointDir)
	}
	if cfg.Quality.Interval != 15*time.Minute {
		t.Errorf("Quality.Interval = %v, want 15m", cfg.Quality.Interval)
	}
	if len(cfg.Quality.Underlyings) != 2 {
		t.Errorf("Quality.Underlyings = %v, want [BTC ETH]", cfg.Quality.Underlyings)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.ClickHouse.Host = "localhost"
		cfg.applyDefaults()
		return cfg
	}

	t.Run("valid config passes", func(t *testing.T) {
		if err := valid().Validate(); err != nil {
			t.Errorf("Validate: %v", err)
		}
	})

	t.Run("missing clickhouse host", func(t *testing.T) {
		cfg := valid()
		cfg.ClickHouse.Host = ""
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), "clickhouse.host") {
			t.Errorf("Validate = %v, want clickhouse.host error", err)
		}
	})

	t.Run("page count out of range", func(t *testing.T) {
		cfg := valid()
		cfg.Backfill.PageCount = 2000
		if err := cfg.Validate(); err == nil {
			t.Error("Validate accepted page_count 2000")
		}
	})

	t.Run("unsupported underlying", func(t *testing.T) {
		cfg := valid()
		cfg.Quality.Underlyings = []string{"BTC", "DOGE"}
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), "DOGE") {
			t.Errorf("Validate = %v, want DOGE error", err)
		}
	})

	t.Run("multiple errors joined", func(t *testing.T) {
		cfg := valid()
		cfg.ClickHouse.Host = ""
		cfg.Backfill.BatchSize = -1
		err := cfg.Validate()
		if err == nil {
			t.Fatal("Validate accepted invalid config")
		}
		msg := err.Error()
		if !strings.Contains(msg, "clickhouse.host") || !strings.Contains(msg, "batch_size") {
			t.Errorf("Validate = %v, want both errors reported", err)
		}
	})
}
