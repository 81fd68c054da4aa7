package config

import (
	"time"

	"github.com/quantlake/deribit-data/internal/backfill"
	"github.com/quantlake/deribit-data/internal/continuity"
	"github.com/quantlake/deribit-data/internal/deribit"
)

// Default values for optional configuration fields.
const (
	DefaultAPITimeout      = 30 * time.Second
	DefaultMaxRetries      = 3
	DefaultRetryBackoff    = 1 * time.Second
	DefaultCheckpointDir   = "checkpoints"
	DefaultMetricsPort     = 9090
	DefaultMetricsPath     = "/metrics"
	DefaultQualityInterval = 15 * time.Minute
	DefaultQualityWindow   = 7
	DefaultQualityGap      = 1 * time.Hour
)

func (c *Config) applyDefaults() {
	// API defaults
	if c.API.HistoryURL == "" {
		c.API.HistoryURL = deribit.DefaultHistoryURL
	}
	if c.API.MainURL == "" {
		c.API.MainURL = deribit.DefaultMainURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}
	if c.API.RetryBackoff == 0 {
		c.API.RetryBackoff = DefaultRetryBackoff
	}

	// Storage defaults
	c.ClickHouse.ApplyDefaults()

	// Backfill defaults
	if c.Backfill.BatchSize == 0 {
		c.Backfill.BatchSize = backfill.DefaultBatchSize
	}
	if c.Backfill.PageCount == 0 {
		c.Backfill.PageCount = backfill.DefaultPageCount
	}
	if c.Backfill.MaxRetainedRows == 0 {
		c.Backfill.MaxRetainedRows = backfill.DefaultMaxRetainedRows
	}
	if c.Backfill.GapThresholdMS == 0 {
		c.Backfill.GapThresholdMS = continuity.DefaultGapThresholdMS
	}

	// Checkpoint defaults
	if c.Checkpoints.Dir == "" {
		c.Checkpoints.Dir = DefaultCheckpointDir
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	// Quality monitor defaults
	if c.Quality.Interval == 0 {
		c.Quality.Interval = DefaultQualityInterval
	}
	if c.Quality.WindowDays == 0 {
		c.Quality.WindowDays = DefaultQualityWindow
	}
	if c.Quality.GapThreshold == 0 {
		c.Quality.GapThreshold = DefaultQualityGap
	}
	if len(c.Quality.Underlyings) == 0 {
		c.Quality.Underlyings = []string{"BTC", "ETH"}
	}
}
