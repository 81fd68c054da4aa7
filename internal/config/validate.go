package config

import (
	"errors"
	"fmt"

	"github.com/quantlake/deribit-data/internal/deribit"
)

// Validate checks the configuration for errors that would only surface at
// runtime. Call after applyDefaults.
func (c *Config) Validate() error {
	var errs []error

	if c.API.HistoryURL == "" {
		errs = append(errs, errors.New("api.history_url is required"))
	}
	if c.API.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("api.max_retries must be at least 1, got %d", c.API.MaxRetries))
	}

	if c.ClickHouse.Host == "" {
		errs = append(errs, errors.New("clickhouse.host is required"))
	}
	if c.ClickHouse.Database == "" {
		errs = append(errs, errors.New("clickhouse.database is required"))
	}

	if c.Backfill.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("backfill.batch_size must be positive, got %d", c.Backfill.BatchSize))
	}
	if c.Backfill.PageCount < 1 || c.Backfill.PageCount > deribit.MaxPageCount {
		errs = append(errs, fmt.Errorf("backfill.page_count must be in [1, %d], got %d",
			deribit.MaxPageCount, c.Backfill.PageCount))
	}
	if c.Backfill.MaxRetainedRows < 1 {
		errs = append(errs, fmt.Errorf("backfill.max_retained_rows must be positive, got %d", c.Backfill.MaxRetainedRows))
	}
	if c.Backfill.GapThresholdMS < 0 {
		errs = append(errs, fmt.Errorf("backfill.gap_threshold_ms must not be negative, got %d", c.Backfill.GapThresholdMS))
	}

	if c.Checkpoints.Dir == "" {
		errs = append(errs, errors.New("checkpoints.dir is required"))
	}

	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		errs = append(errs, fmt.Errorf("metrics.port must be a valid port, got %d", c.Metrics.Port))
	}

	if c.Quality.Interval < 0 {
		errs = append(errs, fmt.Errorf("quality.interval must not be negative, got %s", c.Quality.Interval))
	}
	for _, u := range c.Quality.Underlyings {
		if u != "BTC" && u != "ETH" {
			errs = append(errs, fmt.Errorf("quality.underlyings: unsupported underlying %q", u))
		}
	}

	return errors.Join(errs...)
}
