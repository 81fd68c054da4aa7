package quality

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/quantlake/deribit-data/internal/metrics"
)

// Source provides the quality readings the monitor samples. *Checker
// satisfies it for coverage; GapAnalysis runs table-wide.
type Source interface {
	CoverageStats(ctx context.Context, underlying string) (*Coverage, error)
	GapAnalysis(ctx context.Context, threshold time.Duration) ([]Gap, error)
}

// MonitorConfig holds the sampling loop settings.
type MonitorConfig struct {
	Interval     time.Duration // sampling interval (default: 15m)
	GapThreshold time.Duration // minimum gap worth reporting (default: 1h)
	Underlyings  []string      // underlyings to sample coverage for
}

// DefaultMonitorConfig returns sensible defaults.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Interval:     15 * time.Minute,
		GapThreshold: time.Hour,
		Underlyings:  []string{"BTC", "ETH"},
	}
}

// Monitor periodically samples quality metrics, logs regressions, and
// publishes gauges. It never mutates the table.
type Monitor struct {
	cfg       MonitorConfig
	source    Source
	collector *metrics.Collector
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMonitor creates a Monitor. The collector may be nil.
func NewMonitor(cfg MonitorConfig, source Source, collector *metrics.Collector, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval == 0 {
		cfg.Interval = DefaultMonitorConfig().Interval
	}
	if cfg.GapThreshold == 0 {
		cfg.GapThreshold = DefaultMonitorConfig().GapThreshold
	}
	return &Monitor{
		cfg:       cfg,
		source:    source,
		collector: collector,
		logger:    logger,
	}
}

// Start begins the sampling loop.
func (m *Monitor) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)

	m.wg.Add(1)
	go m.run()

	m.logger.Info("quality monitor started",
		"interval", m.cfg.Interval,
		"gap_threshold", m.cfg.GapThreshold,
		"underlyings", m.cfg.Underlyings,
	)
	return nil
}

// Stop gracefully shuts down the monitor.
func (m *Monitor) Stop(ctx context.Context) error {
	if m.cancel != nil {
		m.cancel()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("quality monitor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Monitor) run() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	// Sample immediately on start.
	m.sample()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.sample()
		}
	}
}

func (m *Monitor) sample() {
	for _, u := range m.cfg.Underlyings {
		cov, err := m.source.CoverageStats(m.ctx, u)
		if err != nil {
			m.logger.Warn("coverage sample failed", "underlying", u, "error", err)
			continue
		}
		m.logger.Info("coverage sampled",
			"underlying", u,
			"trades", cov.TradeCount,
			"instruments", cov.UniqueInstruments,
			"null_iv_rate", cov.NullIVRate,
		)
		if m.collector != nil {
			m.collector.QualityNullIVRate.WithLabelValues(u).Set(cov.NullIVRate)
			hours := cov.Latest.Sub(cov.Earliest).Hours()
			if hours > 0 {
				m.collector.QualityTradesPerHr.WithLabelValues(u).Set(float64(cov.TradeCount) / hours)
			}
		}
	}

	gaps, err := m.source.GapAnalysis(m.ctx, m.cfg.GapThreshold)
	if err != nil {
		m.logger.Warn("gap analysis failed", "error", err)
		return
	}
	for _, g := range gaps {
		m.logger.Warn("ingestion gap",
			"start", g.Start,
			"end", g.End,
			"hours", g.Hours,
		)
	}
	if m.collector != nil {
		m.collector.QualityGapsDetected.WithLabelValues("all").Set(float64(len(gaps)))
	}
}
