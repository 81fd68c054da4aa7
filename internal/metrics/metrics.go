// Package metrics exposes Prometheus instrumentation for the collector.
// Metrics hang off an explicit Collector rather than package-level globals
// so tests and multiple jobs can use isolated registries.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "deribit_backfill"

// Collector bundles the backfill job metrics.
type Collector struct {
	registry *prometheus.Registry

	PagesFetched        *prometheus.CounterVec
	TradesCollected     *prometheus.CounterVec
	RowsSkipped         *prometheus.CounterVec
	BatchesInserted     *prometheus.CounterVec
	InsertDuration      *prometheus.HistogramVec
	ContinuityWarnings  *prometheus.CounterVec
	FetchErrors         *prometheus.CounterVec
	CheckpointWrites    *prometheus.CounterVec
	CursorEndTimestamp  *prometheus.GaugeVec
	QualityNullIVRate   *prometheus.GaugeVec
	QualityTradesPerHr  *prometheus.GaugeVec
	QualityGapsDetected *prometheus.GaugeVec
}

// NewCollector builds the metric set on a fresh registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		PagesFetched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "Pages fetched from the trade history API",
		}, []string{"asset"}),

		TradesCollected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_collected_total",
			Help:      "Trades accumulated across all pages",
		}, []string{"asset"}),

		RowsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_skipped_total",
			Help:      "Rows dropped due to unparseable instrument names",
		}, []string{"asset"}),

		BatchesInserted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_inserted_total",
			Help:      "Insert batches submitted to storage",
		}, []string{"asset"}),

		InsertDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "insert_duration_seconds",
			Help:      "Storage insert latency",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"asset"}),

		ContinuityWarnings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "continuity_warnings_total",
			Help:      "Pagination continuity warnings (gaps and duplicates)",
		}, []string{"asset", "kind"}),

		FetchErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Failed page fetches after retries were exhausted",
		}, []string{"asset"}),

		CheckpointWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkpoint_writes_total",
			Help:      "Checkpoint files written",
		}, []string{"asset"}),

		CursorEndTimestamp: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cursor_end_timestamp_ms",
			Help:      "Current pagination boundary in milliseconds since epoch",
		}, []string{"asset"}),

		QualityNullIVRate: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "quality_null_iv_rate",
			Help:      "Fraction of stored rows with a null implied volatility",
		}, []string{"underlying"}),

		QualityTradesPerHr: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "quality_trades_per_hour",
			Help:      "Average stored trades per hour over the sampled window",
		}, []string{"underlying"}),

		QualityGapsDetected: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "quality_gaps_detected",
			Help:      "Hour-scale ingestion gaps found by the quality monitor",
		}, []string{"underlying"}),
	}
}

// Handler serves the collector's registry in Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
