// Package backfill drives the historical trade collection loop: fetch a page
// walking backward in time, convert and buffer rows, insert full batches
// under deterministic deduplication tokens, and checkpoint progress after
// every successful insert.
//
// The loop's durability contract is checkpoint-after-insert. A crash between
// an insert and its checkpoint write makes the resumed run re-fetch and
// re-submit the same batch under the same token, which the storage engine
// drops. Progress is therefore never lost and replays are never visible.
package backfill

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/quantlake/deribit-data/internal/checkpoint"
	"github.com/quantlake/deribit-data/internal/continuity"
	"github.com/quantlake/deribit-data/internal/dedup"
	"github.com/quantlake/deribit-data/internal/deribit"
	"github.com/quantlake/deribit-data/internal/metrics"
	"github.com/quantlake/deribit-data/internal/model"
)

// Defaults for the collection loop.
const (
	DefaultBatchSize       = 10000
	DefaultMaxRetainedRows = 100000
	DefaultPageCount       = deribit.MaxPageCount
)

// DefaultRangeStart is the earliest history worth fetching. Deribit options
// trade history is sparse before 2018.
var DefaultRangeStart = time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)

// PageFetcher fetches one page of trades from the upstream history API.
type PageFetcher interface {
	TradesPage(ctx context.Context, opts deribit.TradesPageOptions) ([]deribit.Trade, error)
}

// Inserter writes one batch of rows under a deduplication token.
type Inserter interface {
	InsertBatch(ctx context.Context, rows []model.TradeRow, token string) error
}

// CheckpointStore persists and restores job progress.
type CheckpointStore interface {
	Load(key string) (*model.Checkpoint, error)
	Save(key string, cp model.Checkpoint) error
	Clear(key string) error
}

// Config describes one backfill job. All knobs live here; the orchestrator
// holds no process-wide mutable state.
type Config struct {
	Asset        string // "BTC" or "ETH"
	RangeStartMS int64  // inclusive lower bound, ms since epoch
	RangeEndMS   int64  // inclusive upper bound, ms since epoch

	BatchSize       int   // rows per insert batch
	PageCount       int   // rows requested per API page
	MaxRetainedRows int   // ring capacity when ReturnData is set
	GapThresholdMS  int64 // continuity gap tolerance

	Resume     bool // restore an existing checkpoint if present
	ReturnData bool // retain collected rows for the caller
}

// ApplyDefaults fills zero-valued knobs.
func (c *Config) ApplyDefaults(now time.Time) {
	if c.RangeStartMS == 0 {
		c.RangeStartMS = DefaultRangeStart.UnixMilli()
	}
	if c.RangeEndMS == 0 {
		c.RangeEndMS = now.UnixMilli()
	}
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.PageCount == 0 {
		c.PageCount = DefaultPageCount
	}
	if c.MaxRetainedRows == 0 {
		c.MaxRetainedRows = DefaultMaxRetainedRows
	}
	if c.GapThresholdMS == 0 {
		c.GapThresholdMS = continuity.DefaultGapThresholdMS
	}
}

// Validate rejects configurations the loop cannot run with.
func (c Config) Validate() error {
	if c.Asset != "BTC" && c.Asset != "ETH" {
		return fmt.Errorf("backfill: unsupported asset %q", c.Asset)
	}
	if c.RangeEndMS <= c.RangeStartMS {
		return fmt.Errorf("backfill: range end %d not after start %d", c.RangeEndMS, c.RangeStartMS)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("backfill: batch size %d must be positive", c.BatchSize)
	}
	if c.PageCount < 1 || c.PageCount > deribit.MaxPageCount {
		return fmt.Errorf("backfill: page count %d out of range [1, %d]", c.PageCount, deribit.MaxPageCount)
	}
	return nil
}

// Result is what a finished run hands back.
type Result struct {
	Stats model.Stats
	Rows  []model.TradeRow // retained rows, oldest to newest by collection order; nil unless ReturnData
}

// Orchestrator runs backfill jobs.
type Orchestrator struct {
	fetcher     PageFetcher
	inserter    Inserter
	checkpoints CheckpointStore
	logger      *slog.Logger
	collector   *metrics.Collector
	now         func() time.Time
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(c *metrics.Collector) OrchestratorOption {
	return func(o *Orchestrator) { o.collector = c }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.now = now }
}

// NewOrchestrator wires a fetcher, an inserter, and a checkpoint store.
func NewOrchestrator(fetcher PageFetcher, inserter Inserter, checkpoints CheckpointStore, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		fetcher:     fetcher,
		inserter:    inserter,
		checkpoints: checkpoints,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes one backfill job to completion. On success the job's
// checkpoint is cleared; on any error it is preserved at its last
// post-insert state so an identical invocation with Resume set picks up
// exactly where this one stopped.
func (o *Orchestrator) Run(ctx context.Context, cfg Config) (*Result, error) {
	cfg.ApplyDefaults(o.now())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	key := checkpoint.Key(cfg.Asset, cfg.RangeStartMS, cfg.RangeEndMS)
	stats := model.Stats{RunID: uuid.NewString()}
	logger := o.logger.With("run_id", stats.RunID, "asset", cfg.Asset)

	cursor := model.Cursor{CurrentEndTS: cfg.RangeEndMS}
	if cfg.Resume {
		cp, err := o.checkpoints.Load(key)
		if err != nil {
			return nil, err
		}
		if cp != nil {
			cursor = model.CursorFromCheckpoint(*cp)
			stats.Resumed = true
			logger.Info("resuming from checkpoint",
				"last_end_ts", cp.LastEndTS,
				"batch_number", cp.BatchNumber,
				"total_collected", cp.TotalCollected,
			)
		}
	}

	var retained *ring[model.TradeRow]
	if cfg.ReturnData {
		retained = newRing[model.TradeRow](cfg.MaxRetainedRows)
	}

	validator := continuity.NewValidator(cfg.GapThresholdMS)
	var (
		pending  []model.TradeRow
		prevPage []deribit.Trade
	)

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		cursor.BatchNumber++
		token := dedup.Token(cfg.Asset, cfg.RangeStartMS, cfg.RangeEndMS, cursor.BatchNumber)

		start := o.now()
		if err := o.inserter.InsertBatch(ctx, pending, token); err != nil {
			return err
		}
		if o.collector != nil {
			o.collector.BatchesInserted.WithLabelValues(cfg.Asset).Inc()
			o.collector.InsertDuration.WithLabelValues(cfg.Asset).Observe(o.now().Sub(start).Seconds())
		}
		logger.Info("batch inserted",
			"batch_number", cursor.BatchNumber,
			"rows", len(pending),
			"token", token,
		)
		stats.BatchCount++
		pending = pending[:0]

		if err := o.checkpoints.Save(key, cursor.ToCheckpoint(o.now())); err != nil {
			return err
		}
		if o.collector != nil {
			o.collector.CheckpointWrites.WithLabelValues(cfg.Asset).Inc()
		}
		return nil
	}

	for cursor.CurrentEndTS >= cfg.RangeStartMS {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := o.fetcher.TradesPage(ctx, deribit.TradesPageOptions{
			Currency: cfg.Asset,
			Kind:     "option",
			StartTS:  cfg.RangeStartMS,
			EndTS:    cursor.CurrentEndTS,
			Count:    cfg.PageCount,
		})
		if err != nil {
			if o.collector != nil {
				o.collector.FetchErrors.WithLabelValues(cfg.Asset).Inc()
			}
			return nil, fmt.Errorf("fetch page at end_ts %d: %w", cursor.CurrentEndTS, err)
		}
		if o.collector != nil {
			o.collector.PagesFetched.WithLabelValues(cfg.Asset).Inc()
		}

		if len(page) == 0 {
			break
		}

		if ok, warnings := validator.Validate(prevPage, page); !ok {
			for _, w := range warnings {
				logger.Warn("page continuity", "warning", w)
				if o.collector != nil {
					o.collector.ContinuityWarnings.WithLabelValues(cfg.Asset, warningKind(w)).Inc()
				}
			}
			cursor.PaginationWarnings += int64(len(warnings))
		}
		prevPage = page

		oldest := page[0].Timestamp
		for _, t := range page[1:] {
			if t.Timestamp < oldest {
				oldest = t.Timestamp
			}
		}
		if oldest-1 >= cursor.CurrentEndTS {
			return nil, fmt.Errorf("cursor stalled at end_ts %d (page oldest %d)", cursor.CurrentEndTS, oldest)
		}

		for _, t := range page {
			row, err := ConvertTrade(t)
			if err != nil {
				stats.RowsSkipped++
				if o.collector != nil {
					o.collector.RowsSkipped.WithLabelValues(cfg.Asset).Inc()
				}
				logger.Warn("skipping unparseable trade",
					"trade_id", t.TradeID,
					"instrument", t.InstrumentName,
					"error", err,
				)
				continue
			}
			pending = append(pending, row)
			cursor.TotalCollected++
			if retained != nil {
				retained.push(row)
			}
		}
		if o.collector != nil {
			o.collector.TradesCollected.WithLabelValues(cfg.Asset).Add(float64(len(page)))
			o.collector.CursorEndTimestamp.WithLabelValues(cfg.Asset).Set(float64(cursor.CurrentEndTS))
		}

		cursor.CurrentEndTS = oldest - 1

		if len(pending) >= cfg.BatchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}

	if err := flush(); err != nil {
		return nil, err
	}
	if err := o.checkpoints.Clear(key); err != nil {
		return nil, err
	}

	stats.TotalCollected = cursor.TotalCollected
	stats.PaginationWarnings = cursor.PaginationWarnings
	logger.Info("backfill complete",
		"total_collected", stats.TotalCollected,
		"batches", stats.BatchCount,
		"pagination_warnings", stats.PaginationWarnings,
		"rows_skipped", stats.RowsSkipped,
		"resumed", stats.Resumed,
	)

	res := &Result{Stats: stats}
	if retained != nil {
		res.Rows = retained.snapshot()
	}
	return res, nil
}

// warningKind buckets a continuity warning for the metrics label.
func warningKind(w string) string {
	if len(w) >= 3 && w[:3] == "Gap" {
		return "gap"
	}
	return "duplicate"
}
