package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quantlake/deribit-data/internal/backfill"
	"github.com/quantlake/deribit-data/internal/checkpoint"
	"github.com/quantlake/deribit-data/internal/clickhouse"
	"github.com/quantlake/deribit-data/internal/config"
	"github.com/quantlake/deribit-data/internal/deribit"
	"github.com/quantlake/deribit-data/internal/metrics"
	"github.com/quantlake/deribit-data/internal/model"
	"github.com/quantlake/deribit-data/internal/schema"
	"github.com/quantlake/deribit-data/internal/store"
	"github.com/quantlake/deribit-data/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/backfill.local.yaml", "path to config file")
	envPath := flag.String("env", ".env", "path to dotenv file (optional)")
	schemaPath := flag.String("schema", "schema/clickhouse/options_trades.yaml", "path to table schema")
	currency := flag.String("currency", "BTC", "currency to backfill (BTC or ETH)")
	startStr := flag.String("start", "", "range start date (YYYY-MM-DD, inclusive)")
	endStr := flag.String("end", "", "range end date (YYYY-MM-DD, inclusive)")
	monthStr := flag.String("month", "", "calendar month to backfill (YYYY-MM), overrides start/end")
	resume := flag.Bool("resume", false, "resume from an existing checkpoint")
	dryRun := flag.Bool("dry-run", false, "collect and validate but do not insert")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting backfill",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	if err := config.LoadDotenv(*envPath); err != nil {
		logger.Error("failed to load env file", "error", err)
		os.Exit(1)
	}

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"history_url", cfg.API.HistoryURL,
	)

	job := backfill.Config{
		Asset:           *currency,
		BatchSize:       cfg.Backfill.BatchSize,
		PageCount:       cfg.Backfill.PageCount,
		MaxRetainedRows: cfg.Backfill.MaxRetainedRows,
		GapThresholdMS:  cfg.Backfill.GapThresholdMS,
		Resume:          *resume,
	}
	if err := resolveRange(&job, *startStr, *endStr, *monthStr); err != nil {
		logger.Error("invalid date range", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tableSchema, err := schema.Load(*schemaPath)
	if err != nil {
		logger.Error("failed to load table schema", "error", err)
		os.Exit(1)
	}

	logger.Info("connecting to clickhouse",
		"addr", cfg.ClickHouse.Addr(),
		"database", cfg.ClickHouse.Database,
	)
	conn, err := clickhouse.Open(ctx, cfg.ClickHouse)
	if err != nil {
		logger.Error("failed to connect to clickhouse", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	if err := conn.Exec(ctx, tableSchema.DatabaseDDL()); err != nil {
		logger.Error("failed to create database", "error", err)
		os.Exit(1)
	}
	if err := conn.Exec(ctx, tableSchema.DDL()); err != nil {
		logger.Error("failed to create table", "error", err)
		os.Exit(1)
	}

	if ok, diffs, err := schema.Validate(ctx, conn, tableSchema); err != nil {
		logger.Error("schema introspection failed", "error", err)
		os.Exit(1)
	} else if !ok {
		for _, d := range diffs {
			logger.Warn("schema drift", "diff", d.String())
		}
	}

	client := deribit.NewClient(
		deribit.WithHistoryURL(cfg.API.HistoryURL),
		deribit.WithMainURL(cfg.API.MainURL),
		deribit.WithTimeout(cfg.API.Timeout),
		deribit.WithRetries(cfg.API.MaxRetries, cfg.API.RetryBackoff),
		deribit.WithLogger(logger),
	)

	checkpoints, err := checkpoint.NewStore(cfg.Checkpoints.Dir)
	if err != nil {
		logger.Error("failed to open checkpoint store", "error", err)
		os.Exit(1)
	}

	collector := metrics.NewCollector()
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, collector.Handler())
		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler: mux,
		}
		go func() {
			logger.Info("starting metrics server", "port", cfg.Metrics.Port, "path", cfg.Metrics.Path)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	var inserter backfill.Inserter = store.New(conn, store.WithLogger(logger))
	var cpStore backfill.CheckpointStore = checkpoints
	if *dryRun {
		logger.Info("dry run: rows will be collected but not inserted")
		inserter = nopInserter{logger: logger}
		cpStore = nopCheckpoints{}
	}

	orch := backfill.NewOrchestrator(client, inserter, cpStore,
		backfill.WithLogger(logger),
		backfill.WithMetrics(collector),
	)

	result, err := orch.Run(ctx, job)
	if err != nil {
		logger.Error("backfill failed", "error", err)
		os.Exit(1)
	}

	logger.Info("backfill complete",
		"run_id", result.Stats.RunID,
		"total_collected", result.Stats.TotalCollected,
		"batches", result.Stats.BatchCount,
		"rows_skipped", result.Stats.RowsSkipped,
		"pagination_warnings", result.Stats.PaginationWarnings,
		"resumed", result.Stats.Resumed,
	)
}

// resolveRange fills the job's time range from the date flags. Month takes
// precedence; otherwise start/end default to the orchestrator's defaults
// when omitted.
func resolveRange(job *backfill.Config, startStr, endStr, monthStr string) error {
	if monthStr != "" {
		month, err := time.Parse("2006-01", monthStr)
		if err != nil {
			return fmt.Errorf("parse month %q: %w", monthStr, err)
		}
		job.RangeStartMS = month.UnixMilli()
		job.RangeEndMS = month.AddDate(0, 1, 0).Add(-time.Millisecond).UnixMilli()
		return nil
	}
	if startStr != "" {
		start, err := time.Parse("2006-01-02", startStr)
		if err != nil {
			return fmt.Errorf("parse start date %q: %w", startStr, err)
		}
		job.RangeStartMS = start.UnixMilli()
	}
	if endStr != "" {
		end, err := time.Parse("2006-01-02", endStr)
		if err != nil {
			return fmt.Errorf("parse end date %q: %w", endStr, err)
		}
		// Inclusive through the end of the named day.
		job.RangeEndMS = end.AddDate(0, 0, 1).Add(-time.Millisecond).UnixMilli()
	}
	return nil
}

// nopInserter counts what an insert would have written.
type nopInserter struct {
	logger *slog.Logger
}

func (n nopInserter) InsertBatch(_ context.Context, rows []model.TradeRow, token string) error {
	n.logger.Info("dry run: skipping insert", "rows", len(rows), "token", token)
	return nil
}

// nopCheckpoints keeps dry runs from recording progress they did not make.
type nopCheckpoints struct{}

func (nopCheckpoints) Load(string) (*model.Checkpoint, error) { return nil, nil }
func (nopCheckpoints) Save(string, model.Checkpoint) error    { return nil }
func (nopCheckpoints) Clear(string) error                     { return nil }
