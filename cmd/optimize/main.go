package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/quantlake/deribit-data/internal/clickhouse"
	"github.com/quantlake/deribit-data/internal/config"
	"github.com/quantlake/deribit-data/internal/quality"
	"github.com/quantlake/deribit-data/internal/store"
	"github.com/quantlake/deribit-data/internal/version"
)

// Forces ReplacingMergeTree part merges so duplicate trade rows collapse
// immediately instead of at the engine's leisure. Routine operation after
// large backfills; insert dedup tokens make it a backstop, not a repair.
func main() {
	configPath := flag.String("config", "configs/backfill.local.yaml", "path to config file")
	envPath := flag.String("env", ".env", "path to dotenv file (optional)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting optimize", "version", version.Version, "config", *configPath)

	if err := config.LoadDotenv(*envPath); err != nil {
		logger.Error("failed to load env file", "error", err)
		os.Exit(1)
	}
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	conn, err := clickhouse.Open(ctx, cfg.ClickHouse)
	if err != nil {
		logger.Error("failed to connect to clickhouse", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	checker := quality.NewChecker(conn, store.DefaultTable)

	before, err := checker.QualityMetrics(ctx)
	if err != nil {
		logger.Error("failed to read table metrics", "error", err)
		os.Exit(1)
	}
	fmt.Printf("before: %d rows, %d unique trades\n", before.TotalRows, before.UniqueTrades)

	s := store.New(conn, store.WithLogger(logger))
	logger.Info("running optimize", "table", store.DefaultTable)
	if err := s.Optimize(ctx); err != nil {
		logger.Error("optimize failed", "error", err)
		os.Exit(1)
	}

	after, err := checker.QualityMetrics(ctx)
	if err != nil {
		logger.Error("failed to read table metrics", "error", err)
		os.Exit(1)
	}
	fmt.Printf("after:  %d rows, %d unique trades\n", after.TotalRows, after.UniqueTrades)
	fmt.Printf("collapsed %d duplicate rows\n", int64(before.TotalRows)-int64(after.TotalRows))
}
