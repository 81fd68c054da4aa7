package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/quantlake/deribit-data/internal/billing"
	"github.com/quantlake/deribit-data/internal/clickhouse"
	"github.com/quantlake/deribit-data/internal/config"
	"github.com/quantlake/deribit-data/internal/deribit"
	"github.com/quantlake/deribit-data/internal/features"
	"github.com/quantlake/deribit-data/internal/quality"
	"github.com/quantlake/deribit-data/internal/schema"
	"github.com/quantlake/deribit-data/internal/store"
	"github.com/quantlake/deribit-data/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/backfill.local.yaml", "path to config file")
	envPath := flag.String("env", ".env", "path to dotenv file (optional)")
	schemaPath := flag.String("schema", "schema/clickhouse/options_trades.yaml", "path to table schema")
	report := flag.Bool("report", false, "print a data quality report after connectivity checks")
	analytics := flag.Bool("analytics", false, "print volatility analytics for recent trades")
	underlying := flag.String("underlying", "BTC", "underlying for the analytics report")
	watch := flag.Bool("watch", false, "keep running and sample quality metrics periodically")
	costDays := flag.Int("costs", 0, "print a ClickHouse Cloud cost summary for the trailing N days")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting probe", "version", version.Version, "config", *configPath)

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

	failed := false
	check := func(name string, err error) {
		if err != nil {
			failed = true
			fmt.Printf("FAIL  %-28s %v\n", name, err)
			return
		}
		fmt.Printf("OK    %s\n", name)
	}

	// History API reachability.
	client := deribit.NewClient(
		deribit.WithHistoryURL(cfg.API.HistoryURL),
		deribit.WithMainURL(cfg.API.MainURL),
		deribit.WithTimeout(cfg.API.Timeout),
		deribit.WithRetries(cfg.API.MaxRetries, cfg.API.RetryBackoff),
		deribit.WithLogger(logger),
	)
	_, apiErr := client.GetInstruments(ctx, "BTC", "option", false)
	check("deribit api", apiErr)

	// Checkpoint directory writability.
	check("checkpoint dir", checkDirWritable(cfg.Checkpoints.Dir))

	// ClickHouse connectivity and table shape.
	conn, chErr := clickhouse.Open(ctx, cfg.ClickHouse)
	check("clickhouse ping", chErr)

	if chErr == nil {
		defer conn.Close()

		tableSchema, err := schema.Load(*schemaPath)
		if err != nil {
			check("table schema", err)
		} else {
			ok, diffs, err := schema.Validate(ctx, conn, tableSchema)
			switch {
			case err != nil:
				check("table "+tableSchema.FullTableName(), err)
			case !ok:
				failed = true
				fmt.Printf("FAIL  table %s: %d schema diffs\n", tableSchema.FullTableName(), len(diffs))
				for _, d := range diffs {
					fmt.Printf("      %s\n", d.String())
				}
			default:
				check("table "+tableSchema.FullTableName(), nil)
			}
		}

		if *report {
			printQualityReport(ctx, conn, cfg)
		}

		if *analytics {
			printAnalytics(ctx, conn, *underlying)
		}

		if *watch && !failed {
			runMonitor(ctx, conn, cfg, logger)
		}
	}

	if *costDays > 0 {
		printCosts(ctx, *costDays)
	}

	if failed {
		os.Exit(1)
	}
}

func checkDirWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	probe := filepath.Join(dir, ".probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return err
	}
	return os.Remove(probe)
}

func printQualityReport(ctx context.Context, conn driver.Conn, cfg *config.Config) {
	checker := quality.NewChecker(conn, store.DefaultTable)

	m, err := checker.QualityMetrics(ctx)
	if err != nil {
		fmt.Printf("quality metrics unavailable: %v\n", err)
		return
	}
	fmt.Printf("\nData quality (%s)\n", store.DefaultTable)
	fmt.Printf("  rows            %d (unique %d, dedup rate %.4f)\n", m.TotalRows, m.UniqueTrades, m.DedupRate)
	fmt.Printf("  span            %s .. %s (%d days)\n",
		m.Earliest.Format("2006-01-02"), m.Latest.Format("2006-01-02"), m.DateSpanDays)
	fmt.Printf("  null iv rate    %.4f\n", m.NullIVRate)
	fmt.Printf("  null index rate %.4f\n", m.NullIndexRate)
	fmt.Printf("  trades per hour %.1f\n", m.AvgTradesPerHour)

	gaps, err := checker.GapAnalysis(ctx, cfg.Quality.GapThreshold)
	if err != nil {
		fmt.Printf("gap analysis unavailable: %v\n", err)
		return
	}
	fmt.Printf("  gaps > %s: %d\n", cfg.Quality.GapThreshold, len(gaps))
	for i, g := range gaps {
		if i >= 10 {
			fmt.Printf("  ... %d more\n", len(gaps)-10)
			break
		}
		fmt.Printf("    %s -> %s (%dh)\n",
			g.Start.Format(time.RFC3339), g.End.Format(time.RFC3339), g.Hours)
	}

	for _, u := range cfg.Quality.Underlyings {
		cov, err := checker.CoverageStats(ctx, u)
		if err != nil {
			fmt.Printf("  coverage %s unavailable: %v\n", u, err)
			continue
		}
		fmt.Printf("  coverage %s: %d trades, %d instruments, %s .. %s\n",
			u, cov.TradeCount, cov.UniqueInstruments,
			cov.Earliest.Format("2006-01-02"), cov.Latest.Format("2006-01-02"))
	}
}

// printCosts fetches the cloud billing breakdown. Credentials come from
// the environment; absence is reported, not fatal.
func printCosts(ctx context.Context, days int) {
	client, err := billing.NewClient()
	if err != nil {
		fmt.Printf("costs unavailable: %v\n", err)
		return
	}
	daily, err := client.DailyBreakdown(ctx, days)
	if err != nil {
		fmt.Printf("costs unavailable: %v\n", err)
		return
	}
	s, err := billing.Summarize(daily)
	if err != nil {
		fmt.Printf("costs unavailable: %v\n", err)
		return
	}
	fmt.Printf("\nClickHouse Cloud costs (last %d days)\n", s.Days)
	fmt.Printf("  compute   %s\n", s.TotalCompute.StringFixed(2))
	fmt.Printf("  storage   %s\n", s.TotalStorage.StringFixed(2))
	fmt.Printf("  egress    %s\n", s.TotalEgress.StringFixed(2))
	fmt.Printf("  total     %s (daily avg %s, monthly run rate %s)\n",
		s.Total.StringFixed(2), s.DailyAverage.StringFixed(2), s.MonthlyProjected.StringFixed(2))
	fmt.Printf("  peak day  %s (%s)\n",
		s.PeakDay.PeriodStart.Format("2006-01-02"), s.PeakDay.Total.StringFixed(2))
}

// printAnalytics computes the volatility feature set over the lookback
// window of stored trades.
func printAnalytics(ctx context.Context, conn driver.Conn, underlying string) {
	fcfg := features.DefaultConfig()
	s := store.New(conn)

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -fcfg.IVLookbackDays)
	rows, err := s.FetchTrades(ctx, store.TradeQuery{
		Underlying: underlying,
		Start:      start,
		End:        end,
	})
	if err != nil {
		fmt.Printf("analytics unavailable: %v\n", err)
		return
	}
	if len(rows) == 0 {
		fmt.Printf("analytics: no %s trades in the last %d days\n", underlying, fcfg.IVLookbackDays)
		return
	}

	fmt.Printf("\nAnalytics (%s, last %d days, %d trades)\n", underlying, fcfg.IVLookbackDays, len(rows))

	bars, err := features.ResampleIV(rows, fcfg.ResampleEvery)
	if err != nil {
		fmt.Printf("  iv resample: %v\n", err)
		return
	}
	closes := features.CloseSeries(bars)
	fmt.Printf("  iv bars         %d at %s, last close %.2f\n", len(bars), fcfg.ResampleEvery, closes[len(closes)-1])

	// Window in bars over the lookback period.
	window := int(time.Duration(fcfg.IVLookbackDays) * 24 * time.Hour / fcfg.ResampleEvery)
	pct := features.IVPercentile(closes, window, fcfg.MinObservations)
	rank := features.IVRank(closes, window, fcfg.MinObservations)
	fmt.Printf("  iv percentile   %.1f, iv rank %.1f\n", pct[len(pct)-1], rank[len(rank)-1])

	if pcr, err := features.PCRAggregate(rows, 24*time.Hour, features.PCRByVolume); err == nil {
		last := pcr[len(pcr)-1]
		fmt.Printf("  put/call ratio  %.2f (puts %.1f, calls %.1f)\n", last.Ratio, last.Puts, last.Calls)
	}

	if slope, err := features.TermStructureSlope(rows, fcfg, 24*time.Hour); err == nil {
		last := slope[len(slope)-1]
		fmt.Printf("  term structure  near %.1f far %.1f slope %.1f\n", last.NearIV, last.FarIV, last.Slope)
	}

	if fitted, err := features.FitEGARCH(closes); err == nil {
		forecast, ferr := fitted.Forecast(1)
		if ferr == nil {
			fmt.Printf("  egarch          beta %.3f gamma %.3f, next-bar vol %.2f\n",
				fitted.Params.Beta, fitted.Params.Gamma, forecast[0])
		}
	} else {
		fmt.Printf("  egarch          %v\n", err)
	}
}

func runMonitor(ctx context.Context, conn driver.Conn, cfg *config.Config, logger *slog.Logger) {
	checker := quality.NewChecker(conn, store.DefaultTable)
	monitor := quality.NewMonitor(quality.MonitorConfig{
		Interval:     cfg.Quality.Interval,
		GapThreshold: cfg.Quality.GapThreshold,
		Underlyings:  cfg.Quality.Underlyings,
	}, checker, nil, logger)

	if err := monitor.Start(ctx); err != nil {
		logger.Error("failed to start quality monitor", "error", err)
		return
	}
	logger.Info("quality monitor running", "interval", cfg.Quality.Interval)

	<-ctx.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	monitor.Stop(stopCtx)
}
