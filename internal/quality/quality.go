// Package quality computes server-side data-quality metrics over the trades
// table: row and unique-trade counts, null rates for optionally populated
// columns, ingestion rate, and hour-scale gaps in the stored history. All
// aggregation runs in ClickHouse so only the summary crosses the wire.
package quality

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Metrics is the table-wide quality summary.
type Metrics struct {
	TotalRows        uint64
	UniqueTrades     uint64
	Earliest         time.Time
	Latest           time.Time
	DateSpanDays     int64
	NullIVCount      uint64
	NullIndexCount   uint64
	AvgTradesPerHour float64

	// Derived client-side
	DedupRate     float64
	NullIVRate    float64
	NullIndexRate float64
}

// Gap is one hole in the stored history wider than the analysis threshold.
type Gap struct {
	Start time.Time
	End   time.Time
	Hours int64
}

// Coverage summarizes stored data for one underlying.
type Coverage struct {
	Underlying        string
	TradeCount        uint64
	UniqueInstruments uint64
	Earliest          time.Time
	Latest            time.Time
	NullIVRate        float64
	NullIndexRate     float64
}

// Checker runs the quality queries against one table.
type Checker struct {
	conn  driver.Conn
	table string
}

// NewChecker creates a Checker for the fully qualified table name.
func NewChecker(conn driver.Conn, table string) *Checker {
	return &Checker{conn: conn, table: table}
}

// QualityMetrics computes the table-wide summary. An empty table is an
// error: every caller needs the distinction between "no data" and "bad
// data" surfaced, not a zero-filled struct.
func (c *Checker) QualityMetrics(ctx context.Context) (*Metrics, error) {
	query := fmt.Sprintf(`
SELECT
    count() AS total_rows,
    uniqExact(trade_id) AS unique_trades,
    min(timestamp) AS earliest,
    max(timestamp) AS latest,
    dateDiff('day', min(timestamp), max(timestamp)) AS date_span_days,
    countIf(iv IS NULL OR iv = 0) AS null_iv_count,
    countIf(index_price IS NULL OR index_price = 0) AS null_index_count,
    if(
        dateDiff('hour', min(timestamp), max(timestamp)) > 0,
        toFloat64(count()) / dateDiff('hour', min(timestamp), max(timestamp)),
        toFloat64(count())
    ) AS avg_trades_per_hour
FROM %s`, c.table)

	var m Metrics
	if err := c.conn.QueryRow(ctx, query).Scan(
		&m.TotalRows,
		&m.UniqueTrades,
		&m.Earliest,
		&m.Latest,
		&m.DateSpanDays,
		&m.NullIVCount,
		&m.NullIndexCount,
		&m.AvgTradesPerHour,
	); err != nil {
		return nil, fmt.Errorf("quality metrics: %w", err)
	}
	if m.TotalRows == 0 {
		return nil, fmt.Errorf("quality metrics: no data in %s", c.table)
	}

	total := float64(m.TotalRows)
	m.DedupRate = float64(m.UniqueTrades) / total
	m.NullIVRate = float64(m.NullIVCount) / total
	m.NullIndexRate = float64(m.NullIndexCount) / total
	return &m, nil
}

// GapAnalysis finds up to 100 holes wider than the threshold, widest first.
func (c *Checker) GapAnalysis(ctx context.Context, threshold time.Duration) ([]Gap, error) {
	thresholdHours := int64(threshold / time.Hour)
	if thresholdHours < 1 {
		thresholdHours = 1
	}

	query := fmt.Sprintf(`
WITH sorted AS (
    SELECT
        timestamp,
        leadInFrame(timestamp) OVER (
            ORDER BY timestamp ROWS BETWEEN CURRENT ROW AND 1 FOLLOWING
        ) AS next_ts
    FROM %s
)
SELECT
    timestamp AS gap_start,
    next_ts AS gap_end,
    dateDiff('hour', timestamp, next_ts) AS gap_hours
FROM sorted
WHERE next_ts IS NOT NULL
  AND dateDiff('hour', timestamp, next_ts) > %d
ORDER BY gap_hours DESC
LIMIT 100`, c.table, thresholdHours)

	rows, err := c.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("gap analysis: %w", err)
	}
	defer rows.Close()

	var gaps []Gap
	for rows.Next() {
		var g Gap
		if err := rows.Scan(&g.Start, &g.End, &g.Hours); err != nil {
			return nil, fmt.Errorf("gap analysis scan: %w", err)
		}
		gaps = append(gaps, g)
	}
	return gaps, rows.Err()
}

// CoverageStats summarizes data for one underlying.
func (c *Checker) CoverageStats(ctx context.Context, underlying string) (*Coverage, error) {
	query := fmt.Sprintf(`
SELECT
    underlying,
    count() AS trade_count,
    uniqExact(instrument_name) AS unique_instruments,
    min(timestamp) AS earliest,
    max(timestamp) AS latest,
    countIf(iv IS NULL OR iv = 0) / count() AS null_iv_rate,
    countIf(index_price IS NULL OR index_price = 0) / count() AS null_index_rate
FROM %s
WHERE underlying = ?
GROUP BY underlying`, c.table)

	var cov Coverage
	if err := c.conn.QueryRow(ctx, query, underlying).Scan(
		&cov.Underlying,
		&cov.TradeCount,
		&cov.UniqueInstruments,
		&cov.Earliest,
		&cov.Latest,
		&cov.NullIVRate,
		&cov.NullIndexRate,
	); err != nil {
		return nil, fmt.Errorf("coverage stats %s: %w", underlying, err)
	}
	return &cov, nil
}
