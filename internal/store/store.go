// Package store is the write and read gateway for the options trades table.
//
// Inserts go over the native protocol as prepared batches carrying an
// insert_deduplication_token, so a replayed batch is dropped server-side
// instead of creating duplicate rows. Reads apply FINAL so callers only see
// rows after the replacing merge has collapsed duplicates.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/quantlake/deribit-data/internal/model"
)

// DefaultTable is the fully qualified trades table.
const DefaultTable = "deribit.options_trades"

// StorageError wraps a failed storage operation. Storage failures are never
// retried here: the caller's checkpoint stays at its pre-failure state, so a
// resumed run re-submits exactly the failing batch under the same token.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Store executes inserts and queries against the trades table.
type Store struct {
	conn   driver.Conn
	table  string
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithTable overrides the target table.
func WithTable(table string) Option {
	return func(s *Store) { s.table = table }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New creates a Store over an open connection.
func New(conn driver.Conn, opts ...Option) *Store {
	s := &Store{
		conn:   conn,
		table:  DefaultTable,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InsertBatch writes rows as one prepared batch tagged with the given
// deduplication token. Column order matches the table definition.
func (s *Store) InsertBatch(ctx context.Context, rows []model.TradeRow, token string) error {
	if len(rows) == 0 {
		return nil
	}

	ctx = clickhouse.Context(ctx, clickhouse.WithSettings(clickhouse.Settings{
		"insert_deduplicate":         1,
		"insert_deduplication_token": token,
	}))

	batch, err := s.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s", s.table))
	if err != nil {
		return &StorageError{Op: "prepare batch", Err: err}
	}

	for _, r := range rows {
		if err := batch.Append(
			r.TradeID,
			r.InstrumentName,
			r.Timestamp,
			r.Price,
			r.Amount,
			r.Direction,
			r.IV,
			r.IndexPrice,
			r.MarkPrice,
			r.Underlying,
			r.Expiry,
			r.Strike,
			r.OptionType,
		); err != nil {
			return &StorageError{Op: "append row", Err: err}
		}
	}

	if err := batch.Send(); err != nil {
		return &StorageError{Op: "send batch", Err: err}
	}

	s.logger.Debug("batch inserted",
		"table", s.table,
		"rows", len(rows),
		"token", token,
	)
	return nil
}

// TradeQuery selects trades on the read path. At least one of Underlying,
// Start, or End must be set so a query never scans the whole table by
// accident.
type TradeQuery struct {
	Underlying string
	Start      time.Time
	End        time.Time
	Limit      int
}

func (q TradeQuery) validate() error {
	if q.Underlying == "" && q.Start.IsZero() && q.End.IsZero() {
		return fmt.Errorf("trade query: at least one of underlying, start, end required")
	}
	if !q.Start.IsZero() && !q.End.IsZero() && q.End.Before(q.Start) {
		return fmt.Errorf("trade query: end %s before start %s", q.End, q.Start)
	}
	if q.Limit < 0 {
		return fmt.Errorf("trade query: negative limit %d", q.Limit)
	}
	return nil
}

// FetchTrades reads deduplicated trades matching the query, newest first.
func (s *Store) FetchTrades(ctx context.Context, q TradeQuery) ([]model.TradeRow, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT trade_id, instrument_name, timestamp, price, amount, direction, iv, index_price, mark_price, underlying, expiry, strike, option_type FROM %s FINAL WHERE 1=1", s.table)
	var args []any
	if q.Underlying != "" {
		query += " AND underlying = ?"
		args = append(args, q.Underlying)
	}
	if !q.Start.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, q.Start)
	}
	if !q.End.IsZero() {
		query += " AND timestamp <= ?"
		args = append(args, q.End)
	}
	query += " ORDER BY timestamp DESC"
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.Limit)
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, &StorageError{Op: "query trades", Err: err}
	}
	defer rows.Close()

	var out []model.TradeRow
	for rows.Next() {
		var r model.TradeRow
		if err := rows.Scan(
			&r.TradeID,
			&r.InstrumentName,
			&r.Timestamp,
			&r.Price,
			&r.Amount,
			&r.Direction,
			&r.IV,
			&r.IndexPrice,
			&r.MarkPrice,
			&r.Underlying,
			&r.Expiry,
			&r.Strike,
			&r.OptionType,
		); err != nil {
			return nil, &StorageError{Op: "scan trade", Err: err}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "iterate trades", Err: err}
	}
	return out, nil
}

// UniqueTradeCount counts distinct trade IDs in the table, optionally
// filtered by underlying.
func (s *Store) UniqueTradeCount(ctx context.Context, underlying string) (uint64, error) {
	query := fmt.Sprintf("SELECT uniqExact(trade_id) FROM %s", s.table)
	var args []any
	if underlying != "" {
		query += " WHERE underlying = ?"
		args = append(args, underlying)
	}

	var count uint64
	if err := s.conn.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, &StorageError{Op: "count trades", Err: err}
	}
	return count, nil
}

// Optimize forces the replacing merge so FINAL-free readers also see
// deduplicated rows. Expensive; intended for operator use, not the hot path.
func (s *Store) Optimize(ctx context.Context) error {
	if err := s.conn.Exec(ctx, optimizeStatement(s.table)); err != nil {
		return &StorageError{Op: "optimize", Err: err}
	}
	return nil
}

// optimizeStatement builds the merge-forcing DDL. DEDUPLICATE also drops
// fully identical rows that slipped past the token path.
func optimizeStatement(table string) string {
	return fmt.Sprintf("OPTIMIZE TABLE %s FINAL DEDUPLICATE", table)
}
