package model

import "time"

// -----------------------------------------------------------------------------
// Persisted Types
// -----------------------------------------------------------------------------

// TradeRow is the canonical persisted options trade.
//
// The storage table is a ReplacingMergeTree keyed on trade_id, so re-inserted
// rows eventually collapse to one visible copy. The four derived fields are a
// pure function of InstrumentName and are never independently mutated.
type TradeRow struct {
	TradeID        string    // Exchange-assigned trade identifier (dedup key)
	InstrumentName string    // Full instrument name (e.g. "BTC-27DEC24-100000-C")
	Timestamp      time.Time // Event time, millisecond precision
	Price          float64   // Trade price in underlying units
	Amount         float64   // Trade size
	Direction      string    // "buy" or "sell"
	IV             *float64  // Implied volatility (percent), absent for some trades
	IndexPrice     *float64  // Index price at trade time
	MarkPrice      *float64  // Mark price at trade time

	// Derived from InstrumentName
	Underlying string    // "BTC" or "ETH"
	Expiry     time.Time // Option expiry date (midnight UTC)
	Strike     float64   // Strike price
	OptionType string    // "C" or "P"
}

// -----------------------------------------------------------------------------
// Backfill Progress Types
// -----------------------------------------------------------------------------

// Cursor is the mutable progress pointer for one backfill job. It walks
// backward from the job's range end toward its range start and is owned
// exclusively by the orchestrator for the duration of a run.
type Cursor struct {
	CurrentEndTS       int64 // Pagination boundary (ms since epoch), walks backward
	BatchNumber        int64 // Monotonically increasing, starts at 0
	TotalCollected     int64 // Rows accumulated so far
	PaginationWarnings int64 // Continuity warnings observed so far
}

// Checkpoint is the durable record of an in-progress backfill, serialized to
// one JSON file per job. LastEndTS is the cursor value to resume from; it
// always sits strictly behind the last durably stored row.
type Checkpoint struct {
	LastEndTS          int64     `json:"last_end_ts"`
	BatchNumber        int64     `json:"batch_number"`
	TotalCollected     int64     `json:"total_collected"`
	PaginationWarnings int64     `json:"pagination_warnings"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// CursorFromCheckpoint restores a cursor from a persisted checkpoint.
func CursorFromCheckpoint(cp Checkpoint) Cursor {
	return Cursor{
		CurrentEndTS:       cp.LastEndTS,
		BatchNumber:        cp.BatchNumber,
		TotalCollected:     cp.TotalCollected,
		PaginationWarnings: cp.PaginationWarnings,
	}
}

// ToCheckpoint snapshots the cursor for persistence.
func (c Cursor) ToCheckpoint(now time.Time) Checkpoint {
	return Checkpoint{
		LastEndTS:          c.CurrentEndTS,
		BatchNumber:        c.BatchNumber,
		TotalCollected:     c.TotalCollected,
		PaginationWarnings: c.PaginationWarnings,
		UpdatedAt:          now,
	}
}

// Stats summarizes a completed (or failed) backfill run.
type Stats struct {
	RunID              string // Random identifier for log correlation
	TotalCollected     int64  // Rows accumulated across all batches
	BatchCount         int64  // Insert batches submitted
	PaginationWarnings int64  // Continuity warnings observed
	RowsSkipped        int64  // Rows dropped due to unparseable instrument names
	Resumed            bool   // Whether the run restored a checkpoint
}
