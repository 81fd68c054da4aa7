// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Pages fetched, trades collected, and rows skipped per asset
//   - Insert batch counts and latencies
//   - Pagination continuity warnings by kind
//   - Cursor position for backfill progress tracking
//   - Data quality gauges (null IV rate, trades/hour, detected gaps)
//
// Collectors register on a per-instance registry, never the global one,
// so concurrent jobs and tests do not share state.
package metrics
