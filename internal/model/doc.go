// Package model defines shared data types for the Deribit options pipeline.
//
// Conventions:
//   - Cursor/checkpoint timestamps: int64 milliseconds since Unix epoch
//     (the resolution of the Deribit history API)
//   - Event times on persisted rows: time.Time, millisecond precision
//   - Nullable exchange fields (iv, index_price, mark_price): pointers
package model
