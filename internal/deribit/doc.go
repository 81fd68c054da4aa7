// Package deribit provides the Deribit public API client used by the
// backfill pipeline.
//
// Endpoints:
//   - History API: https://history.deribit.com/api/v2/public
//     (get_last_trades_by_currency_and_time, full history since 2018)
//   - Main API: https://www.deribit.com/api/v2/public
//     (get_instruments, live instrument metadata)
//
// Both APIs are unauthenticated. Responses wrap payloads in a JSON-RPC style
// envelope: {"result": ...} on success, {"error": {...}} on failure.
package deribit
