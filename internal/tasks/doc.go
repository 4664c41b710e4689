// Package tasks runs long favorites operations with real-time progress reporting.
//
// # Core Operations
//
// [FavoritesEngine.BulkExport] fetches full details for every favorite and writes one file per
// movie plus an export_manifest.json summary:
//   - a producer rate-limits detail requests with [rate.Limiter]
//   - a bounded worker pool fetches details and writes files
//   - partial failures are recorded per movie and never abort the run
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
package tasks
