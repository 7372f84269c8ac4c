// Package usage persists per-request usage records and the daily summaries
// rolled up from them.
//
// A Record captures one completed request: account, provider, model, actual
// token counts, and cost. Records are append-only. DailySummary rows are
// keyed by (account, provider, model, UTC date) and written by the
// aggregation job in the aggregate subpackage; the watermark tracks the last
// date that job has processed.
//
// Two Store implementations are provided: a SQLite store for production and
// an in-memory store for tests.
package usage
