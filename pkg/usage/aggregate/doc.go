// Package aggregate rolls per-request usage records up into daily
// summaries and answers stats queries over them.
//
// The Aggregator processes completed days oldest-first, tracking progress
// through the store's watermark, and the Scheduler runs it on a cron
// schedule. Stats queries (per-account totals, top models, usage trends)
// read only the summary rows, never the raw records.
package aggregate
