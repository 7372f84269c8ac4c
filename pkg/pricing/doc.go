// Package pricing provides the per-model token price table used for request
// cost estimation.
//
// The table is reference data: lookups never mutate it, and the only writer
// is the optional hot-reload Watcher. An unknown model has cost 0, which
// callers must treat as "cost unknown" rather than "free".
package pricing
