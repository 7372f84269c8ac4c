package usage

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidRecord is returned for records missing required fields.
var ErrInvalidRecord = errors.New("invalid usage record")

// Store persists usage records and daily summaries.
//
// Records are append-only; summaries are upserted by their key. Dates are
// always UTC calendar dates (see DateOf).
type Store interface {
	// AppendRecord persists a usage record.
	AppendRecord(ctx context.Context, record *Record) error

	// RecordsForDay returns all records whose timestamp falls on the given
	// UTC calendar date.
	RecordsForDay(ctx context.Context, date time.Time) ([]*Record, error)

	// EarliestRecordDate returns the date of the oldest record. The bool is
	// false when the store holds no records.
	EarliestRecordDate(ctx context.Context) (time.Time, bool, error)

	// Summary returns the summary for a key, or nil when none is stored.
	Summary(ctx context.Context, key SummaryKey) (*DailySummary, error)

	// SaveSummary upserts a summary, replacing any previous row with the
	// same key.
	SaveSummary(ctx context.Context, summary *DailySummary) error

	// SummariesInRange returns an account's summaries with from <= date <= to,
	// ordered by date. An empty accountID returns all accounts.
	SummariesInRange(ctx context.Context, accountID string, from, to time.Time) ([]*DailySummary, error)

	// Watermark returns the last date through which aggregation has run.
	// The bool is false when aggregation has never run.
	Watermark(ctx context.Context) (time.Time, bool, error)

	// SetWatermark records the last aggregated date.
	SetWatermark(ctx context.Context, date time.Time) error

	// Close releases any resources held by the store.
	Close() error
}
