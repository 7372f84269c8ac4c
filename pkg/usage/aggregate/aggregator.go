package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"arbiter-ai/arbiter/pkg/usage"
)

// Aggregator rolls per-request usage records up into daily summaries.
//
// Aggregation runs a day at a time, oldest first, and never touches the
// current day: records for an in-progress day are only rolled up once the
// day is over. The store's watermark records the last completed date so a
// restart resumes where the previous run stopped.
//
// # Re-aggregation
//
// By default a re-run over an already-aggregated date ADDS the day's totals
// to the existing summary rather than replacing it, so running the same day
// twice doubles its counts. This matches the long-standing accounting
// behavior that downstream billing reconciliation compensates for. Set
// ReplaceExisting to recompute summaries from scratch instead, which makes
// aggregation idempotent.
type Aggregator struct {
	store  usage.Store
	logger *slog.Logger

	replaceExisting bool

	// now is the clock source, replaceable in tests.
	now func() time.Time
}

// Config contains configuration for the aggregator.
type Config struct {
	// Store is the usage store to read records from and write summaries to.
	Store usage.Store

	// ReplaceExisting makes re-aggregation recompute summaries from scratch
	// instead of adding onto existing rows.
	ReplaceExisting bool
}

// NewAggregator creates an aggregator over the given store.
func NewAggregator(config Config) (*Aggregator, error) {
	if config.Store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}

	return &Aggregator{
		store:           config.Store,
		logger:          slog.Default().With("component", "usage.aggregator"),
		replaceExisting: config.ReplaceExisting,
		now:             time.Now,
	}, nil
}

// AggregateForDate rolls up all records on the given UTC date into daily
// summaries, one per (account, provider, model). It returns the number of
// summary rows written.
func (a *Aggregator) AggregateForDate(ctx context.Context, date time.Time) (int, error) {
	day := usage.DateOf(date)

	records, err := a.store.RecordsForDay(ctx, day)
	if err != nil {
		return 0, fmt.Errorf("failed to load records for %s: %w", day.Format("2006-01-02"), err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	groups := make(map[usage.SummaryKey]*usage.DailySummary)
	for _, record := range records {
		key := usage.SummaryKey{
			AccountID: record.AccountID,
			Provider:  record.Provider,
			Model:     record.Model,
			Date:      day,
		}

		summary, ok := groups[key]
		if !ok {
			summary = &usage.DailySummary{
				AccountID: key.AccountID,
				Provider:  key.Provider,
				Model:     key.Model,
				Date:      day,
			}
			groups[key] = summary
		}

		summary.RequestCount++
		summary.InputTokens += int64(record.InputTokens)
		summary.OutputTokens += int64(record.OutputTokens)
		summary.TotalTokens += int64(record.InputTokens + record.OutputTokens)
		summary.TotalCost += record.Cost
	}

	for key, summary := range groups {
		if !a.replaceExisting {
			existing, err := a.store.Summary(ctx, key)
			if err != nil {
				return 0, fmt.Errorf("failed to load existing summary: %w", err)
			}
			if existing != nil {
				summary.RequestCount += existing.RequestCount
				summary.InputTokens += existing.InputTokens
				summary.OutputTokens += existing.OutputTokens
				summary.TotalTokens += existing.TotalTokens
				summary.TotalCost += existing.TotalCost
			}
		}

		if err := a.store.SaveSummary(ctx, summary); err != nil {
			return 0, fmt.Errorf("failed to save summary: %w", err)
		}
	}

	a.logger.Info("aggregated usage for date",
		"date", day.Format("2006-01-02"),
		"records", len(records),
		"summaries", len(groups),
	)

	return len(groups), nil
}

// AggregatePending aggregates every completed day that has not been rolled
// up yet, from the day after the watermark (or the earliest record when no
// watermark exists) through yesterday. The current day is never aggregated.
//
// The watermark advances after each completed day, so a failure mid-run
// resumes at the failed day.
func (a *Aggregator) AggregatePending(ctx context.Context) error {
	today := usage.DateOf(a.now())

	start, ok, err := a.startDate(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	for day := start; day.Before(today); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return err
		}

		if _, err := a.AggregateForDate(ctx, day); err != nil {
			return err
		}
		if err := a.store.SetWatermark(ctx, day); err != nil {
			return fmt.Errorf("failed to advance watermark: %w", err)
		}
	}

	return nil
}

// startDate returns the first date AggregatePending should process. The
// bool is false when there is nothing to aggregate.
func (a *Aggregator) startDate(ctx context.Context) (time.Time, bool, error) {
	mark, ok, err := a.store.Watermark(ctx)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read watermark: %w", err)
	}
	if ok {
		return mark.AddDate(0, 0, 1), true, nil
	}

	earliest, ok, err := a.store.EarliestRecordDate(ctx)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to find earliest record: %w", err)
	}
	return earliest, ok, nil
}
