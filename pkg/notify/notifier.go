package notify

import (
	"context"
	"log/slog"

	"arbiter-ai/arbiter/pkg/limits/spend"
)

// ThresholdCrossing is the event emitted when an account's running spend
// crosses a configured limit.
type ThresholdCrossing struct {
	// AccountID is the account whose limit was crossed.
	AccountID string

	// Period is the spending window whose limit was crossed.
	Period spend.Period

	// Limit is the configured limit for the period in USD.
	Limit float64

	// CurrentSpend is the running total after the crossing increment.
	CurrentSpend float64

	// Emails are the configured notification recipients.
	Emails []string
}

// Notifier delivers threshold-crossing notifications.
//
// Delivery is a best-effort side channel: a failing notifier must never
// roll back or block spend recording. Callers log and drop errors; a
// production implementation retries independently.
type Notifier interface {
	NotifyThresholdCrossing(ctx context.Context, crossing ThresholdCrossing) error
}

// LogNotifier writes crossings to the structured log. It is the default
// notifier when no delivery service is wired in.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{
		logger: slog.Default().With("component", "notify"),
	}
}

// NotifyThresholdCrossing logs the crossing.
func (n *LogNotifier) NotifyThresholdCrossing(_ context.Context, crossing ThresholdCrossing) error {
	n.logger.Warn("spending limit crossed",
		"account_id", crossing.AccountID,
		"period", string(crossing.Period),
		"limit", crossing.Limit,
		"current_spend", crossing.CurrentSpend,
		"recipients", len(crossing.Emails),
	)
	return nil
}

// Func adapts a function to the Notifier interface, mainly for tests.
type Func func(ctx context.Context, crossing ThresholdCrossing) error

// NotifyThresholdCrossing calls the wrapped function.
func (f Func) NotifyThresholdCrossing(ctx context.Context, crossing ThresholdCrossing) error {
	return f(ctx, crossing)
}
