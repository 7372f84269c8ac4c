package limits

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"arbiter-ai/arbiter/pkg/limits/spend"
	"arbiter-ai/arbiter/pkg/limits/storage"
	"arbiter-ai/arbiter/pkg/notify"
	"arbiter-ai/arbiter/pkg/telemetry/metrics"
)

// Manager coordinates spending and rate tracking across accounts.
//
// The Manager is the primary interface for budget checks and usage
// recording. It owns one spend.Tracker per configured account, creating
// trackers lazily and restoring their persisted counters on first use.
// Accounts with no limit configuration pass every check.
//
// # Example
//
//	manager := limits.NewManager(limits.Config{
//	    Accounts: map[string]spend.Config{
//	        "team-research": {
//	            DailyLimit: 50.00,
//	            Enabled:    true,
//	        },
//	    },
//	})
//
//	result := manager.CheckBudget(ctx, "team-research", estimatedCost)
//	if !result.Allowed {
//	    // Reject the request
//	}
//
//	// After the request completes:
//	_ = manager.RecordSpending(ctx, "team-research", actualCost)
type Manager struct {
	trackers map[string]*spend.Tracker
	configs  map[string]spend.Config

	storage  storage.Backend
	notifier notify.Notifier
	metrics  *metrics.Collector
	logger   *slog.Logger

	// persistWG tracks in-flight async persistence so Close can drain it.
	persistWG sync.WaitGroup

	mu sync.Mutex
}

// Config contains configuration for the limits manager.
type Config struct {
	// Accounts maps account IDs to their limit configurations.
	Accounts map[string]spend.Config

	// Storage persists tracker counters across restarts.
	// Defaults to an in-memory backend.
	Storage storage.Backend

	// Notifier receives threshold crossing events.
	// Defaults to a log-based notifier.
	Notifier notify.Notifier

	// Metrics counts threshold crossings. Optional.
	Metrics *metrics.Collector
}

// NewManager creates a new limits manager with the given configuration.
func NewManager(config Config) *Manager {
	if config.Storage == nil {
		config.Storage = storage.NewMemoryBackend()
	}
	if config.Notifier == nil {
		config.Notifier = notify.NewLogNotifier()
	}

	configs := make(map[string]spend.Config, len(config.Accounts))
	for accountID, accountConfig := range config.Accounts {
		configs[accountID] = accountConfig
	}

	return &Manager{
		trackers: make(map[string]*spend.Tracker),
		configs:  configs,
		storage:  config.Storage,
		notifier: config.Notifier,
		metrics:  config.Metrics,
		logger:   slog.Default().With("component", "limits.manager"),
	}
}

// SetLimit creates or replaces the limit configuration for an account.
//
// An existing tracker keeps its accumulated counters; only the limits
// change. The configuration is validated before being applied.
func (m *Manager) SetLimit(accountID string, config spend.Config) error {
	if accountID == "" {
		return fmt.Errorf("account id cannot be empty")
	}

	tracker, err := spend.NewTracker(accountID, config)
	if err != nil {
		return fmt.Errorf("invalid limit configuration for %s: %w", accountID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.trackers[accountID]; ok {
		tracker.Restore(existing.Snapshot())
	}
	m.configs[accountID] = config
	m.trackers[accountID] = tracker

	return nil
}

// CheckBudget performs the pre-flight check for a request with the given
// estimated cost. It checks rate limits first, then whether the estimate
// would push any spending window past its cap.
//
// An account with no limit configuration is always allowed.
func (m *Manager) CheckBudget(ctx context.Context, accountID string, estimatedCost float64) *CheckResult {
	tracker := m.trackerFor(ctx, accountID)
	if tracker == nil {
		return &CheckResult{Allowed: true}
	}

	if tracker.WouldBeRateLimited() {
		return &CheckResult{
			Allowed:     false,
			Reason:      ReasonRateLimited,
			RateLimited: true,
		}
	}

	if tracker.WouldExceed(estimatedCost) {
		return &CheckResult{
			Allowed:         false,
			Reason:          ReasonBudgetExceeded,
			RemainingBudget: tracker.RemainingBudget(),
		}
	}

	return &CheckResult{
		Allowed:         true,
		RemainingBudget: tracker.RemainingBudget(),
	}
}

// RecordRequest counts one request against the account's rate windows.
// Call it when a request is admitted, before execution.
func (m *Manager) RecordRequest(ctx context.Context, accountID string) {
	tracker := m.trackerFor(ctx, accountID)
	if tracker == nil {
		return
	}
	tracker.AddRequest()
}

// RecordSpending records a completed request's actual cost against the
// account's spending windows.
//
// Threshold crossings produced by the increment are dispatched to the
// notifier and counters are persisted to storage, both asynchronously and
// best-effort: a failed notification or save is logged, never propagated,
// and the in-memory counters remain the source of truth.
func (m *Manager) RecordSpending(ctx context.Context, accountID string, cost float64) error {
	tracker := m.trackerFor(ctx, accountID)
	if tracker == nil {
		return nil
	}

	crossings := tracker.AddSpending(cost)

	for _, crossing := range crossings {
		m.dispatchCrossing(accountID, tracker.Config(), crossing)
	}

	m.persistAsync(accountID, tracker)

	return nil
}

// RemainingBudget returns the most restrictive remaining budget across the
// account's spending windows, or spend.Unlimited when the account has no
// limits configured.
func (m *Manager) RemainingBudget(ctx context.Context, accountID string) float64 {
	tracker := m.trackerFor(ctx, accountID)
	if tracker == nil {
		return spend.Unlimited
	}
	return tracker.RemainingBudget()
}

// Tracker returns the account's tracker, or nil when the account has no
// limit configuration.
func (m *Manager) Tracker(ctx context.Context, accountID string) *spend.Tracker {
	return m.trackerFor(ctx, accountID)
}

// Accounts returns the IDs of all configured accounts.
func (m *Manager) Accounts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	accounts := make([]string, 0, len(m.configs))
	for accountID := range m.configs {
		accounts = append(accounts, accountID)
	}
	return accounts
}

// Flush synchronously persists all live tracker counters.
func (m *Manager) Flush(ctx context.Context) error {
	m.mu.Lock()
	trackers := make([]*spend.Tracker, 0, len(m.trackers))
	for _, tracker := range m.trackers {
		trackers = append(trackers, tracker)
	}
	m.mu.Unlock()

	for _, tracker := range trackers {
		state := &storage.TrackerState{
			AccountID: tracker.AccountID(),
			Counters:  tracker.Snapshot(),
		}
		if err := m.storage.Save(ctx, state); err != nil {
			return fmt.Errorf("failed to persist state for %s: %w", tracker.AccountID(), err)
		}
	}
	return nil
}

// Close drains in-flight persistence, flushes all counters, and closes the
// storage backend.
func (m *Manager) Close() error {
	m.persistWG.Wait()

	if err := m.Flush(context.Background()); err != nil {
		m.logger.Error("Failed to flush tracker state on close", "error", err)
	}

	return m.storage.Close()
}

// trackerFor returns the tracker for an account, creating it from the
// registered configuration and restoring persisted counters on first use.
// Returns nil when the account has no configuration.
func (m *Manager) trackerFor(ctx context.Context, accountID string) *spend.Tracker {
	m.mu.Lock()
	defer m.mu.Unlock()

	if tracker, ok := m.trackers[accountID]; ok {
		return tracker
	}

	config, ok := m.configs[accountID]
	if !ok {
		return nil
	}

	tracker, err := spend.NewTracker(accountID, config)
	if err != nil {
		m.logger.Error("Invalid limit configuration",
			"account", accountID,
			"error", err)
		return nil
	}

	if persisted, err := m.storage.Load(ctx, accountID); err != nil {
		m.logger.Warn("Failed to load persisted counters",
			"account", accountID,
			"error", err)
	} else if persisted != nil {
		tracker.Restore(persisted.Counters)
	}

	m.trackers[accountID] = tracker
	return tracker
}

// dispatchCrossing sends a threshold crossing to the notifier without
// blocking the caller.
//
// Delivery happens only for accounts with notification emails configured;
// a crossing without recipients is still logged and counted in metrics.
func (m *Manager) dispatchCrossing(accountID string, config spend.Config, crossing spend.Crossing) {
	if m.metrics != nil {
		m.metrics.RecordThresholdCrossing(accountID, string(crossing.Period))
	}

	if len(config.NotificationEmails) == 0 {
		m.logger.Warn("Spending limit crossed",
			"account", accountID,
			"period", string(crossing.Period),
			"limit", crossing.Limit,
			"current_spend", crossing.CurrentSpend)
		return
	}

	event := notify.ThresholdCrossing{
		AccountID:    accountID,
		Period:       crossing.Period,
		Limit:        crossing.Limit,
		CurrentSpend: crossing.CurrentSpend,
		Emails:       config.NotificationEmails,
	}

	m.persistWG.Add(1)
	go func() {
		defer m.persistWG.Done()
		if err := m.notifier.NotifyThresholdCrossing(context.Background(), event); err != nil {
			m.logger.Error("Threshold notification failed",
				"account", accountID,
				"period", crossing.Period,
				"error", err)
		}
	}()
}

// persistAsync saves the tracker's counters without blocking the caller.
func (m *Manager) persistAsync(accountID string, tracker *spend.Tracker) {
	state := &storage.TrackerState{
		AccountID: accountID,
		Counters:  tracker.Snapshot(),
	}

	m.persistWG.Add(1)
	go func() {
		defer m.persistWG.Done()
		if err := m.storage.Save(context.Background(), state); err != nil {
			m.logger.Warn("Failed to persist tracker state",
				"account", accountID,
				"error", err)
		}
	}()
}
