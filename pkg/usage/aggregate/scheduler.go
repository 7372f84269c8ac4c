package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the aggregator on a cron schedule, typically shortly after
// midnight UTC so yesterday's records roll up once the day is complete.
type Scheduler struct {
	aggregator *Aggregator
	schedule   string
	cron       *cron.Cron
	mu         sync.Mutex
	logger     *slog.Logger
	running    bool
}

// NewScheduler creates a scheduler that runs the aggregator on the given
// cron expression.
//
// Common expressions:
//   - "15 0 * * *"  - Daily at 00:15
//   - "0 */6 * * *" - Every 6 hours
//
// An empty schedule disables the scheduler.
func NewScheduler(aggregator *Aggregator, schedule string) *Scheduler {
	return &Scheduler{
		aggregator: aggregator,
		schedule:   schedule,
		cron:       cron.New(),
		logger:     slog.Default().With("component", "usage.scheduler"),
	}
}

// Start begins scheduled aggregation. If no schedule is configured, Start
// does nothing.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("aggregation schedule not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}

	_, err := s.cron.AddFunc(s.schedule, func() {
		s.runAggregation(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule aggregation: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("aggregation scheduler started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// runAggregation executes one aggregation cycle.
func (s *Scheduler) runAggregation(ctx context.Context) {
	s.logger.Info("starting scheduled usage aggregation")

	if err := s.aggregator.AggregatePending(ctx); err != nil {
		s.logger.Error("scheduled aggregation failed", "error", err)
		return
	}

	s.logger.Debug("scheduled aggregation completed")
}

// Stop stops the scheduler and waits for any running job to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		ctx := s.cron.Stop()
		<-ctx.Done() // Wait for running jobs to finish
		s.running = false
		s.logger.Info("aggregation scheduler stopped")
	}
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled aggregation time.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return nil
	}

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}

	next := entries[0].Next
	return &next
}
