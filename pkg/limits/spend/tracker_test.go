package spend

import (
	"sync"
	"testing"
	"time"
)

// fakeClock lets tests advance the tracker's clock deterministically.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Wednesday, mid-month, mid-week.
var baseTime = time.Date(2025, time.June, 11, 10, 0, 0, 0, time.UTC)

func newTestTracker(t *testing.T, cfg Config) (*Tracker, *fakeClock) {
	t.Helper()

	tracker, err := NewTracker("acct-1", cfg)
	if err != nil {
		t.Fatalf("NewTracker failed: %v", err)
	}

	clock := newFakeClock(baseTime)
	tracker.now = clock.Now
	return tracker, clock
}

func TestConfigValidate_NoLimits(t *testing.T) {
	cfg := Config{Enabled: true}
	if err := cfg.Validate(); err != ErrNoLimitsConfigured {
		t.Errorf("Expected ErrNoLimitsConfigured, got %v", err)
	}
}

func TestConfigValidate_NegativeLimit(t *testing.T) {
	cfg := Config{DailyLimit: -5, Enabled: true}
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for negative limit")
	}
}

func TestAddSpending_IgnoresNonPositiveCost(t *testing.T) {
	tracker, _ := newTestTracker(t, Config{DailyLimit: 10, Enabled: true})

	tracker.AddSpending(0)
	tracker.AddSpending(-3.50)

	state := tracker.Snapshot()
	if state.DailySpend != 0 || state.WeeklySpend != 0 || state.MonthlySpend != 0 {
		t.Errorf("Expected untouched counters, got %+v", state)
	}
}

func TestWouldExceed(t *testing.T) {
	tracker, _ := newTestTracker(t, Config{DailyLimit: 10.00, Enabled: true})

	tracker.AddSpending(9.50)

	if !tracker.WouldExceed(1.00) {
		t.Error("Expected WouldExceed(1.00) with 9.50 spent of 10.00")
	}
	if tracker.WouldExceed(0.40) {
		t.Error("Expected !WouldExceed(0.40) with 9.50 spent of 10.00")
	}
	// Exactly reaching the limit is allowed by the pre-flight check.
	if tracker.WouldExceed(0.50) {
		t.Error("Expected !WouldExceed(0.50): current+cost == limit is not over")
	}
}

func TestAddSpending_CrossingFiresExactlyOnce(t *testing.T) {
	tracker, _ := newTestTracker(t, Config{DailyLimit: 10.00, Enabled: true})

	tracker.AddSpending(9.50)

	crossings := tracker.AddSpending(0.60)
	if len(crossings) != 1 {
		t.Fatalf("Expected 1 crossing, got %d", len(crossings))
	}
	if crossings[0].Period != PeriodDaily {
		t.Errorf("Expected daily crossing, got %s", crossings[0].Period)
	}
	if crossings[0].CurrentSpend != 10.10 {
		t.Errorf("Expected current spend 10.10, got %v", crossings[0].CurrentSpend)
	}
	if !tracker.DailyExceeded() {
		t.Error("Expected DailyExceeded after crossing")
	}

	// Still over the limit: no second notification.
	crossings = tracker.AddSpending(0.10)
	if len(crossings) != 0 {
		t.Errorf("Expected no crossing while already over the limit, got %d", len(crossings))
	}
}

func TestAddSpending_CrossesMultiplePeriods(t *testing.T) {
	tracker, _ := newTestTracker(t, Config{
		DailyLimit:   5.00,
		WeeklyLimit:  5.00,
		MonthlyLimit: 100.00,
		Enabled:      true,
	})

	crossings := tracker.AddSpending(6.00)
	if len(crossings) != 2 {
		t.Fatalf("Expected daily and weekly crossings, got %d", len(crossings))
	}
	if crossings[0].Period != PeriodDaily || crossings[1].Period != PeriodWeekly {
		t.Errorf("Unexpected crossing periods: %+v", crossings)
	}
}

func TestAddSpending_DisabledRecordsButNeverCrosses(t *testing.T) {
	tracker, _ := newTestTracker(t, Config{DailyLimit: 5.00, Enabled: false})

	crossings := tracker.AddSpending(10.00)
	if len(crossings) != 0 {
		t.Error("Expected no crossings while enforcement disabled")
	}
	if tracker.DailyExceeded() {
		t.Error("Expected DailyExceeded false while disabled")
	}
	if tracker.WouldExceed(1.00) {
		t.Error("Expected WouldExceed false while disabled")
	}

	// Spending is still recorded for when enforcement is re-enabled.
	if got := tracker.Snapshot().DailySpend; got != 10.00 {
		t.Errorf("Expected recorded spend 10.00, got %v", got)
	}
}

func TestRemainingBudget(t *testing.T) {
	tracker, _ := newTestTracker(t, Config{
		DailyLimit:   10.00,
		MonthlyLimit: 100.00,
		Enabled:      true,
	})

	tracker.AddSpending(4.00)

	if got := tracker.RemainingDailyBudget(); got != 6.00 {
		t.Errorf("Expected remaining daily 6.00, got %v", got)
	}
	if got := tracker.RemainingWeeklyBudget(); got != Unlimited {
		t.Errorf("Expected unlimited weekly budget, got %v", got)
	}
	if got := tracker.RemainingMonthlyBudget(); got != 96.00 {
		t.Errorf("Expected remaining monthly 96.00, got %v", got)
	}
	// Most restrictive period wins.
	if got := tracker.RemainingBudget(); got != 6.00 {
		t.Errorf("Expected overall remaining 6.00, got %v", got)
	}
}

func TestRemainingBudget_NeverNegative(t *testing.T) {
	tracker, _ := newTestTracker(t, Config{DailyLimit: 10.00, Enabled: true})

	tracker.AddSpending(12.00)

	if got := tracker.RemainingDailyBudget(); got != 0 {
		t.Errorf("Expected remaining 0 when over limit, got %v", got)
	}
}

func TestResetPeriods_DailyRollover(t *testing.T) {
	tracker, clock := newTestTracker(t, Config{DailyLimit: 10.00, WeeklyLimit: 50.00, Enabled: true})

	tracker.AddSpending(8.00)

	clock.Advance(24 * time.Hour)
	tracker.ResetPeriodsIfNeeded()

	state := tracker.Snapshot()
	if state.DailySpend != 0 {
		t.Errorf("Expected daily spend reset, got %v", state.DailySpend)
	}
	if state.WeeklySpend != 8.00 {
		t.Errorf("Expected weekly spend preserved, got %v", state.WeeklySpend)
	}
}

func TestResetPeriods_IdempotentWithinSameDay(t *testing.T) {
	tracker, clock := newTestTracker(t, Config{DailyLimit: 10.00, Enabled: true})

	tracker.AddSpending(8.00)

	clock.Advance(time.Hour)
	tracker.ResetPeriodsIfNeeded()
	tracker.ResetPeriodsIfNeeded()

	if got := tracker.Snapshot().DailySpend; got != 8.00 {
		t.Errorf("Expected same-day reset to be a no-op, got daily spend %v", got)
	}
}

func TestResetPeriods_WeeklyRollover(t *testing.T) {
	tracker, clock := newTestTracker(t, Config{WeeklyLimit: 50.00, Enabled: true})

	// Wednesday spend.
	tracker.AddSpending(20.00)

	// Friday same week: weekly total survives.
	clock.Advance(2 * 24 * time.Hour)
	tracker.ResetPeriodsIfNeeded()
	if got := tracker.Snapshot().WeeklySpend; got != 20.00 {
		t.Errorf("Expected weekly spend preserved within the week, got %v", got)
	}

	// Next Monday: new ISO week, weekly total resets.
	clock.Advance(3 * 24 * time.Hour)
	tracker.ResetPeriodsIfNeeded()
	if got := tracker.Snapshot().WeeklySpend; got != 0 {
		t.Errorf("Expected weekly spend reset on new ISO week, got %v", got)
	}
}

func TestResetPeriods_MonthlyRollover(t *testing.T) {
	tracker, clock := newTestTracker(t, Config{MonthlyLimit: 100.00, Enabled: true})

	tracker.AddSpending(40.00)

	// Later the same month: preserved.
	clock.Set(time.Date(2025, time.June, 28, 9, 0, 0, 0, time.UTC))
	tracker.ResetPeriodsIfNeeded()
	if got := tracker.Snapshot().MonthlySpend; got != 40.00 {
		t.Errorf("Expected monthly spend preserved within the month, got %v", got)
	}

	// New calendar month: reset.
	clock.Set(time.Date(2025, time.July, 1, 0, 30, 0, 0, time.UTC))
	tracker.ResetPeriodsIfNeeded()
	if got := tracker.Snapshot().MonthlySpend; got != 0 {
		t.Errorf("Expected monthly spend reset on new month, got %v", got)
	}
}

func TestAddRequest_MinuteWindow(t *testing.T) {
	tracker, clock := newTestTracker(t, Config{
		RequestsPerMinute: 5,
		RateLimitEnabled:  true,
		Enabled:           true,
	})

	for i := 0; i < 5; i++ {
		if tracker.WouldBeRateLimited() {
			t.Fatalf("Unexpected rate limit at request %d", i+1)
		}
		tracker.AddRequest()
		clock.Advance(2 * time.Second)
	}

	if !tracker.MinuteExceeded() {
		t.Error("Expected MinuteExceeded after 5 requests")
	}
	if !tracker.WouldBeRateLimited() {
		t.Error("Expected sixth request to be rate limited")
	}

	// After a 61-second gap the minute window resets.
	clock.Advance(61 * time.Second)
	if tracker.WouldBeRateLimited() {
		t.Error("Expected no rate limit after 61s gap")
	}
	if got := tracker.Snapshot().MinuteRequests; got != 0 {
		t.Errorf("Expected minute counter reset to 0, got %d", got)
	}
}

func TestAddRequest_HourWindow(t *testing.T) {
	tracker, clock := newTestTracker(t, Config{
		RequestsPerHour:  3,
		RateLimitEnabled: true,
		Enabled:          true,
	})

	for i := 0; i < 3; i++ {
		tracker.AddRequest()
		clock.Advance(10 * time.Minute)
	}

	// Only 10 minutes since the last request: hour counter still full.
	if !tracker.WouldBeRateLimited() {
		t.Error("Expected hour limit to apply")
	}

	clock.Advance(time.Hour)
	if tracker.WouldBeRateLimited() {
		t.Error("Expected hour window to reset after an hour of quiet")
	}
}

func TestAddRequest_DayWindowResetsOnCalendarBoundary(t *testing.T) {
	tracker, clock := newTestTracker(t, Config{
		RequestsPerDay:   2,
		RateLimitEnabled: true,
		Enabled:          true,
	})

	// Requests late in the day.
	clock.Set(time.Date(2025, time.June, 11, 23, 30, 0, 0, time.UTC))
	tracker.AddRequest()
	tracker.AddRequest()

	if !tracker.DayRequestsExceeded() {
		t.Error("Expected day limit reached")
	}

	// Just past midnight: calendar day boundary crossed, counter resets
	// even though less than an hour elapsed.
	clock.Set(time.Date(2025, time.June, 12, 0, 10, 0, 0, time.UTC))
	if tracker.WouldBeRateLimited() {
		t.Error("Expected day counter reset after midnight")
	}
}

func TestAddRequest_DisabledIsNoOp(t *testing.T) {
	tracker, _ := newTestTracker(t, Config{
		RequestsPerMinute: 1,
		RateLimitEnabled:  false,
		DailyLimit:        10,
		Enabled:           true,
	})

	tracker.AddRequest()
	tracker.AddRequest()

	if got := tracker.Snapshot().MinuteRequests; got != 0 {
		t.Errorf("Expected no request counting while disabled, got %d", got)
	}
	if tracker.WouldBeRateLimited() {
		t.Error("Expected no rate limiting while disabled")
	}
}

func TestAddSpending_Concurrent(t *testing.T) {
	tracker, _ := newTestTracker(t, Config{DailyLimit: 100000, Enabled: true})

	const goroutines = 10
	const perGoroutine = 100

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				tracker.AddSpending(0.25)
			}
		}()
	}
	wg.Wait()

	want := float64(goroutines*perGoroutine) * 0.25
	if got := tracker.Snapshot().DailySpend; got != want {
		t.Errorf("Expected daily spend %v after concurrent adds, got %v", want, got)
	}
}

func TestSnapshotRestore(t *testing.T) {
	tracker, _ := newTestTracker(t, Config{DailyLimit: 10.00, Enabled: true})

	tracker.AddSpending(7.50)
	state := tracker.Snapshot()

	restored, err := NewTracker("acct-1", Config{DailyLimit: 10.00, Enabled: true})
	if err != nil {
		t.Fatalf("NewTracker failed: %v", err)
	}
	restored.now = tracker.now
	restored.Restore(state)

	if got := restored.Snapshot().DailySpend; got != 7.50 {
		t.Errorf("Expected restored daily spend 7.50, got %v", got)
	}
	if !restored.WouldExceed(3.00) {
		t.Error("Expected restored tracker to enforce against restored counters")
	}
}
