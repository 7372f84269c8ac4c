package spend

import (
	"math"
	"sync"
	"time"
)

// Period identifies a spending window.
type Period string

const (
	// PeriodDaily is the calendar-day spending window.
	PeriodDaily Period = "daily"

	// PeriodWeekly is the ISO-week spending window.
	PeriodWeekly Period = "weekly"

	// PeriodMonthly is the calendar-month spending window.
	PeriodMonthly Period = "monthly"
)

// Unlimited is the remaining-budget sentinel for a period with no limit set.
var Unlimited = math.Inf(1)

// crossingTolerance is the fixed slack used when deciding whether a limit
// was just crossed by an increment, as opposed to already exceeded before
// it. Totals within this amount of the limit count as still below it. This
// is a heuristic carried over from the original accounting behavior, not an
// exact edge detector.
const crossingTolerance = 0.01

// Crossing describes a spending limit that was just crossed by an
// AddSpending call.
type Crossing struct {
	// Period is the window whose limit was crossed.
	Period Period

	// Limit is the configured limit for the period in USD.
	Limit float64

	// CurrentSpend is the running total after the crossing increment.
	CurrentSpend float64
}

// State is the mutable counter state of a tracker. It is exported so the
// storage backends can persist and restore it across restarts.
type State struct {
	// DailySpend, WeeklySpend, MonthlySpend are the running spend totals in USD.
	DailySpend   float64 `json:"daily_spend"`
	WeeklySpend  float64 `json:"weekly_spend"`
	MonthlySpend float64 `json:"monthly_spend"`

	// TotalSpend is the all-time spend total in USD (never reset).
	TotalSpend float64 `json:"total_spend"`

	// LastReset is when the spend windows were last checked for rollover.
	LastReset time.Time `json:"last_reset"`

	// MinuteRequests, HourRequests, DayRequests are the running request counters.
	MinuteRequests int64 `json:"minute_requests"`
	HourRequests   int64 `json:"hour_requests"`
	DayRequests    int64 `json:"day_requests"`

	// LastRequestTime is when AddRequest last ran.
	LastRequestTime time.Time `json:"last_request_time"`
}

// Tracker tracks spending and request rates for a single account.
//
// The tracker maintains three calendar spend windows (day, ISO week, month)
// and three rate windows (rolling minute, rolling hour, calendar day). All
// mutation happens under a single mutex so that concurrent AddSpending or
// AddRequest calls never lose an increment or double-apply a rollover.
//
// Spend windows roll over against the calendar; rate windows roll over
// against wall-clock time elapsed since the previous request.
type Tracker struct {
	accountID string
	config    Config
	state     State

	// now is the clock source, replaceable in tests.
	now func() time.Time

	mu sync.Mutex
}

// NewTracker creates a tracker for an account, validating the configuration.
func NewTracker(accountID string, config Config) (*Tracker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Tracker{
		accountID: accountID,
		config:    config,
		now:       time.Now,
	}, nil
}

// AccountID returns the owning account.
func (t *Tracker) AccountID() string { return t.accountID }

// Config returns the limit configuration.
func (t *Tracker) Config() Config { return t.config }

// Snapshot returns a copy of the current counter state for persistence.
func (t *Tracker) Snapshot() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Restore replaces the counter state, typically with persisted counters
// loaded at startup. Window rollover on the next operation reconciles any
// staleness in the restored state.
func (t *Tracker) Restore(state State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = state
}

// AddSpending records a completed request's cost in all three spend windows.
//
// A non-positive cost is a no-op. Expired windows are rolled over first,
// then the cost is added atomically to all three running totals. The
// returned crossings list each period whose limit was crossed by this
// increment; a period already over its limit before the call does not
// produce a crossing, so at most one notification fires per period per
// crossing event.
func (t *Tracker) AddSpending(cost float64) []Crossing {
	if cost <= 0 {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.resetPeriodsLocked(t.now())

	preDaily := t.state.DailySpend
	preWeekly := t.state.WeeklySpend
	preMonthly := t.state.MonthlySpend

	t.state.DailySpend += cost
	t.state.WeeklySpend += cost
	t.state.MonthlySpend += cost
	t.state.TotalSpend += cost

	if !t.config.Enabled {
		return nil
	}

	var crossings []Crossing
	if crossed(preDaily, t.state.DailySpend, t.config.DailyLimit) {
		crossings = append(crossings, Crossing{
			Period:       PeriodDaily,
			Limit:        t.config.DailyLimit,
			CurrentSpend: t.state.DailySpend,
		})
	}
	if crossed(preWeekly, t.state.WeeklySpend, t.config.WeeklyLimit) {
		crossings = append(crossings, Crossing{
			Period:       PeriodWeekly,
			Limit:        t.config.WeeklyLimit,
			CurrentSpend: t.state.WeeklySpend,
		})
	}
	if crossed(preMonthly, t.state.MonthlySpend, t.config.MonthlyLimit) {
		crossings = append(crossings, Crossing{
			Period:       PeriodMonthly,
			Limit:        t.config.MonthlyLimit,
			CurrentSpend: t.state.MonthlySpend,
		})
	}

	return crossings
}

// crossed reports whether an increment moved a running total from below a
// limit to at or above it. The pre-increment total is compared against the
// limit with the fixed crossing tolerance.
func crossed(pre, current, limit float64) bool {
	if limit <= 0 {
		return false
	}
	return current >= limit && pre < limit+crossingTolerance && pre < current
}

// WouldExceed reports whether adding cost would push any set spending limit
// past its cap. This is the pre-flight check; it compares against committed
// spend with a strict inequality, unlike the post-hoc Exceeded checks.
func (t *Tracker) WouldExceed(cost float64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.config.Enabled {
		return false
	}

	if t.config.DailyLimit > 0 && t.state.DailySpend+cost > t.config.DailyLimit {
		return true
	}
	if t.config.WeeklyLimit > 0 && t.state.WeeklySpend+cost > t.config.WeeklyLimit {
		return true
	}
	if t.config.MonthlyLimit > 0 && t.state.MonthlySpend+cost > t.config.MonthlyLimit {
		return true
	}
	return false
}

// DailyExceeded reports whether committed daily spend has reached the daily limit.
func (t *Tracker) DailyExceeded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.config.Enabled && t.config.DailyLimit > 0 && t.state.DailySpend >= t.config.DailyLimit
}

// WeeklyExceeded reports whether committed weekly spend has reached the weekly limit.
func (t *Tracker) WeeklyExceeded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.config.Enabled && t.config.WeeklyLimit > 0 && t.state.WeeklySpend >= t.config.WeeklyLimit
}

// MonthlyExceeded reports whether committed monthly spend has reached the monthly limit.
func (t *Tracker) MonthlyExceeded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.config.Enabled && t.config.MonthlyLimit > 0 && t.state.MonthlySpend >= t.config.MonthlyLimit
}

// RemainingDailyBudget returns the unspent daily budget, or Unlimited when
// no daily limit is set. Never negative.
func (t *Tracker) RemainingDailyBudget() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return remaining(t.config.DailyLimit, t.state.DailySpend)
}

// RemainingWeeklyBudget returns the unspent weekly budget, or Unlimited when
// no weekly limit is set.
func (t *Tracker) RemainingWeeklyBudget() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return remaining(t.config.WeeklyLimit, t.state.WeeklySpend)
}

// RemainingMonthlyBudget returns the unspent monthly budget, or Unlimited
// when no monthly limit is set.
func (t *Tracker) RemainingMonthlyBudget() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return remaining(t.config.MonthlyLimit, t.state.MonthlySpend)
}

// RemainingBudget returns the minimum remaining budget across the three
// periods: the most restrictive window wins.
func (t *Tracker) RemainingBudget() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	result := remaining(t.config.DailyLimit, t.state.DailySpend)
	if weekly := remaining(t.config.WeeklyLimit, t.state.WeeklySpend); weekly < result {
		result = weekly
	}
	if monthly := remaining(t.config.MonthlyLimit, t.state.MonthlySpend); monthly < result {
		result = monthly
	}
	return result
}

// remaining computes max(limit-current, 0), or Unlimited for an unset limit.
func remaining(limit, current float64) float64 {
	if limit <= 0 {
		return Unlimited
	}
	if current >= limit {
		return 0
	}
	return limit - current
}

// ResetPeriodsIfNeeded rolls over any expired spend windows. Calling it
// again within the same day is a no-op.
func (t *Tracker) ResetPeriodsIfNeeded() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetPeriodsLocked(t.now())
}

// resetPeriodsLocked performs calendar-aware spend window rollover.
// Caller must hold the lock.
//
// Rules: a new calendar day zeroes the daily total; a new ISO week (the
// current week's Monday falls after the last reset) or seven elapsed days
// zeroes the weekly total; a new calendar month or thirty elapsed days
// zeroes the monthly total. LastReset always advances.
func (t *Tracker) resetPeriodsLocked(now time.Time) {
	last := t.state.LastReset
	if last.IsZero() {
		t.state.LastReset = now
		return
	}

	if !sameDay(now, last) {
		t.state.DailySpend = 0
	}

	if weekStart(now).After(last) || now.Sub(last) >= 7*24*time.Hour {
		t.state.WeeklySpend = 0
	}

	if now.Month() != last.Month() || now.Year() != last.Year() || now.Sub(last) >= 30*24*time.Hour {
		t.state.MonthlySpend = 0
	}

	t.state.LastReset = now
}

// AddRequest counts one request in all three rate windows.
//
// It is a no-op unless rate limiting is enabled. Expired windows are rolled
// over first, then all three counters are incremented and the last-request
// timestamp is stamped.
func (t *Tracker) AddRequest() {
	if !t.config.RateLimitEnabled {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.resetRateWindowsLocked(now)

	t.state.MinuteRequests++
	t.state.HourRequests++
	t.state.DayRequests++
	t.state.LastRequestTime = now
}

// WouldBeRateLimited rolls over expired rate windows and reports whether
// any request counter is at or above its configured limit.
func (t *Tracker) WouldBeRateLimited() bool {
	if !t.config.RateLimitEnabled {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.resetRateWindowsLocked(t.now())
	return t.rateLimitExceededLocked()
}

// MinuteExceeded reports whether the one-minute request counter has reached
// its limit.
func (t *Tracker) MinuteExceeded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.config.RateLimitEnabled && t.config.RequestsPerMinute > 0 &&
		t.state.MinuteRequests >= t.config.RequestsPerMinute
}

// HourExceeded reports whether the one-hour request counter has reached its limit.
func (t *Tracker) HourExceeded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.config.RateLimitEnabled && t.config.RequestsPerHour > 0 &&
		t.state.HourRequests >= t.config.RequestsPerHour
}

// DayRequestsExceeded reports whether the calendar-day request counter has
// reached its limit.
func (t *Tracker) DayRequestsExceeded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.config.RateLimitEnabled && t.config.RequestsPerDay > 0 &&
		t.state.DayRequests >= t.config.RequestsPerDay
}

// rateLimitExceededLocked checks all three rate counters against their
// limits. Caller must hold the lock.
func (t *Tracker) rateLimitExceededLocked() bool {
	if t.config.RequestsPerMinute > 0 && t.state.MinuteRequests >= t.config.RequestsPerMinute {
		return true
	}
	if t.config.RequestsPerHour > 0 && t.state.HourRequests >= t.config.RequestsPerHour {
		return true
	}
	if t.config.RequestsPerDay > 0 && t.state.DayRequests >= t.config.RequestsPerDay {
		return true
	}
	return false
}

// resetRateWindowsLocked rolls over expired rate windows based on the time
// elapsed since the previous request. Caller must hold the lock.
func (t *Tracker) resetRateWindowsLocked(now time.Time) {
	last := t.state.LastRequestTime
	if last.IsZero() {
		return
	}

	if now.Sub(last) >= time.Minute {
		t.state.MinuteRequests = 0
	}
	if now.Sub(last) >= time.Hour {
		t.state.HourRequests = 0
	}
	if !sameDay(now, last) {
		t.state.DayRequests = 0
	}
}

// sameDay reports whether two instants fall on the same calendar day.
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// weekStart returns midnight of the Monday of t's ISO week.
func weekStart(t time.Time) time.Time {
	y, m, d := t.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, t.Location())

	offset := int(midnight.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset += 7 // Sunday
	}
	return midnight.AddDate(0, 0, -offset)
}
