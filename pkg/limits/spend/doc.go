// Package spend implements per-account spending and request-rate tracking.
//
// # Windows
//
// Spending is tracked over three calendar windows (day, ISO week, month)
// and requests over three rate windows (rolling minute, rolling hour,
// calendar day). Calendar windows roll over when the calendar period
// changes; rate windows roll over when enough wall-clock time has elapsed
// since the previous request.
//
// # Thread safety
//
// A Tracker is a per-account state machine guarded by a single mutex.
// Concurrent AddSpending and AddRequest calls never lose increments or
// double-apply rollovers.
package spend
