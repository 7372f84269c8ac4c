// Package limits coordinates per-account spending limits and request rate
// limits.
//
// The Manager owns one spend.Tracker per configured account and exposes the
// pre-flight CheckBudget and post-hoc RecordSpending operations used around
// each inference request. Counters persist through a storage.Backend and
// threshold crossings are delivered through a notify.Notifier, both
// best-effort so that limit bookkeeping never blocks request handling.
package limits
