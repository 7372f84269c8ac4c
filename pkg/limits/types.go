package limits

// Rejection reasons reported by CheckBudget.
const (
	// ReasonRateLimited indicates a request counter is at its limit.
	ReasonRateLimited = "rate limit exceeded"

	// ReasonBudgetExceeded indicates the estimated cost would push a
	// spending window past its cap.
	ReasonBudgetExceeded = "spending limit exceeded"
)

// CheckResult is the outcome of a pre-flight budget check.
type CheckResult struct {
	// Allowed reports whether the request may proceed.
	Allowed bool

	// Reason explains a rejection. Empty when Allowed is true.
	Reason string

	// RateLimited is true when the rejection came from a request counter
	// rather than a spending limit.
	RateLimited bool

	// RemainingBudget is the most restrictive remaining budget across the
	// account's spending windows, when limits are configured.
	RemainingBudget float64
}
