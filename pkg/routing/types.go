package routing

import "time"

// Action is the threshold outcome for an estimated request cost.
type Action string

const (
	// ActionProceed permits the request without caveats.
	ActionProceed Action = "proceed"

	// ActionWarn permits the request but flags it as above the warning threshold.
	ActionWarn Action = "warn"

	// ActionBlock rejects the request as above the block threshold.
	ActionBlock Action = "block"
)

// FailureKind classifies a failed provider attempt for retry decisions.
type FailureKind string

const (
	// FailureTimeout covers request timeouts and exceeded deadlines.
	FailureTimeout FailureKind = "timeout"

	// FailureRateLimit covers provider rate limit and quota rejections.
	FailureRateLimit FailureKind = "rate_limit"

	// FailureServerError covers provider-side 5xx failures.
	FailureServerError FailureKind = "server_error"

	// FailureAuthError covers authentication and authorization rejections.
	FailureAuthError FailureKind = "auth_error"

	// FailureUnknown covers everything that does not match another kind.
	FailureUnknown FailureKind = "unknown_error"
)

// Rules controls retry behavior for a policy.
type Rules struct {
	// RetryAttempts is the maximum number of attempts (including the first).
	RetryAttempts int `yaml:"retry_attempts"`

	// RetryDelay is the base delay between attempts. The external executor
	// owns the actual sleeping; the policy only carries the parameter.
	RetryDelay time.Duration `yaml:"retry_delay"`

	// Timeout is the per-attempt deadline passed through to the executor.
	Timeout time.Duration `yaml:"timeout"`

	// FailureConditions lists the failure kinds that are retry-eligible.
	// An empty list disables retries entirely.
	FailureConditions []FailureKind `yaml:"failure_conditions"`
}

// CostRules controls cost handling for a policy.
type CostRules struct {
	// CalculateBeforeRequest enables pre-flight cost estimation.
	CalculateBeforeRequest bool `yaml:"calculate_before_request"`

	// TrackActualUsage enables recording of actual usage after completion.
	TrackActualUsage bool `yaml:"track_actual_usage"`

	// NotificationThresholdMultiplier is the fraction of a spending limit
	// (0.0-1.0) at which early notifications may be raised.
	NotificationThresholdMultiplier float64 `yaml:"notification_threshold_multiplier"`
}

// DefaultRules returns the retry rules applied when a policy is created
// without explicit routing rules.
func DefaultRules() Rules {
	return Rules{
		RetryAttempts: 3,
		RetryDelay:    1 * time.Second,
		Timeout:       30 * time.Second,
		FailureConditions: []FailureKind{
			FailureTimeout,
			FailureRateLimit,
			FailureServerError,
		},
	}
}

// DefaultCostRules returns the cost rules applied when a policy is created
// without explicit cost rules.
func DefaultCostRules() CostRules {
	return CostRules{
		CalculateBeforeRequest:          true,
		TrackActualUsage:                true,
		NotificationThresholdMultiplier: 0.8,
	}
}
