package routing

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"arbiter-ai/arbiter/pkg/providers"
)

func TestClassify_TypedErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want FailureKind
	}{
		{"timeout", &providers.TimeoutError{Provider: "openai", Timeout: 30 * time.Second}, FailureTimeout},
		{"deadline", context.DeadlineExceeded, FailureTimeout},
		{"rate limit", &providers.RateLimitError{Provider: "openai"}, FailureRateLimit},
		{"auth", &providers.AuthError{Provider: "openai", Message: "bad key"}, FailureAuthError},
		{"server", &providers.ServerError{Provider: "openai", StatusCode: 503}, FailureServerError},
		{"provider 500", &providers.ProviderError{Provider: "openai", StatusCode: 500, Message: "boom"}, FailureServerError},
		{"provider 429", &providers.ProviderError{Provider: "openai", StatusCode: 429, Message: "slow down"}, FailureRateLimit},
		{"provider 401", &providers.ProviderError{Provider: "openai", StatusCode: 401, Message: "no"}, FailureAuthError},
		{"wrapped", fmt.Errorf("attempt failed: %w", &providers.RateLimitError{Provider: "openai"}), FailureRateLimit},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.err); got != tc.want {
				t.Errorf("Classify(%v) = %q, want %q", tc.err, got, tc.want)
			}
		})
	}
}

func TestClassify_MessagePatterns(t *testing.T) {
	cases := []struct {
		msg  string
		want FailureKind
	}{
		{"request timed out", FailureTimeout},
		{"context deadline exceeded during call", FailureTimeout},
		{"quota exhausted for project", FailureRateLimit},
		{"received 429 too many requests", FailureRateLimit},
		{"upstream returned 502 bad gateway", FailureServerError},
		{"service unavailable", FailureServerError},
		{"invalid api key provided", FailureAuthError},
		{"request forbidden", FailureAuthError},
		{"something strange happened", FailureUnknown},
	}

	for _, tc := range cases {
		if got := Classify(errors.New(tc.msg)); got != tc.want {
			t.Errorf("Classify(%q) = %q, want %q", tc.msg, got, tc.want)
		}
	}
}

func TestShouldRetry_AttemptsExhausted(t *testing.T) {
	policy := testPolicy(t, PolicyConfig{
		Name:                 "retries",
		PrimaryModel:         "gpt-4o",
		CostThresholdWarning: 1.00,
		CostThresholdBlock:   5.00,
		Rules: &Rules{
			RetryAttempts:     3,
			FailureConditions: []FailureKind{FailureTimeout, FailureRateLimit, FailureServerError},
		},
	})

	err := &providers.TimeoutError{Provider: "openai", Timeout: time.Second}

	if !policy.ShouldRetry(err, 1) {
		t.Error("Expected retry for attempt 1")
	}
	if !policy.ShouldRetry(err, 2) {
		t.Error("Expected retry for attempt 2")
	}
	// attempt >= retry_attempts: never retry, regardless of error kind
	if policy.ShouldRetry(err, 3) {
		t.Error("Expected no retry at attempt 3")
	}
	if policy.ShouldRetry(err, 7) {
		t.Error("Expected no retry past attempt limit")
	}
}

func TestShouldRetry_FiltersByFailureKind(t *testing.T) {
	policy := testPolicy(t, PolicyConfig{
		Name:                 "kinds",
		PrimaryModel:         "gpt-4o",
		CostThresholdWarning: 1.00,
		CostThresholdBlock:   5.00,
		Rules: &Rules{
			RetryAttempts:     5,
			FailureConditions: []FailureKind{FailureTimeout},
		},
	})

	if !policy.ShouldRetry(&providers.TimeoutError{Provider: "p"}, 1) {
		t.Error("Expected retry for configured timeout kind")
	}
	if policy.ShouldRetry(&providers.AuthError{Provider: "p"}, 1) {
		t.Error("Expected no retry for unconfigured auth kind")
	}
	if policy.ShouldRetry(errors.New("weird failure"), 1) {
		t.Error("Expected no retry for unknown kind")
	}
}

func TestShouldRetry_NoConditionsConfigured(t *testing.T) {
	policy := testPolicy(t, PolicyConfig{
		Name:                 "none",
		PrimaryModel:         "gpt-4o",
		CostThresholdWarning: 1.00,
		CostThresholdBlock:   5.00,
		Rules: &Rules{
			RetryAttempts:     5,
			FailureConditions: nil,
		},
	})

	if policy.ShouldRetry(&providers.TimeoutError{Provider: "p"}, 1) {
		t.Error("Expected no retry with empty failure conditions")
	}
}
