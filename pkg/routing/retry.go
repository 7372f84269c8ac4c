package routing

import (
	"context"
	"errors"
	"strings"

	"arbiter-ai/arbiter/pkg/providers"
)

// ShouldRetry reports whether a failed attempt is eligible for another try.
//
// It is false once attempt >= RetryAttempts regardless of the error, and
// false when no failure conditions are configured. Otherwise the error is
// classified and retried only if its kind is listed in FailureConditions.
func (p *Policy) ShouldRetry(err error, attempt int) bool {
	if attempt >= p.rules.RetryAttempts {
		return false
	}
	if len(p.rules.FailureConditions) == 0 {
		return false
	}

	kind := Classify(err)
	for _, cond := range p.rules.FailureConditions {
		if cond == kind {
			return true
		}
	}
	return false
}

// Classify maps a provider-call error to a FailureKind.
//
// Typed provider errors take precedence; anything else falls back to message
// pattern matching (timeout-like, rate/quota-like, 5xx/server-like,
// auth-like), and finally to FailureUnknown.
func Classify(err error) FailureKind {
	if err == nil {
		return FailureUnknown
	}

	var timeoutErr *providers.TimeoutError
	if errors.As(err, &timeoutErr) || errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}

	var rateErr *providers.RateLimitError
	if errors.As(err, &rateErr) {
		return FailureRateLimit
	}

	var authErr *providers.AuthError
	if errors.As(err, &authErr) {
		return FailureAuthError
	}

	var serverErr *providers.ServerError
	if errors.As(err, &serverErr) {
		return FailureServerError
	}

	var provErr *providers.ProviderError
	if errors.As(err, &provErr) && provErr.StatusCode > 0 {
		switch {
		case provErr.StatusCode == 401 || provErr.StatusCode == 403:
			return FailureAuthError
		case provErr.StatusCode == 429:
			return FailureRateLimit
		case provErr.StatusCode == 408:
			return FailureTimeout
		case provErr.StatusCode >= 500:
			return FailureServerError
		}
	}

	return classifyMessage(err.Error())
}

// classifyMessage classifies an error by its message text.
func classifyMessage(msg string) FailureKind {
	msg = strings.ToLower(msg)

	switch {
	case containsAny(msg, "timeout", "timed out", "deadline exceeded"):
		return FailureTimeout
	case containsAny(msg, "rate limit", "too many requests", "quota", "429"):
		return FailureRateLimit
	case containsAny(msg, "internal server", "bad gateway", "service unavailable",
		"500", "502", "503", "504"):
		return FailureServerError
	case containsAny(msg, "unauthorized", "forbidden", "authentication",
		"invalid api key", "401", "403"):
		return FailureAuthError
	default:
		return FailureUnknown
	}
}

// containsAny reports whether s contains any of the given substrings.
func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
