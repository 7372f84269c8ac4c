package providers

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestProviderErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := &ProviderError{
		Provider:   "openai",
		StatusCode: 502,
		Message:    "bad gateway",
		Cause:      cause,
	}

	if !errors.Is(err, cause) {
		t.Error("Expected ProviderError to unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "502") {
		t.Errorf("Expected status code in message, got %q", err.Error())
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "auth",
			err:  &AuthError{Provider: "openai", Message: "invalid api key"},
			want: "authentication failed",
		},
		{
			name: "rate limit with retry-after",
			err:  &RateLimitError{Provider: "anthropic", RetryAfter: 30 * time.Second},
			want: "retry after 30s",
		},
		{
			name: "timeout",
			err:  &TimeoutError{Provider: "openai", Timeout: 5 * time.Second},
			want: "timeout after 5s",
		},
		{
			name: "server error",
			err:  &ServerError{Provider: "openai", StatusCode: 503, Message: "overloaded"},
			want: "status 503",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(tt.err.Error(), tt.want) {
				t.Errorf("Expected %q in message, got %q", tt.want, tt.err.Error())
			}
		})
	}
}
