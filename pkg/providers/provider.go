package providers

import (
	"context"
	"time"
)

// Params contains caller-supplied parameters for a single provider call.
type Params struct {
	// MaxOutputTokens caps the completion length.
	MaxOutputTokens int

	// Temperature is the sampling temperature (provider-specific semantics).
	Temperature float64

	// Timeout is the per-attempt deadline. The executor owns all blocking
	// behavior, including honoring this timeout.
	Timeout time.Duration

	// Metadata carries opaque caller metadata (request IDs, trace IDs).
	Metadata map[string]string
}

// Result contains the outcome of a successful provider call.
type Result struct {
	// Output is the completion text.
	Output string

	// InputTokens is the prompt token count reported by the provider.
	InputTokens int

	// OutputTokens is the completion token count reported by the provider.
	OutputTokens int

	// ActualCost is the cost in USD reported or derived by the executor.
	// Zero means the executor could not determine a cost.
	ActualCost float64
}

// Executor issues the actual network call to a model provider.
//
// Executor is an external collaborator: this subsystem never blocks on
// network I/O itself. The executor owns timeouts and any backoff delay
// between attempts; the routing policy only parameterizes them.
//
// A failed call returns one of the typed errors in this package when the
// failure class is known (TimeoutError, RateLimitError, AuthError,
// ProviderError with a 5xx status), or any other error for unclassified
// failures.
type Executor interface {
	Execute(ctx context.Context, model, prompt string, params Params) (*Result, error)
}
