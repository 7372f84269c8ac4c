package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"arbiter-ai/arbiter/pkg/limits"
	"arbiter-ai/arbiter/pkg/pricing"
	"arbiter-ai/arbiter/pkg/providers"
	"arbiter-ai/arbiter/pkg/routing"
	"arbiter-ai/arbiter/pkg/telemetry/metrics"
	"arbiter-ai/arbiter/pkg/usage"
)

// Decision is the outcome of a pre-flight budget check for one attempt.
type Decision struct {
	// Action is proceed, warn, or block.
	Action routing.Action

	// EstimatedCost is the estimated request cost in USD. Zero for an
	// unpriced model.
	EstimatedCost float64

	// Reason explains a warn or block decision.
	Reason string

	// RemainingBudget is the account's most restrictive remaining budget,
	// when the account has limits configured.
	RemainingBudget float64
}

// Gateway coordinates a request's full lifecycle: choosing the model for
// each attempt, checking cost thresholds and account limits before
// execution, classifying failures for retry, and recording actual usage and
// spending afterwards.
//
// # Example
//
//	gw := gateway.New(gateway.Config{
//	    Table:    table,
//	    Limits:   manager,
//	    Usage:    store,
//	    Executor: client,
//	})
//	gw.RegisterPolicy("team-research", policy)
//
//	result, err := gw.Execute(ctx, "team-research", prompt, providers.Params{
//	    MaxOutputTokens: 1024,
//	})
type Gateway struct {
	table    *pricing.Table
	limits   *limits.Manager
	usage    usage.Store
	executor providers.Executor
	metrics  *metrics.Collector
	provider string
	logger   *slog.Logger

	policies map[string]*routing.Policy
	mu       sync.RWMutex
}

// Config contains the gateway's collaborators.
type Config struct {
	// Table is the model pricing table.
	Table *pricing.Table

	// Limits checks and records per-account spending and rates.
	Limits *limits.Manager

	// Usage persists per-request usage records. Optional.
	Usage usage.Store

	// Executor performs the actual provider calls.
	Executor providers.Executor

	// Metrics records gateway metrics. Optional.
	Metrics *metrics.Collector

	// Provider is the provider name recorded in usage and metrics.
	// Default: "default"
	Provider string
}

// New creates a gateway.
func New(cfg Config) *Gateway {
	if cfg.Provider == "" {
		cfg.Provider = "default"
	}

	return &Gateway{
		table:    cfg.Table,
		limits:   cfg.Limits,
		usage:    cfg.Usage,
		executor: cfg.Executor,
		metrics:  cfg.Metrics,
		provider: cfg.Provider,
		logger:   slog.Default().With("component", "gateway"),
		policies: make(map[string]*routing.Policy),
	}
}

// RegisterPolicy assigns a routing policy to an account.
func (g *Gateway) RegisterPolicy(accountID string, policy *routing.Policy) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.policies[accountID] = policy
}

// PolicyFor returns the account's routing policy, or nil when none is
// registered.
func (g *Gateway) PolicyFor(accountID string) *routing.Policy {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.policies[accountID]
}

// NextAttempt returns the model to use for the given attempt number under a
// policy. Attempt numbering starts at 1.
func (g *Gateway) NextAttempt(policy *routing.Policy, attempt int) string {
	return policy.ModelForAttempt(attempt)
}

// RetryEligible reports whether a failed attempt should be retried under a
// policy, based on the failure classification and the attempt count.
func (g *Gateway) RetryEligible(policy *routing.Policy, err error, attempt int) bool {
	return policy.ShouldRetry(err, attempt)
}

// CheckBudget performs the pre-flight check for one attempt: the policy's
// cost thresholds first, then the account's spending and rate limits.
//
// A model missing from the pricing table cannot be estimated; the request
// is allowed through with a warning rather than silently treated as free.
func (g *Gateway) CheckBudget(ctx context.Context, accountID string, policy *routing.Policy, model string, inputTokens, maxOutputTokens int) *Decision {
	decision := &Decision{Action: routing.ActionProceed}

	if policy.CostRules().CalculateBeforeRequest {
		if _, priced := g.table.Cost(model); !priced {
			decision.Action = routing.ActionWarn
			decision.Reason = fmt.Sprintf("model %s not in pricing table, cost unknown", model)
		} else {
			decision.EstimatedCost = policy.EstimateCostFor(model, inputTokens, maxOutputTokens)
			decision.Action = policy.CheckCost(decision.EstimatedCost)
			switch decision.Action {
			case routing.ActionWarn:
				decision.Reason = "estimated cost at or above warning threshold"
			case routing.ActionBlock:
				decision.Reason = "estimated cost at or above block threshold"
				return decision
			}
		}
	}

	limitResult := g.limits.CheckBudget(ctx, accountID, decision.EstimatedCost)
	decision.RemainingBudget = limitResult.RemainingBudget
	if !limitResult.Allowed {
		decision.Action = routing.ActionBlock
		decision.Reason = limitResult.Reason
	}

	return decision
}

// RecordOutcome records a completed request: the usage record, the
// account's spending and request-rate counters, and cost metrics.
//
// When the provider did not report a cost, the cost is computed from the
// pricing table and the actual token counts.
func (g *Gateway) RecordOutcome(ctx context.Context, accountID, model string, inputTokens, outputTokens int, actualCost float64) error {
	cost := actualCost
	if cost <= 0 {
		cost = g.table.CostFor(model, inputTokens, outputTokens)
	}

	if g.usage != nil {
		record := usage.NewRecord(accountID, g.provider, model, inputTokens, outputTokens, cost, usage.StatusSuccess)
		if err := g.usage.AppendRecord(ctx, record); err != nil {
			return fmt.Errorf("failed to record usage: %w", err)
		}
	}

	g.limits.RecordRequest(ctx, accountID)
	if err := g.limits.RecordSpending(ctx, accountID, cost); err != nil {
		return fmt.Errorf("failed to record spending: %w", err)
	}

	if g.metrics != nil {
		g.metrics.RecordCost(g.provider, model, cost)
	}

	return nil
}

// Execute runs a request through the full attempt chain for an account.
//
// Each attempt picks its model from the policy's ordered chain, passes the
// pre-flight checks, and calls the executor with the policy's per-attempt
// timeout. Failures are classified; retryable ones move to the next attempt
// after the policy's retry delay. The first success is recorded and
// returned.
func (g *Gateway) Execute(ctx context.Context, accountID, prompt string, params providers.Params) (*providers.Result, error) {
	policy := g.PolicyFor(accountID)
	if policy == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoPolicy, accountID)
	}

	rules := policy.Rules()
	inputTokens := estimateTokens(prompt)

	var lastErr error
	for attempt := 1; ; attempt++ {
		model := policy.ModelForAttempt(attempt)
		started := time.Now()

		decision := g.CheckBudget(ctx, accountID, policy, model, inputTokens, params.MaxOutputTokens)
		if decision.Action == routing.ActionBlock {
			if g.metrics != nil {
				g.metrics.RecordLimitRejection(accountID, decision.Reason)
				g.metrics.RecordRequest(accountID, model, "blocked", time.Since(started))
			}
			return nil, &BlockedError{
				AccountID:     accountID,
				Reason:        decision.Reason,
				EstimatedCost: decision.EstimatedCost,
			}
		}
		if decision.Action == routing.ActionWarn {
			g.logger.Warn("proceeding with flagged request",
				"account", accountID,
				"model", model,
				"estimated_cost", decision.EstimatedCost,
				"reason", decision.Reason)
		}

		result, err := g.executeAttempt(ctx, model, prompt, params, rules.Timeout)
		if err == nil {
			if g.metrics != nil {
				g.metrics.RecordRequest(accountID, model, "success", time.Since(started))
			}
			if recordErr := g.RecordOutcome(ctx, accountID, model, result.InputTokens, result.OutputTokens, result.ActualCost); recordErr != nil {
				g.logger.Error("failed to record outcome",
					"account", accountID,
					"model", model,
					"error", recordErr)
			}
			return result, nil
		}

		lastErr = err
		kind := routing.Classify(err)
		if g.metrics != nil {
			g.metrics.RecordRequest(accountID, model, "error", time.Since(started))
		}
		g.logger.Warn("attempt failed",
			"account", accountID,
			"model", model,
			"attempt", attempt,
			"failure_kind", string(kind),
			"error", err)

		if !policy.ShouldRetry(err, attempt) {
			break
		}

		if g.metrics != nil {
			g.metrics.RecordRetry(model, string(kind))
			if next := policy.ModelForAttempt(attempt + 1); next != model {
				g.metrics.RecordFallback(model, next)
			}
		}

		if rules.RetryDelay > 0 {
			select {
			case <-time.After(rules.RetryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, fmt.Errorf("%w: %w", ErrAttemptsExhausted, lastErr)
}

// executeAttempt calls the executor with the policy's per-attempt timeout.
func (g *Gateway) executeAttempt(ctx context.Context, model, prompt string, params providers.Params, timeout time.Duration) (*providers.Result, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return g.executor.Execute(ctx, model, prompt, params)
}

// estimateTokens approximates the token count of a prompt with the common
// four-characters-per-token heuristic.
func estimateTokens(prompt string) int {
	return len(prompt) / 4
}
