package routing

import (
	"fmt"

	"arbiter-ai/arbiter/pkg/pricing"
)

// Policy is the per-account routing configuration.
//
// A Policy is a pure decision component: given an attempt number and
// caller-supplied token counts it resolves the model to try, estimates cost,
// classifies the cost against the configured thresholds, and decides retry
// eligibility for failed attempts. It holds no mutable state and is safe for
// concurrent use at request time.
type Policy struct {
	name           string
	primaryModel   string
	fallbackModels []string

	warnThreshold  float64
	blockThreshold float64

	rules Rules
	costs CostRules

	table *pricing.Table
}

// PolicyConfig contains the fields needed to create a Policy.
//
// Rules and Costs are optional; when nil the defaults from DefaultRules and
// DefaultCostRules are injected at creation, never lazily.
type PolicyConfig struct {
	// Name identifies the policy for display and logs.
	Name string `yaml:"name"`

	// PrimaryModel is the model for attempt 1.
	PrimaryModel string `yaml:"primary_model"`

	// FallbackModels is the ordered chain tried after the primary model.
	// May be empty.
	FallbackModels []string `yaml:"fallback_models"`

	// CostThresholdWarning is the estimated cost (USD) at or above which a
	// request is flagged. Must be > 0.
	CostThresholdWarning float64 `yaml:"cost_threshold_warning"`

	// CostThresholdBlock is the estimated cost (USD) at or above which a
	// request is blocked. Must be greater than CostThresholdWarning.
	CostThresholdBlock float64 `yaml:"cost_threshold_block"`

	// Rules overrides the default retry rules.
	Rules *Rules `yaml:"routing_rules"`

	// Costs overrides the default cost rules.
	Costs *CostRules `yaml:"cost_rules"`
}

// NewPolicy creates a routing policy, validating all invariants up front.
//
// Configuration errors are rejected here and never reach request-time logic:
// both thresholds must be positive and the block threshold must be strictly
// greater than the warning threshold.
func NewPolicy(cfg PolicyConfig, table *pricing.Table) (*Policy, error) {
	if cfg.PrimaryModel == "" {
		return nil, fmt.Errorf("%w: primary model cannot be empty", ErrInvalidPolicy)
	}
	if table == nil {
		return nil, fmt.Errorf("%w: pricing table cannot be nil", ErrInvalidPolicy)
	}
	if cfg.CostThresholdWarning <= 0 {
		return nil, fmt.Errorf("%w: warning threshold must be positive, got %v",
			ErrInvalidPolicy, cfg.CostThresholdWarning)
	}
	if cfg.CostThresholdBlock <= cfg.CostThresholdWarning {
		return nil, fmt.Errorf("%w: block threshold %v must be greater than warning threshold %v",
			ErrInvalidThresholds, cfg.CostThresholdBlock, cfg.CostThresholdWarning)
	}

	rules := DefaultRules()
	if cfg.Rules != nil {
		rules = *cfg.Rules
	}
	if rules.RetryAttempts < 0 {
		return nil, fmt.Errorf("%w: retry attempts must not be negative", ErrInvalidPolicy)
	}

	costs := DefaultCostRules()
	if cfg.Costs != nil {
		costs = *cfg.Costs
	}

	fallbacks := make([]string, len(cfg.FallbackModels))
	copy(fallbacks, cfg.FallbackModels)

	return &Policy{
		name:           cfg.Name,
		primaryModel:   cfg.PrimaryModel,
		fallbackModels: fallbacks,
		warnThreshold:  cfg.CostThresholdWarning,
		blockThreshold: cfg.CostThresholdBlock,
		rules:          rules,
		costs:          costs,
		table:          table,
	}, nil
}

// Name returns the policy name.
func (p *Policy) Name() string { return p.name }

// PrimaryModel returns the model used for attempt 1.
func (p *Policy) PrimaryModel() string { return p.primaryModel }

// Rules returns the retry rules in effect for this policy.
func (p *Policy) Rules() Rules { return p.rules }

// CostRules returns the cost rules in effect for this policy.
func (p *Policy) CostRules() CostRules { return p.costs }

// ModelForAttempt resolves the model to use for the given attempt number.
//
// Attempt 1 is always the primary model. Attempt k>1 uses the (k-2)th entry
// of the fallback chain. Past the end of the chain the cheapest priced model
// is returned, so the function is total: it never yields "no model" for any
// attempt n >= 1.
func (p *Policy) ModelForAttempt(attempt int) string {
	if attempt <= 1 {
		return p.primaryModel
	}

	idx := attempt - 2
	if idx < len(p.fallbackModels) {
		return p.fallbackModels[idx]
	}

	if cheapest := p.table.CheapestModel(); cheapest != "" {
		return cheapest
	}

	// Empty pricing table: the primary model is still a usable answer.
	return p.primaryModel
}

// EstimateCost estimates the cost in USD of a request against the primary
// model, assuming the completion runs to maxOutputTokens.
// Returns 0 for an unpriced model.
func (p *Policy) EstimateCost(inputTokens, maxOutputTokens int) float64 {
	return p.EstimateCostFor(p.primaryModel, inputTokens, maxOutputTokens)
}

// EstimateCostFor estimates the cost in USD of a request against a specific
// model. Returns 0 for an unpriced model; callers must treat that as "cost
// unknown", not "free".
func (p *Policy) EstimateCostFor(model string, inputTokens, maxOutputTokens int) float64 {
	return p.table.CostFor(model, inputTokens, maxOutputTokens)
}

// CheckCost classifies an estimated cost against the policy thresholds.
//
// Both boundaries are inclusive: a cost exactly equal to a threshold counts
// as crossing it.
func (p *Policy) CheckCost(estimatedCost float64) Action {
	switch {
	case estimatedCost >= p.blockThreshold:
		return ActionBlock
	case estimatedCost >= p.warnThreshold:
		return ActionWarn
	default:
		return ActionProceed
	}
}

// OrderedModels returns the primary model followed by the fallback chain.
// This is a display/summary helper; attempt resolution goes through
// ModelForAttempt, which is total.
func (p *Policy) OrderedModels() []string {
	models := make([]string, 0, 1+len(p.fallbackModels))
	models = append(models, p.primaryModel)
	models = append(models, p.fallbackModels...)
	return models
}
