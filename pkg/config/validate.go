package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"

	"arbiter-ai/arbiter/pkg/limits/spend"
	"arbiter-ai/arbiter/pkg/routing"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "pricing.path").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateLogging(&cfg.Logging)...)
	errs = append(errs, validateMetrics(&cfg.Metrics)...)
	errs = append(errs, validatePricing(&cfg.Pricing)...)
	errs = append(errs, validateLimits(&cfg.Limits)...)
	errs = append(errs, validateAggregation(&cfg.Aggregation)...)
	errs = append(errs, validatePolicies(cfg.Policies)...)
	errs = append(errs, validateAccounts(cfg)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateLogging validates logging configuration.
func validateLogging(cfg *LoggingConfig) []FieldError {
	var errs []FieldError

	switch cfg.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level %q (must be debug, info, warn, or error)", cfg.Level),
		})
	}

	switch cfg.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format %q (must be json or text)", cfg.Format),
		})
	}

	return errs
}

// validateMetrics validates metrics configuration.
func validateMetrics(cfg *MetricsConfig) []FieldError {
	var errs []FieldError

	if cfg.Port < 0 || cfg.Port > 65535 {
		errs = append(errs, FieldError{
			Field:   "metrics.port",
			Message: fmt.Sprintf("invalid port %d", cfg.Port),
		})
	}
	if cfg.Path != "" && !strings.HasPrefix(cfg.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "metrics.path",
			Message: "metrics path must start with /",
		})
	}

	return errs
}

// validatePricing validates pricing configuration.
func validatePricing(cfg *PricingConfig) []FieldError {
	var errs []FieldError

	if cfg.Path == "" {
		errs = append(errs, FieldError{
			Field:   "pricing.path",
			Message: "pricing file path is required",
		})
	}
	if cfg.DebounceInterval < 0 {
		errs = append(errs, FieldError{
			Field:   "pricing.debounce_interval",
			Message: "debounce interval must be non-negative",
		})
	}

	return errs
}

// validateLimits validates limit storage configuration.
func validateLimits(cfg *LimitsConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "limits.sqlite.path",
				Message: "database path is required for the sqlite backend",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "limits.backend",
			Message: fmt.Sprintf("invalid backend %q (must be memory or sqlite)", cfg.Backend),
		})
	}

	return errs
}

// validateAggregation validates the aggregation job configuration.
func validateAggregation(cfg *AggregationConfig) []FieldError {
	var errs []FieldError

	if cfg.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "aggregation.schedule",
				Message: fmt.Sprintf("invalid cron schedule %q: %v", cfg.Schedule, err),
			})
		}
	}

	return errs
}

// validatePolicies validates the named routing policies. Full policy
// validation happens when policies are instantiated against the pricing
// table; here we check the structural rules that need no table.
func validatePolicies(policies map[string]routing.PolicyConfig) []FieldError {
	var errs []FieldError

	for name, policy := range policies {
		if policy.PrimaryModel == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("policies.%s.primary_model", name),
				Message: "primary model is required",
			})
		}
		if policy.CostThresholdWarning <= 0 {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("policies.%s.cost_threshold_warning", name),
				Message: "warning threshold must be positive",
			})
		}
		if policy.CostThresholdBlock <= policy.CostThresholdWarning {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("policies.%s.cost_threshold_block", name),
				Message: "block threshold must be greater than the warning threshold",
			})
		}
	}

	return errs
}

// validateAccounts validates account configuration.
func validateAccounts(cfg *Config) []FieldError {
	var errs []FieldError

	for accountID, account := range cfg.Accounts {
		if account.Policy == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("accounts.%s.policy", accountID),
				Message: "policy name is required",
			})
		} else if _, ok := cfg.Policies[account.Policy]; !ok {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("accounts.%s.policy", accountID),
				Message: fmt.Sprintf("unknown policy %q", account.Policy),
			})
		}

		// Accounts without limits are valid; only malformed limits are errors.
		if err := account.Spending.Validate(); err != nil && !errors.Is(err, spend.ErrNoLimitsConfigured) {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("accounts.%s.spending", accountID),
				Message: err.Error(),
			})
		}
	}

	return errs
}
