package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const validYAML = `
logging:
  level: debug
  format: text

pricing:
  path: testdata/pricing.yaml
  watch: true

limits:
  backend: sqlite
  sqlite:
    path: /tmp/limits.db

aggregation:
  schedule: "30 1 * * *"
  replace_existing: true

policies:
  default:
    name: default
    primary_model: gpt-4o
    fallback_models: [claude-sonnet-4, gpt-4o-mini]
    cost_threshold_warning: 1.00
    cost_threshold_block: 5.00

accounts:
  team-research:
    policy: default
    spending:
      daily_limit: 50.00
      enabled: true
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected log level debug, got %s", cfg.Logging.Level)
	}
	if cfg.Pricing.Path != "testdata/pricing.yaml" {
		t.Errorf("Unexpected pricing path: %s", cfg.Pricing.Path)
	}
	if !cfg.Pricing.Watch {
		t.Error("Expected pricing watch enabled")
	}
	if cfg.Limits.Backend != "sqlite" {
		t.Errorf("Expected sqlite backend, got %s", cfg.Limits.Backend)
	}
	if cfg.Aggregation.Schedule != "30 1 * * *" {
		t.Errorf("Unexpected aggregation schedule: %s", cfg.Aggregation.Schedule)
	}
	if !cfg.Aggregation.ReplaceExisting {
		t.Error("Expected replace_existing enabled")
	}

	policy, ok := cfg.Policies["default"]
	if !ok {
		t.Fatal("Expected default policy")
	}
	if policy.PrimaryModel != "gpt-4o" {
		t.Errorf("Unexpected primary model: %s", policy.PrimaryModel)
	}
	if len(policy.FallbackModels) != 2 {
		t.Errorf("Expected 2 fallback models, got %d", len(policy.FallbackModels))
	}

	account, ok := cfg.Accounts["team-research"]
	if !ok {
		t.Fatal("Expected team-research account")
	}
	if account.Policy != "default" {
		t.Errorf("Unexpected account policy: %s", account.Policy)
	}
	if account.Spending.DailyLimit != 50.00 {
		t.Errorf("Unexpected daily limit: %v", account.Spending.DailyLimit)
	}
}

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "pricing:\n  path: p.yaml\n"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("Expected default level info, got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected default format json, got %s", cfg.Logging.Format)
	}
	if cfg.Metrics.Namespace != "arbiter" {
		t.Errorf("Expected default namespace arbiter, got %s", cfg.Metrics.Namespace)
	}
	if cfg.Limits.Backend != "memory" {
		t.Errorf("Expected default memory backend, got %s", cfg.Limits.Backend)
	}
	if cfg.Usage.Path != "data/usage.db" {
		t.Errorf("Expected default usage path, got %s", cfg.Usage.Path)
	}
	if cfg.Pricing.DebounceInterval != 250*time.Millisecond {
		t.Errorf("Expected default debounce 250ms, got %v", cfg.Pricing.DebounceInterval)
	}
	if cfg.Aggregation.Schedule != "15 0 * * *" {
		t.Errorf("Expected default schedule, got %s", cfg.Aggregation.Schedule)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	if _, err := LoadConfig(writeConfig(t, "pricing: [not a map")); err == nil {
		t.Error("Expected error for malformed YAML")
	}
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "loud"
	cfg.Limits.Backend = "redis"
	cfg.Aggregation.Schedule = "whenever"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error")
	}

	var validationErr ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("Expected ValidationError, got %T", err)
	}
	if len(validationErr.Errors) != 3 {
		t.Errorf("Expected 3 field errors, got %d: %v", len(validationErr.Errors), validationErr)
	}
}

func TestValidate_PolicyThresholds(t *testing.T) {
	yaml := validYAML + `
  team-other:
    policy: default
`
	cfg, err := LoadConfig(writeConfig(t, yaml))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	// Inverted thresholds rejected.
	policy := cfg.Policies["default"]
	policy.CostThresholdWarning = 5.00
	policy.CostThresholdBlock = 1.00
	cfg.Policies["default"] = policy
	if err := Validate(cfg); err == nil {
		t.Error("Expected error for inverted thresholds")
	}
}

func TestValidate_UnknownAccountPolicy(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	account := cfg.Accounts["team-research"]
	account.Policy = "no-such-policy"
	cfg.Accounts["team-research"] = account

	if err := Validate(cfg); err == nil {
		t.Error("Expected error for unknown policy reference")
	}
}

func TestValidate_AccountWithoutLimitsAllowed(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	cfg.Accounts["team-free"] = AccountConfig{Policy: "default"}
	if err := Validate(cfg); err != nil {
		t.Errorf("Expected account without limits to validate, got %v", err)
	}
}

func TestValidate_NegativeSpendingLimitRejected(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	account := cfg.Accounts["team-research"]
	account.Spending.WeeklyLimit = -5.00
	cfg.Accounts["team-research"] = account

	if err := Validate(cfg); err == nil {
		t.Error("Expected error for negative limit")
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	t.Setenv("ARBITER_LOGGING_LEVEL", "warn")
	t.Setenv("ARBITER_PRICING_PATH", "/etc/arbiter/pricing.yaml")
	t.Setenv("ARBITER_METRICS_PORT", "9191")

	cfg, err := LoadConfigWithEnvOverrides(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides failed: %v", err)
	}

	if cfg.Logging.Level != "warn" {
		t.Errorf("Expected env-overridden level warn, got %s", cfg.Logging.Level)
	}
	if cfg.Pricing.Path != "/etc/arbiter/pricing.yaml" {
		t.Errorf("Expected env-overridden pricing path, got %s", cfg.Pricing.Path)
	}
	if cfg.Metrics.Port != 9191 {
		t.Errorf("Expected env-overridden port 9191, got %d", cfg.Metrics.Port)
	}
}
