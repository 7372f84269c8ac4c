package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. Use LoadConfigWithEnvOverrides to also honor environment
// variables.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides. Environment variables follow the
// naming convention ARBITER_SECTION_FIELD (e.g., ARBITER_PRICING_PATH) and
// always take precedence over file-based configuration.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration.
func applyEnvOverrides(cfg *Config) {
	// Logging overrides
	if val := os.Getenv("ARBITER_LOGGING_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("ARBITER_LOGGING_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}

	// Metrics overrides
	if val := os.Getenv("ARBITER_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("ARBITER_METRICS_PATH"); val != "" {
		cfg.Metrics.Path = val
	}
	if val := os.Getenv("ARBITER_METRICS_PORT"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Metrics.Port = i
		}
	}

	// Pricing overrides
	if val := os.Getenv("ARBITER_PRICING_PATH"); val != "" {
		cfg.Pricing.Path = val
	}
	if val := os.Getenv("ARBITER_PRICING_WATCH"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Pricing.Watch = b
		}
	}
	if val := os.Getenv("ARBITER_PRICING_DEBOUNCE_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Pricing.DebounceInterval = d
		}
	}

	// Usage storage overrides
	if val := os.Getenv("ARBITER_USAGE_PATH"); val != "" {
		cfg.Usage.Path = val
	}

	// Limits storage overrides
	if val := os.Getenv("ARBITER_LIMITS_BACKEND"); val != "" {
		cfg.Limits.Backend = val
	}
	if val := os.Getenv("ARBITER_LIMITS_SQLITE_PATH"); val != "" {
		cfg.Limits.SQLite.Path = val
	}

	// Aggregation overrides
	if val := os.Getenv("ARBITER_AGGREGATION_SCHEDULE"); val != "" {
		cfg.Aggregation.Schedule = val
	}
	if val := os.Getenv("ARBITER_AGGREGATION_REPLACE_EXISTING"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Aggregation.ReplaceExisting = b
		}
	}
}
