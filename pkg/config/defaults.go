package config

import "time"

// ApplyDefaults fills in default values for any configuration fields that
// were not set. It is called by LoadConfig before validation.
func ApplyDefaults(cfg *Config) {
	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	// Metrics defaults
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "arbiter"
	}
	if cfg.Metrics.Subsystem == "" {
		cfg.Metrics.Subsystem = "gateway"
	}
	if len(cfg.Metrics.CostBuckets) == 0 {
		cfg.Metrics.CostBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0}
	}

	// Pricing defaults
	if cfg.Pricing.Path == "" {
		cfg.Pricing.Path = "config/pricing.yaml"
	}
	if cfg.Pricing.DebounceInterval == 0 {
		cfg.Pricing.DebounceInterval = 250 * time.Millisecond
	}

	// Usage storage defaults
	if cfg.Usage.Path == "" {
		cfg.Usage.Path = "data/usage.db"
	}
	if cfg.Usage.MaxOpenConns == 0 {
		cfg.Usage.MaxOpenConns = 10
	}
	if cfg.Usage.MaxIdleConns == 0 {
		cfg.Usage.MaxIdleConns = 5
	}
	if cfg.Usage.BusyTimeout == 0 {
		cfg.Usage.BusyTimeout = 5 * time.Second
	}

	// Limits storage defaults
	if cfg.Limits.Backend == "" {
		cfg.Limits.Backend = "memory"
	}
	if cfg.Limits.SQLite.Path == "" {
		cfg.Limits.SQLite.Path = "data/limits.db"
	}
	if cfg.Limits.SQLite.CheckpointInterval == 0 {
		cfg.Limits.SQLite.CheckpointInterval = 5 * time.Minute
	}

	// Aggregation defaults
	if cfg.Aggregation.Schedule == "" {
		cfg.Aggregation.Schedule = "15 0 * * *"
	}
}

// DefaultConfig returns a configuration with all default values applied.
func DefaultConfig() *Config {
	cfg := &Config{
		Metrics: MetricsConfig{Enabled: true},
		Usage:   UsageConfig{WALMode: true},
	}
	ApplyDefaults(cfg)
	return cfg
}
