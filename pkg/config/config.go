package config

import (
	"time"

	"arbiter-ai/arbiter/pkg/limits/spend"
	"arbiter-ai/arbiter/pkg/routing"
)

// Config is the root configuration structure for Arbiter.
// It contains all configuration sections: logging, metrics, the model
// pricing table, usage storage, limit storage, the aggregation job, routing
// policies, and per-account assignments.
type Config struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Pricing contains model pricing table configuration.
	Pricing PricingConfig `yaml:"pricing"`

	// Usage contains usage record storage configuration.
	Usage UsageConfig `yaml:"usage"`

	// Limits contains limit tracker persistence configuration.
	Limits LimitsConfig `yaml:"limits"`

	// Aggregation contains the daily aggregation job configuration.
	Aggregation AggregationConfig `yaml:"aggregation"`

	// Policies contains named routing policies.
	// Keys are policy names referenced by accounts.
	Policies map[string]routing.PolicyConfig `yaml:"policies"`

	// Accounts maps account IDs to their policy and spending limits.
	Accounts map[string]AccountConfig `yaml:"accounts"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Port is the port for the metrics HTTP listener.
	// Default: 9090
	Port int `yaml:"port"`

	// Namespace is the metric name prefix.
	// Default: "arbiter"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "gateway"
	Subsystem string `yaml:"subsystem"`

	// CostBuckets defines histogram buckets for per-request cost (USD).
	// Default: [0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0]
	CostBuckets []float64 `yaml:"cost_buckets"`
}

// PricingConfig contains model pricing table configuration.
type PricingConfig struct {
	// Path is the pricing YAML file.
	// Default: "config/pricing.yaml"
	Path string `yaml:"path"`

	// Watch enables automatic reloading when the pricing file changes.
	// Default: false
	Watch bool `yaml:"watch"`

	// DebounceInterval coalesces rapid file change events when watching.
	// Default: 250ms
	DebounceInterval time.Duration `yaml:"debounce_interval"`
}

// UsageConfig contains usage record storage configuration.
type UsageConfig struct {
	// Path is the file path for the usage SQLite database.
	// Default: "data/usage.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open database connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle database connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// LimitsConfig contains limit tracker persistence configuration.
type LimitsConfig struct {
	// Backend specifies the storage backend for tracker counters.
	// Options: "memory", "sqlite"
	// Default: "memory"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite-specific configuration.
	SQLite LimitsSQLiteConfig `yaml:"sqlite"`
}

// LimitsSQLiteConfig contains SQLite storage configuration for limits.
type LimitsSQLiteConfig struct {
	// Path is the path to the SQLite database file.
	// Default: "data/limits.db"
	Path string `yaml:"path"`

	// CheckpointInterval is how often to checkpoint the WAL.
	// Default: 5m
	CheckpointInterval time.Duration `yaml:"checkpoint_interval"`
}

// AggregationConfig contains the daily aggregation job configuration.
type AggregationConfig struct {
	// Schedule is a cron expression for the aggregation job.
	// Empty disables scheduled aggregation.
	// Default: "15 0 * * *" (daily at 00:15)
	Schedule string `yaml:"schedule"`

	// ReplaceExisting makes re-aggregation recompute summaries from
	// scratch instead of adding onto existing rows.
	// Default: false
	ReplaceExisting bool `yaml:"replace_existing"`
}

// AccountConfig contains the policy assignment and spending limits for one
// account.
type AccountConfig struct {
	// Policy is the name of the routing policy this account uses.
	// Must match a key in the top-level policies section.
	Policy string `yaml:"policy"`

	// Spending contains the account's spending and rate limits.
	Spending spend.Config `yaml:"spending"`
}
