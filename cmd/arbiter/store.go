package main

import (
	"fmt"

	"arbiter-ai/arbiter/pkg/config"
	"arbiter-ai/arbiter/pkg/limits/spend"
	"arbiter-ai/arbiter/pkg/limits/storage"
	"arbiter-ai/arbiter/pkg/usage"
)

// newUsageStore opens the usage database configured in cfg.
func newUsageStore(cfg *config.Config) (*usage.SQLiteStore, error) {
	store, err := usage.NewSQLiteStore(&usage.SQLiteConfig{
		Path:         cfg.Usage.Path,
		MaxOpenConns: cfg.Usage.MaxOpenConns,
		MaxIdleConns: cfg.Usage.MaxIdleConns,
		WALMode:      cfg.Usage.WALMode,
		BusyTimeout:  cfg.Usage.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open usage store: %w", err)
	}
	return store, nil
}

// newLimitsBackend creates the tracker persistence backend configured in cfg.
func newLimitsBackend(cfg *config.Config) (storage.Backend, error) {
	switch cfg.Limits.Backend {
	case "sqlite":
		backend, err := storage.NewSQLiteBackendWithConfig(storage.SQLiteBackendConfig{
			DBPath:             cfg.Limits.SQLite.Path,
			CheckpointInterval: cfg.Limits.SQLite.CheckpointInterval,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open limits backend: %w", err)
		}
		return backend, nil
	case "memory", "":
		return storage.NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unsupported limits backend: %s", cfg.Limits.Backend)
	}
}

// accountLimits extracts the spending configurations of accounts that have
// limits configured. Accounts without limits are tracked by no one and pass
// every check.
func accountLimits(cfg *config.Config) map[string]spend.Config {
	accounts := make(map[string]spend.Config)
	for accountID, account := range cfg.Accounts {
		if err := account.Spending.Validate(); err != nil {
			continue
		}
		accounts[accountID] = account.Spending
	}
	return accounts
}
