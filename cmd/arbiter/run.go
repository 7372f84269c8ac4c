package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"arbiter-ai/arbiter/pkg/cli"
	"arbiter-ai/arbiter/pkg/config"
	"arbiter-ai/arbiter/pkg/limits"
	"arbiter-ai/arbiter/pkg/pricing"
	"arbiter-ai/arbiter/pkg/routing"
	"arbiter-ai/arbiter/pkg/telemetry/metrics"
	"arbiter-ai/arbiter/pkg/usage/aggregate"
)

var runFlags struct {
	logLevel string
	dryRun   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Arbiter accounting daemon",
	Long: `Start the Arbiter accounting daemon with the specified configuration.

The daemon keeps the pricing table in sync with its file, runs the daily
usage aggregation on schedule, persists limit tracker counters, and serves
Prometheus metrics.

Examples:
  # Start with default config
  arbiter run

  # Start with custom config
  arbiter run --config /etc/arbiter/arbiter.yaml

  # Override log level
  arbiter run --log-level debug

  # Validate config without starting
  arbiter run --dry-run`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the daemon")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	// Apply flag overrides
	if runFlags.logLevel != "" {
		cfg.Logging.Level = runFlags.logLevel
	}

	initLogging(&cfg.Logging)

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Arbiter v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load the pricing table and keep it in sync with its file.
	slog.Info("loading pricing table", "path", cfg.Pricing.Path)
	table, err := pricing.LoadTable(cfg.Pricing.Path)
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to load pricing table: %w", err))
	}
	fmt.Printf("✓ Pricing table loaded (%d models)\n", table.Len())

	if cfg.Pricing.Watch {
		watcher, err := pricing.NewWatcher(table, pricing.WatcherConfig{
			Path:             cfg.Pricing.Path,
			DebounceInterval: cfg.Pricing.DebounceInterval,
		})
		if err != nil {
			return cli.NewCommandError("run", fmt.Errorf("failed to create pricing watcher: %w", err))
		}
		defer watcher.Close()
		go func() {
			if err := watcher.Watch(ctx); err != nil {
				slog.Error("pricing watcher stopped", "error", err)
			}
		}()
		fmt.Println("✓ Pricing watcher started")
	}

	// Validate routing policies against the pricing table up front.
	for name, policyCfg := range cfg.Policies {
		policyCfg.Name = name
		if _, err := routing.NewPolicy(policyCfg, table); err != nil {
			return cli.NewCommandError("run", fmt.Errorf("invalid policy %q: %w", name, err))
		}
	}
	fmt.Printf("✓ Routing policies validated (%d policies)\n", len(cfg.Policies))

	// Metrics collector, shared by the limits manager and the HTTP endpoint.
	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(&cfg.Metrics, prometheus.NewRegistry())
	}

	// Limits manager with the configured persistence backend.
	backend, err := newLimitsBackend(cfg)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	manager := limits.NewManager(limits.Config{
		Accounts: accountLimits(cfg),
		Storage:  backend,
		Metrics:  collector,
	})
	defer func() {
		if err := manager.Close(); err != nil {
			slog.Error("failed to close limits manager", "error", err)
		}
	}()
	fmt.Printf("✓ Limits manager initialized (%d accounts, %s backend)\n",
		len(manager.Accounts()), cfg.Limits.Backend)

	// Usage store and scheduled aggregation.
	store, err := newUsageStore(cfg)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer store.Close()
	fmt.Println("✓ Usage store initialized")

	aggregator, err := aggregate.NewAggregator(aggregate.Config{
		Store:           store,
		ReplaceExisting: cfg.Aggregation.ReplaceExisting,
	})
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	if cfg.Aggregation.Schedule != "" {
		scheduler := aggregate.NewScheduler(aggregator, cfg.Aggregation.Schedule)
		if err := scheduler.Start(ctx); err != nil {
			return cli.NewCommandError("run", fmt.Errorf("failed to start aggregation scheduler: %w", err))
		}
		defer scheduler.Stop()
		if next := scheduler.NextRun(); next != nil {
			slog.Info("aggregation scheduler started", "next_run", next)
		}
		fmt.Println("✓ Aggregation scheduler started")
	}

	// Metrics endpoint.
	var metricsServer *http.Server
	errChan := make(chan error, 1)
	if collector != nil {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, collector.Handler())
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			fmt.Fprintln(w, "ok")
		})

		metricsServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler: mux,
		}
		go func() {
			slog.Info("starting metrics server", "port", cfg.Metrics.Port, "path", cfg.Metrics.Path)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errChan <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
		fmt.Printf("✓ Metrics endpoint: http://localhost:%d%s\n", cfg.Metrics.Port, cfg.Metrics.Path)
	}

	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for shutdown signal or server error
	sigChan := cli.WaitForShutdown()

	select {
	case err := <-errChan:
		return cli.NewCommandError("run", err)
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal %s, shutting down gracefully...\n", sig)
		cancel()

		if metricsServer != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", "error", err)
			}
		}

		fmt.Println("✓ Daemon stopped")
		return nil
	}
}

// initLogging installs the process-wide logger per the logging configuration.
func initLogging(cfg *config.LoggingConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
