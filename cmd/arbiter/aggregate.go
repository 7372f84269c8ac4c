package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"arbiter-ai/arbiter/pkg/cli"
	"arbiter-ai/arbiter/pkg/config"
	"arbiter-ai/arbiter/pkg/usage/aggregate"
)

var aggregateFlags struct {
	date    string
	replace bool
}

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Aggregate usage records into daily summaries",
	Long: `Aggregate raw usage records into per-account daily summaries.

Without flags, all completed days since the last aggregation watermark are
processed. The current day is never aggregated; its records are still
arriving.

Re-running a day adds onto its existing summaries. Use --replace to
recompute a day's summaries from scratch instead.

Examples:
  # Aggregate all pending days
  arbiter aggregate

  # Re-aggregate a specific day
  arbiter aggregate --date 2026-08-29 --replace`,
	RunE: runAggregation,
}

func init() {
	rootCmd.AddCommand(aggregateCmd)

	aggregateCmd.Flags().StringVar(&aggregateFlags.date, "date", "", "aggregate a single day (YYYY-MM-DD)")
	aggregateCmd.Flags().BoolVar(&aggregateFlags.replace, "replace", false, "recompute summaries instead of adding onto them")
}

func runAggregation(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	initLogging(&cfg.Logging)

	store, err := newUsageStore(cfg)
	if err != nil {
		return cli.NewCommandError("aggregate", err)
	}
	defer store.Close()

	aggregator, err := aggregate.NewAggregator(aggregate.Config{
		Store:           store,
		ReplaceExisting: aggregateFlags.replace || cfg.Aggregation.ReplaceExisting,
	})
	if err != nil {
		return cli.NewCommandError("aggregate", err)
	}

	ctx := context.Background()

	if aggregateFlags.date != "" {
		day, err := time.ParseInLocation("2006-01-02", aggregateFlags.date, time.UTC)
		if err != nil {
			return fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", aggregateFlags.date, err)
		}

		count, err := aggregator.AggregateForDate(ctx, day)
		if err != nil {
			return cli.NewCommandError("aggregate", err)
		}
		fmt.Printf("✓ Aggregated %s (%d summaries)\n", aggregateFlags.date, count)
		return nil
	}

	if err := aggregator.AggregatePending(ctx); err != nil {
		return cli.NewCommandError("aggregate", err)
	}
	fmt.Println("✓ Aggregation complete")
	return nil
}
