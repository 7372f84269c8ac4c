package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"arbiter-ai/arbiter/pkg/cli"
	"arbiter-ai/arbiter/pkg/config"
	"arbiter-ai/arbiter/pkg/usage"
	"arbiter-ai/arbiter/pkg/usage/aggregate"
)

var statsFlags struct {
	account string
	days    int
	top     int
	format  string
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show usage statistics",
	Long: `Show aggregated usage statistics from daily summaries.

Statistics come from the daily summaries produced by aggregation; run
"arbiter aggregate" first if recent days are missing.

Examples:
  # Last 30 days for one account
  arbiter stats --account team-research

  # Top 5 models across all accounts, last 7 days
  arbiter stats --days 7 --top 5

  # Machine-readable output
  arbiter stats --account team-research --format json`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().StringVar(&statsFlags.account, "account", "", "account ID (empty for all accounts)")
	statsCmd.Flags().IntVar(&statsFlags.days, "days", 30, "number of days to include")
	statsCmd.Flags().IntVar(&statsFlags.top, "top", 10, "number of top models to show")
	statsCmd.Flags().StringVar(&statsFlags.format, "format", "text", "output format: text, json")
}

func runStats(cmd *cobra.Command, args []string) error {
	if statsFlags.days <= 0 {
		return fmt.Errorf("--days must be positive, got %d", statsFlags.days)
	}

	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	initLogging(&cfg.Logging)

	store, err := newUsageStore(cfg)
	if err != nil {
		return cli.NewCommandError("stats", err)
	}
	defer store.Close()

	aggregator, err := aggregate.NewAggregator(aggregate.Config{Store: store})
	if err != nil {
		return cli.NewCommandError("stats", err)
	}

	ctx := context.Background()
	to := usage.DateOf(time.Now())
	from := to.AddDate(0, 0, -(statsFlags.days - 1))

	stats, err := aggregator.StatsForAccount(ctx, statsFlags.account, from, to)
	if err != nil {
		return cli.NewCommandError("stats", err)
	}
	topModels, err := aggregator.TopModels(ctx, statsFlags.account, from, to, statsFlags.top)
	if err != nil {
		return cli.NewCommandError("stats", err)
	}

	if statsFlags.format == "json" {
		formatter := cli.NewFormatter(cli.FormatJSON)
		return formatter.FormatTo(os.Stdout, map[string]interface{}{
			"from":       from.Format("2006-01-02"),
			"to":         to.Format("2006-01-02"),
			"stats":      stats,
			"top_models": topModels,
		})
	}

	if statsFlags.account != "" {
		fmt.Printf("Usage for account %s, %s to %s\n\n",
			statsFlags.account, from.Format("2006-01-02"), to.Format("2006-01-02"))
	} else {
		fmt.Printf("Usage across all accounts, %s to %s\n\n",
			from.Format("2006-01-02"), to.Format("2006-01-02"))
	}

	fmt.Printf("Requests:      %d\n", stats.RequestCount)
	fmt.Printf("Input tokens:  %d\n", stats.InputTokens)
	fmt.Printf("Output tokens: %d\n", stats.OutputTokens)
	fmt.Printf("Total cost:    $%.4f\n", stats.TotalCost)

	if len(stats.ByProvider) > 0 {
		fmt.Println("\nBy provider:")
		for provider, cost := range stats.ByProvider {
			fmt.Printf("  %-20s $%.4f\n", provider, cost)
		}
	}

	if len(topModels) > 0 {
		fmt.Println("\nTop models by cost:")
		for i, model := range topModels {
			fmt.Printf("  %d. %-24s $%.4f (%d requests)\n",
				i+1, model.Model, model.TotalCost, model.RequestCount)
		}
	}

	return nil
}
