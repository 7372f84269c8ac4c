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

var topFlags struct {
	account string
	days    int
	n       int
	format  string
}

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Show the most expensive models",
	Long: `Rank models by total cost over a date range.

Like stats, this reads daily summaries; run "arbiter aggregate" first if
recent days are missing.

Examples:
  # Top 10 models across all accounts, last 30 days
  arbiter top

  # Top 3 models for one account, last 7 days
  arbiter top --account team-research --days 7 -n 3`,
	RunE: runTop,
}

func init() {
	rootCmd.AddCommand(topCmd)

	topCmd.Flags().StringVar(&topFlags.account, "account", "", "account ID (empty for all accounts)")
	topCmd.Flags().IntVar(&topFlags.days, "days", 30, "number of days to include")
	topCmd.Flags().IntVarP(&topFlags.n, "number", "n", 10, "number of models to show")
	topCmd.Flags().StringVar(&topFlags.format, "format", "text", "output format: text, json")
}

func runTop(cmd *cobra.Command, args []string) error {
	if topFlags.days <= 0 {
		return fmt.Errorf("--days must be positive, got %d", topFlags.days)
	}

	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	initLogging(&cfg.Logging)

	store, err := newUsageStore(cfg)
	if err != nil {
		return cli.NewCommandError("top", err)
	}
	defer store.Close()

	aggregator, err := aggregate.NewAggregator(aggregate.Config{Store: store})
	if err != nil {
		return cli.NewCommandError("top", err)
	}

	ctx := context.Background()
	to := usage.DateOf(time.Now())
	from := to.AddDate(0, 0, -(topFlags.days - 1))

	models, err := aggregator.TopModels(ctx, topFlags.account, from, to, topFlags.n)
	if err != nil {
		return cli.NewCommandError("top", err)
	}

	if topFlags.format == "json" {
		formatter := cli.NewFormatter(cli.FormatJSON)
		return formatter.FormatTo(os.Stdout, models)
	}

	if len(models) == 0 {
		fmt.Println("No usage recorded in range.")
		return nil
	}

	fmt.Printf("Top models by cost, %s to %s\n\n", from.Format("2006-01-02"), to.Format("2006-01-02"))
	for i, model := range models {
		fmt.Printf("  %d. %-24s $%.4f (%d requests, %d in / %d out tokens)\n",
			i+1, model.Model, model.TotalCost, model.RequestCount,
			model.InputTokens, model.OutputTokens)
	}
	return nil
}
