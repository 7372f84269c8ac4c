package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"arbiter-ai/arbiter/pkg/config"
	"arbiter-ai/arbiter/pkg/pricing"
	"arbiter-ai/arbiter/pkg/routing"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Validate the configuration file and everything it references.

The validate command checks:
  - Configuration file syntax and field values
  - The pricing table file loads and parses
  - Every routing policy resolves against the pricing table
  - Every account references an existing policy

Examples:
  # Validate the default config
  arbiter validate

  # Validate a specific config
  arbiter validate --config /etc/arbiter/arbiter.yaml`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		var validationErr *config.ValidationError
		if errors.As(err, &validationErr) {
			fmt.Printf("Configuration invalid (%d errors):\n\n", len(validationErr.Errors))
			for _, fieldErr := range validationErr.Errors {
				fmt.Printf("  ✗ %s: %s\n", fieldErr.Field, fieldErr.Message)
			}
			return fmt.Errorf("configuration validation failed")
		}
		return err
	}
	fmt.Println("✓ Configuration valid")

	table, err := pricing.LoadTable(cfg.Pricing.Path)
	if err != nil {
		fmt.Printf("  ✗ pricing table: %v\n", err)
		return fmt.Errorf("pricing table validation failed")
	}
	fmt.Printf("✓ Pricing table loaded (%d models)\n", table.Len())

	for name, policyCfg := range cfg.Policies {
		policyCfg.Name = name
		policy, err := routing.NewPolicy(policyCfg, table)
		if err != nil {
			fmt.Printf("  ✗ policy %q: %v\n", name, err)
			return fmt.Errorf("policy validation failed")
		}

		// An unpriced model in the chain is legal but worth surfacing.
		for _, model := range policy.OrderedModels() {
			if _, priced := table.Cost(model); !priced {
				fmt.Printf("  ! policy %q: model %q not in pricing table\n", name, model)
			}
		}
	}
	fmt.Printf("✓ Routing policies valid (%d policies)\n", len(cfg.Policies))
	fmt.Printf("✓ Accounts valid (%d accounts)\n", len(cfg.Accounts))

	return nil
}
