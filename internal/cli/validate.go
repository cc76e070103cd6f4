package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hectormr206/orchestra/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the config file without starting a session",
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	fmt.Printf("%s is valid\n", cfgPath)
	fmt.Printf("  max concurrency:  %d\n", cfg.Execution.MaxConcurrency)
	fmt.Printf("  max iterations:   %d\n", cfg.Execution.MaxIterations)
	fmt.Printf("  architect chain:  %v\n", cfg.Agents.Architect)
	fmt.Printf("  executor chain:   %v\n", cfg.Agents.Executor)
	fmt.Printf("  auditor chain:    %v\n", cfg.Agents.Auditor)
	fmt.Printf("  consultant chain: %v\n", cfg.Agents.Consultant)
	return nil
}
