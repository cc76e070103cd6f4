package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("force", false, "overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	force, _ := cmd.Flags().GetBool("force")

	if _, err := os.Stat(cfgPath); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", cfgPath)
	}

	starter := map[string]interface{}{
		"execution": map[string]interface{}{
			"parallel":        true,
			"maxConcurrency":  4,
			"maxIterations":   5,
			"timeout":         300000,
		},
		"test": map[string]interface{}{
			"runAfterGeneration": true,
			"timeout":            600000,
		},
		"git": map[string]interface{}{
			"autoCommit":            false,
			"commitMessageTemplate": "orchestra: {task}",
		},
		"agents": map[string]interface{}{
			"architect":  []string{"anthropic-api"},
			"executor":   []string{"anthropic-api"},
			"auditor":    []string{"anthropic-api"},
			"consultant": []string{"anthropic-api"},
		},
		"recovery": map[string]interface{}{
			"maxRecoveryAttempts":    2,
			"recoveryTimeoutMinutes": 15,
			"autoRevertOnFailure":    false,
		},
	}

	data, err := json.MarshalIndent(starter, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(cfgPath, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", cfgPath)
	return nil
}
