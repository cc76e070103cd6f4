package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hectormr206/orchestra/internal/adapter"
	"github.com/hectormr206/orchestra/internal/config"

	_ "github.com/hectormr206/orchestra/internal/adapter/hosted"
	_ "github.com/hectormr206/orchestra/internal/adapter/plugin"
	_ "github.com/hectormr206/orchestra/internal/adapter/subprocess"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that every configured adapter is registered and available",
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	roles := map[string][]string{
		"architect":  cfg.Agents.Architect,
		"executor":   cfg.Agents.Executor,
		"auditor":    cfg.Agents.Auditor,
		"consultant": cfg.Agents.Consultant,
	}

	ok := true
	for role, names := range roles {
		for _, name := range names {
			if !adapter.Exists(name) {
				fmt.Printf("[FAIL] %-10s %-20s not registered\n", role, name)
				ok = false
				continue
			}
			a, err := adapter.Get(name)
			if err != nil {
				fmt.Printf("[FAIL] %-10s %-20s %v\n", role, name, err)
				ok = false
				continue
			}
			if a.IsAvailable(context.Background()) {
				fmt.Printf("[ OK ] %-10s %-20s\n", role, name)
			} else {
				fmt.Printf("[WARN] %-10s %-20s registered but not available (missing credentials?)\n", role, name)
			}
		}
	}
	if !ok {
		return fmt.Errorf("one or more configured adapters are not registered")
	}
	return nil
}
