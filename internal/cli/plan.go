package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hectormr206/orchestra/internal/kernel"
	"github.com/hectormr206/orchestra/internal/session"
)

var planCmd = &cobra.Command{
	Use:   "plan [task]",
	Short: "Run only the planning phase and print the resulting plan",
	Long: `Runs the architect role against task and writes plan.md under the
session's .orchestra directory, then stops — useful for previewing what
a session would do without generating or auditing anything.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlanOnly,
}

func init() {
	rootCmd.AddCommand(planCmd)
}

func runPlanOnly(cmd *cobra.Command, args []string) error {
	workDir, _ := cmd.Flags().GetString("workdir")
	cfgPath, _ := cmd.Flags().GetString("config")

	b, err := newBootstrap(cfgPath, workDir)
	if err != nil {
		return err
	}
	sess, err := b.store.Create(session.Task(args[0]))
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	bus, err := b.eventBus(workDir, sess.ID)
	if err != nil {
		return err
	}
	chains, err := b.chainsForRoles(bus)
	if err != nil {
		return err
	}

	stopAfterPlan := func(content, planPath string) kernel.PlanDecision {
		fmt.Println("\n--- plan ---")
		fmt.Println(content)
		fmt.Println("--- end plan ---")
		fmt.Printf("Plan written to %s\n", planPath)
		return kernel.DecisionReject
	}
	k := kernel.New(b.cfg, b.store, sess, chains, bus, b.log, kernel.Options{
		WorkDir:    workDir,
		OnApproval: stopAfterPlan,
	})

	if err := k.Run(context.Background()); err != nil {
		return err
	}
	fmt.Printf("Session %s planned %d file(s).\n", sess.ID, len(sess.Files))
	return nil
}
