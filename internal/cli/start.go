package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hectormr206/orchestra/internal/kernel"
	"github.com/hectormr206/orchestra/internal/session"
	"github.com/hectormr206/orchestra/internal/telemetry"
)

var startCmd = &cobra.Command{
	Use:   "start [task]",
	Short: "Start a new session for task",
	Long: `Start a new session: plan the task, wait for approval, generate and
audit files, then test and commit.

Example:
  orchestra start "add rate limiting to the signup handler"`,
	Args: cobra.ExactArgs(1),
	RunE: runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
	startCmd.Flags().Bool("auto-approve", false, "skip the plan approval prompt")
	startCmd.Flags().Bool("pipeline", false, "generate and audit files independently instead of in lockstep")
}

func runStart(cmd *cobra.Command, args []string) error {
	workDir, _ := cmd.Flags().GetString("workdir")
	cfgPath, _ := cmd.Flags().GetString("config")
	autoApprove, _ := cmd.Flags().GetBool("auto-approve")
	pipeline, _ := cmd.Flags().GetBool("pipeline")

	b, err := newBootstrap(cfgPath, workDir)
	if err != nil {
		return err
	}

	sess, err := b.store.Create(session.Task(args[0]))
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	fmt.Printf("Session: %s\n", sess.ID)

	return driveKernel(b, sess, workDir, kernel.Options{
		WorkDir:     workDir,
		AutoApprove: autoApprove,
		Pipeline:    pipeline,
		OnApproval:  promptForApproval,
	})
}

func driveKernel(b *bootstrap, sess *session.Session, workDir string, opts kernel.Options) error {
	bus, err := b.eventBus(workDir, sess.ID)
	if err != nil {
		return fmt.Errorf("event bus: %w", err)
	}
	chains, err := b.chainsForRoles(bus)
	if err != nil {
		return fmt.Errorf("build adapter chains: %w", err)
	}

	if tracer, terr := telemetry.NewOTelTracer(io.Discard, "orchestra"); terr == nil {
		opts.Tracer = tracer
		defer tracer.Shutdown(context.Background())
	}
	if metrics, merr := telemetry.NewMetrics(); merr == nil {
		opts.Metrics = metrics
		defer metrics.Shutdown(context.Background())
	}
	if opts.Cache == nil {
		opts.Cache = openPromptCache(workDir, b.cfg)
	}

	k := kernel.New(b.cfg, b.store, sess, chains, bus, b.log, opts)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		fmt.Println("\nreceived interrupt, finishing the current step...")
		cancel()
	}()

	if err := k.Run(ctx); err != nil {
		return err
	}
	fmt.Printf("Session %s finished in phase %s\n", sess.ID, sess.Phase)
	return nil
}

// promptForApproval is the default ApprovalFunc for interactive terminal
// use: print the plan and ask the operator to approve, reject, or edit it.
func promptForApproval(content, planPath string) kernel.PlanDecision {
	fmt.Println("\n--- plan ---")
	fmt.Println(content)
	fmt.Println("--- end plan ---")
	fmt.Printf("Edit %s if needed, then: [a]pprove, [r]eject, [e]dited (default a): ", planPath)

	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "r", "reject":
		return kernel.DecisionReject
	case "e", "edited", "edit":
		return kernel.DecisionEdit
	default:
		return kernel.DecisionApprove
	}
}
