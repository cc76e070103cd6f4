package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hectormr206/orchestra/internal/kernel"
	"github.com/hectormr206/orchestra/internal/session"
)

var watchCmd = &cobra.Command{
	Use:   "watch [task]",
	Short: "Start a session and keep re-planning on file changes",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().Bool("auto-approve", false, "skip the plan approval prompt on every re-run")
}

func runWatch(cmd *cobra.Command, args []string) error {
	workDir, _ := cmd.Flags().GetString("workdir")
	cfgPath, _ := cmd.Flags().GetString("config")
	autoApprove, _ := cmd.Flags().GetBool("auto-approve")

	b, err := newBootstrap(cfgPath, workDir)
	if err != nil {
		return err
	}
	sess, err := b.store.Create(session.Task(args[0]))
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	fmt.Printf("Session: %s (watching %s)\n", sess.ID, workDir)

	bus, err := b.eventBus(workDir, sess.ID)
	if err != nil {
		return err
	}
	chains, err := b.chainsForRoles(bus)
	if err != nil {
		return err
	}
	k := kernel.New(b.cfg, b.store, sess, chains, bus, b.log, kernel.Options{
		WorkDir:     workDir,
		AutoApprove: autoApprove,
		OnApproval:  promptForApproval,
		Cache:       openPromptCache(workDir, b.cfg),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		fmt.Println("\nstopping watch...")
		cancel()
	}()

	return k.Watch(ctx)
}
