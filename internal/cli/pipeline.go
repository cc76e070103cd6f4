package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hectormr206/orchestra/internal/kernel"
	"github.com/hectormr206/orchestra/internal/session"
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline [task]",
	Short: "Start a session in pipeline mode",
	Long: `Pipeline mode generates and audits each planned file independently,
instead of waiting for every file in a round before auditing any of
them. Approval is always automatic in pipeline mode.`,
	Args: cobra.ExactArgs(1),
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(pipelineCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
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
	fmt.Printf("Session: %s (pipeline mode)\n", sess.ID)

	return driveKernel(b, sess, workDir, kernel.Options{
		WorkDir:     workDir,
		AutoApprove: true,
		Pipeline:    true,
	})
}
