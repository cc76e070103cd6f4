package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hectormr206/orchestra/internal/kernel"
)

var resumeCmd = &cobra.Command{
	Use:   "resume [session-id]",
	Short: "Resume an interrupted session",
	Long: `Resume a session from its last saved phase. Without a session ID,
resumes the most recently resumable session in the working directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResume,
}

func init() {
	rootCmd.AddCommand(resumeCmd)
	resumeCmd.Flags().Bool("auto-approve", false, "skip the plan approval prompt")
}

func runResume(cmd *cobra.Command, args []string) error {
	workDir, _ := cmd.Flags().GetString("workdir")
	cfgPath, _ := cmd.Flags().GetString("config")
	autoApprove, _ := cmd.Flags().GetBool("auto-approve")

	var id string
	if len(args) == 1 {
		id = args[0]
	}

	b, err := newBootstrap(cfgPath, workDir)
	if err != nil {
		return err
	}

	sess, err := b.openOrCreateSession("", id)
	if err != nil {
		return err
	}
	if !sess.CanResume() {
		return fmt.Errorf("session %s is in terminal phase %s and cannot be resumed", sess.ID, sess.Phase)
	}
	fmt.Printf("Resuming session %s from phase %s\n", sess.ID, sess.Phase)

	return driveKernel(b, sess, workDir, kernel.Options{
		WorkDir:     workDir,
		AutoApprove: autoApprove,
		OnApproval:  promptForApproval,
	})
}
