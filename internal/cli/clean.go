package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hectormr206/orchestra/internal/session"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [session-id]",
	Short: "Remove a session's stored state",
	Long:  `Deletes a session's directory under .orchestra, including its checkpoints and event log. Generated files already written to the working tree are left untouched.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	workDir, _ := cmd.Flags().GetString("workdir")
	store := session.NewStore(workDir)
	if err := store.Clear(args[0]); err != nil {
		return err
	}
	fmt.Printf("removed session %s\n", args[0])
	return nil
}
