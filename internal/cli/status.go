package cli

import (
	"fmt"
	"text/tabwriter"

	"os"

	"github.com/spf13/cobra"

	"github.com/hectormr206/orchestra/internal/session"
)

var statusCmd = &cobra.Command{
	Use:   "status [session-id]",
	Short: "Show session status",
	Long: `Without a session ID, lists every session tracked in the working
directory. With one, shows its phase, iteration, and per-file status.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().String("status-filter", "", "only list sessions in this phase")
	statusCmd.Flags().Int("limit", 20, "maximum sessions to list")
}

func runStatus(cmd *cobra.Command, args []string) error {
	workDir, _ := cmd.Flags().GetString("workdir")
	store := session.NewStore(workDir)

	if len(args) == 1 {
		return showSessionDetail(store, args[0])
	}

	filter, _ := cmd.Flags().GetString("status-filter")
	limit, _ := cmd.Flags().GetInt("limit")
	summaries, err := store.List(session.ListFilter{Status: filter, Limit: limit})
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("no sessions found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPHASE\tITERATION\tTASK\tLAST ACTIVITY")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", s.ID, s.Phase, s.Iteration, truncate(string(s.Task), 40), s.LastActivity.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func showSessionDetail(store *session.Store, id string) error {
	sess, err := store.Load(id)
	if err != nil {
		return err
	}
	fmt.Printf("Session:    %s\n", sess.ID)
	fmt.Printf("Task:       %s\n", sess.Task)
	fmt.Printf("Phase:      %s\n", sess.Phase)
	fmt.Printf("Iteration:  %d/%d\n", sess.Iteration, sess.MaxIteration)
	if sess.LastError != "" {
		fmt.Printf("LastError:  %s\n", sess.LastError)
	}
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "FILE\tSTATUS\tLAST ERROR")
	for _, f := range sess.Files {
		fmt.Fprintf(w, "%s\t%s\t%s\n", f.Path, f.Status, truncate(f.LastError, 60))
	}
	return w.Flush()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
