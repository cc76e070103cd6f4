package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hectormr206/orchestra/internal/session"
)

var historyCmd = &cobra.Command{
	Use:   "history [query]",
	Short: "Full-text search over past sessions' tasks and errors",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	workDir, _ := cmd.Flags().GetString("workdir")
	store := session.NewStore(workDir)

	results, err := store.FullTextSearch(args[0], []string{"task", "lasterror"})
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("no matches")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPHASE\tTASK")
	for _, s := range results {
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID, s.Phase, truncate(string(s.Task), 60))
	}
	return w.Flush()
}
