package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"os"

	"github.com/spf13/cobra"

	"github.com/hectormr206/orchestra/internal/config"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or administer the process-local prompt cache",
	Long: `Reports, lists, or clears the prompt cache that short-circuits
repeated identical (role, prompt) calls to a backend adapter. The cache is
an optimization only: clearing it never changes a session's outcome, it
just costs a repeated backend call on the next matching prompt.`,
	RunE: runCache,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.Flags().Bool("stats", false, "show occupancy and hit/miss counters (default)")
	cacheCmd.Flags().Bool("list", false, "list every live cache entry")
	cacheCmd.Flags().Bool("clear", false, "empty the cache")
}

func runCache(cmd *cobra.Command, args []string) error {
	workDir, _ := cmd.Flags().GetString("workdir")
	cfgPath, _ := cmd.Flags().GetString("config")
	showList, _ := cmd.Flags().GetBool("list")
	clear, _ := cmd.Flags().GetBool("clear")

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	c := openPromptCache(workDir, cfg)

	if clear {
		if err := c.Clear(); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		fmt.Println("cache cleared")
		return nil
	}

	if showList {
		entries := c.List()
		if len(entries) == 0 {
			fmt.Println("cache is empty")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
		fmt.Fprintln(w, "ROLE\tKEY\tCREATED\tEXPIRES\tSIZE")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d bytes\n",
				e.Role, e.Key[:12], e.CreatedAt.Format("2006-01-02 15:04:05"),
				e.ExpiresAt.Format("2006-01-02 15:04:05"), len(e.Text))
		}
		return w.Flush()
	}

	stats := c.Stats()
	fmt.Printf("Path:       %s\n", stats.Path)
	fmt.Printf("Entries:    %d/%d\n", stats.Entries, stats.MaxEntries)
	fmt.Printf("TTL:        %s\n", stats.TTL.Round(time.Second))
	fmt.Printf("Hits:       %d\n", stats.Hits)
	fmt.Printf("Misses:     %d\n", stats.Misses)
	return nil
}
