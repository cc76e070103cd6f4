// Package cli wires the orchestra cobra commands onto the kernel, config,
// session store, and event bus packages.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hectormr206/orchestra/internal/version"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "orchestra",
	Short: "Orchestra drives AI coding agents through a plan/execute/audit loop",
	Long: `Orchestra runs a task through an Architect -> Executor -> Auditor ->
Consultant pipeline against one or more AI adapters, with automatic
fallback, context compaction, and a resumable session store.

Example:
  orchestra start "add input validation to the signup form"`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.Version = version.Short()
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "orchestra.config.json", "path to the orchestra config file (.json or .yaml/.yml)")
	rootCmd.PersistentFlags().String("workdir", ".", "working directory the session operates in")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable verbose output")
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	if viper.GetBool("verbose") {
		fmt.Fprintln(os.Stderr, "Using config file:", cfgFile)
	}
}
