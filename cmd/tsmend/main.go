package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tsmend/internal/config"
	"tsmend/internal/logging"
)

var (
	// Global flags
	configPath string
	debug      bool

	cfg config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "tsmend",
	Short: "tsmend - deterministic TypeScript program repair",
	Long: `tsmend repairs TypeScript projects from compiler diagnostics.

It parses the project's source files, resolves module specifiers over the
file set, and applies one repair strategy per diagnostic code: rewriting
import specifiers, synthesizing missing exports and modules, reconciling
import clauses, and declaring undefined names. Repairs are deterministic;
the same input always yields the same output.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if debug {
			cfg.Debug = true
		}
		return logging.Initialize(cfg.Debug)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "tsmend.yaml", "path to the config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
