// Package commands provides the CLI commands for the ws compiler.
package commands

import (
	"github.com/spf13/cobra"
)

// Persistent flags shared by every subcommand.
var (
	flagLogLevel string
	flagLogJSON  bool
	flagNoCache  bool
	flagMinify   bool
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "wsc",
	Short: "wsc - compiler for ws component modules",
	Long: `wsc compiles ws modules into JavaScript.

Commands:
  build       Compile every module in the project
  watch       Rebuild whenever a module changes
  cfg         Show the control flow graph of a module's definitions
  init        Set up a new project interactively
  version     Print version information

Use "wsc [command] --help" for more information about a command.`,
}

// Execute runs the root command.
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")
	RootCmd.PersistentFlags().BoolVar(&flagLogJSON, "log-json", false, "Emit logs as JSON lines")
	RootCmd.PersistentFlags().BoolVar(&flagNoCache, "no-cache", false, "Skip the artifact cache for this run")
	RootCmd.PersistentFlags().BoolVar(&flagMinify, "minify", false, "Minify the emitted JavaScript")
}
