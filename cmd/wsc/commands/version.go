package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Build metadata, overridable at link time:
//
//	go build -ldflags "-X github.com/aweary/compiler/cmd/wsc/commands.Version=v0.3.0"
var (
	Version   = "dev"
	Commit    = ""
	BuildDate = ""
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("wsc version %s\n", Version)
		if Commit != "" {
			fmt.Printf("commit: %s\n", Commit)
		}
		if BuildDate != "" {
			fmt.Printf("built: %s\n", BuildDate)
		}
	},
}

func init() {
	RootCmd.Version = Version
	RootCmd.SetVersionTemplate(`wsc version {{.Version}}
`)
	RootCmd.AddCommand(versionCmd)
}
