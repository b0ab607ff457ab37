// Package main provides the entry point for the viewflux CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/viewflux/viewflux/cmd/viewflux/commands"
	"github.com/viewflux/viewflux/pkg/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "viewflux",
		Short: "Viewflux - observable collection pipeline tool",
		Long: `Viewflux replays edit scenarios through observable view pipelines.

Commands:
  replay    Replay an edit scenario through a view pipeline
  diff      Compute the edit script between two text files`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add commands.
	rootCmd.AddCommand(commands.NewReplayCommand())
	rootCmd.AddCommand(commands.NewDiffCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "viewflux %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
