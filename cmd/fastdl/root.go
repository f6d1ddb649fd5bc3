package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for fastdl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fastdl",
		Short: "Mirror and decode game-server fast-download hosts",
		Long: `fastdl mirrors HTTP fast-download hosts used by game servers.

It crawls a remote directory listing breadth-first, downloads every map
archive it discovers into a matching local tree, and decodes the bzip2
sidecar files in place. Corrupt archives are reported and preserved.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewMirrorCmd())
	cmd.AddCommand(NewDecodeCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
