// Package main provides the entry point for the guildwatch CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for guildwatch.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "guildwatch",
		Short: "Check whether your Discord servers appear in the spy.pet dataset",
		Long: `Guildwatch checks a local Discord membership export against the
spy.pet exposed-database index.

It reads the server list from a Discord data package export, fetches
the full community index from the remote dataset with polite paging
and retries, and reports which of your communities the dataset lists.

Guildwatch never uploads your export; only community identifiers from
the public index are fetched.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewCheckCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
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
