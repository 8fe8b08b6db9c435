package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/guildwatch/guildwatch/internal/config"
	"github.com/guildwatch/guildwatch/internal/database"
)

// NewHistoryCmd creates the history command.
// It lists past check runs recorded in the history database so that
// exposure over time is visible, for example after the dataset grows.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [export-file]",
		Short: "List past check runs from the history database",
		Long: `History lists past check runs recorded in the local history database.

Each check run records when it happened, how many communities the
export contained, the remote dataset size at the time, and which
communities matched. Comparing runs shows whether new matches appeared
as the dataset grew.

Examples:
  # List all recorded check runs
  guildwatch history

  # List check runs for a specific export file
  guildwatch history ~/discord-package/servers/index.json

  # Show only the 5 most recent runs
  guildwatch history -n 5

  # Output history in JSON format
  guildwatch history --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", 0,
		"Maximum number of runs to list (0 means all)")
	cmd.Flags().BoolP("json", "j", false,
		"Output history in JSON format")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	var exportPath string
	if len(args) > 0 {
		exportPath = args[0]
	}

	// Listing never creates the database; a missing one just means no
	// checks have been recorded yet.
	dbDir := config.XDGDataDir()
	db, err := database.Open(dbDir, database.Options{EnableWAL: true})
	if err != nil {
		fmt.Println("No check history found.")
		fmt.Println("\nUse 'guildwatch check' to run a check; results are recorded automatically.")
		return nil
	}
	defer db.Close()

	ctx := context.Background()

	runs, err := db.ListCheckRuns(ctx, exportPath, limit)
	if err != nil {
		return fmt.Errorf("failed to list check runs: %w", err)
	}

	if len(runs) == 0 {
		if exportPath != "" {
			fmt.Printf("No check history found for %s\n", exportPath)
		} else {
			fmt.Println("No check history found.")
		}
		fmt.Println("\nUse 'guildwatch check' to run a check; results are recorded automatically.")
		return nil
	}

	if jsonOutput {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(runs)
	}

	printHistoryTable(runs)
	return nil
}

// printHistoryTable prints check runs in a human-readable table.
func printHistoryTable(runs []database.CheckRun) {
	fmt.Printf("Check history (%d runs):\n\n", len(runs))
	fmt.Printf("  %-6s  %-20s  %-10s  %-12s  %-8s  %s\n",
		"ID", "Date", "Servers", "Index Size", "Matches", "Export")
	fmt.Println("  " + strings.Repeat("-", 90))

	for _, run := range runs {
		fmt.Printf("  %-6d  %-20s  %-10d  %-12d  %-8d  %s\n",
			run.ID,
			run.DateChecked.Local().Format("2006-01-02 15:04:05"),
			run.MembershipCount,
			run.RemoteIndexSize,
			len(run.Matches),
			run.ExportPath,
		)
	}

	fmt.Println("\nUse 'guildwatch history --json' for full match details per run.")
}
