package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ovY9jkhTEUpllGPJRrKU/CSS-GFL-ZE-Downloader/internal/config"
	"github.com/ovY9jkhTEUpllGPJRrKU/CSS-GFL-ZE-Downloader/internal/database"
	"github.com/ovY9jkhTEUpllGPJRrKU/CSS-GFL-ZE-Downloader/internal/report"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [root-url]",
		Short: "Show past mirror runs",
		Long: `History lists past mirror runs recorded in the local database,
newest first. With a root URL argument, only that root's runs are shown.

Examples:
  # List every recorded run
  fastdl history

  # List runs for one root
  fastdl history http://fastdl.example.org/css/maps/

  # Show the full report of run 12
  fastdl history --id 12`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().Int64("id", 0, "Show the full report for a specific run ID")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	db, err := database.Open(config.XDGDataDir(), database.Options{
		CreateIfNotExists: false,
		EnableWAL:         true,
	})
	if err != nil {
		return fmt.Errorf("no run history available: %w", err)
	}
	defer db.Close()

	runID, err := cmd.Flags().GetInt64("id")
	if err != nil {
		return err
	}

	if runID > 0 {
		return showRunReport(cmd, db, runID)
	}

	rootURL := ""
	if len(args) > 0 {
		rootURL = args[0]
	}

	runs, err := db.ListRuns(cmd.Context(), rootURL)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No recorded runs.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tROOT\tPAGES\tLINKS\tDOWNLOADED\tDECODED\tCORRUPT")
	for _, run := range runs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04"),
			run.RootURL,
			run.PagesVisited,
			run.LinksFound,
			run.Downloaded,
			run.Decoded,
			run.CorruptCount,
		)
	}
	return w.Flush()
}

// showRunReport prints the full stored report for one run.
func showRunReport(cmd *cobra.Command, db *database.MirrorDB, runID int64) error {
	runReport, err := db.GetRunReportByID(cmd.Context(), runID)
	if err != nil {
		return err
	}
	if runReport == nil {
		return fmt.Errorf("no run with ID %d", runID)
	}

	w := report.NewSimpleWriter(cmd.OutOrStdout(), report.WithVerbose(true))
	_, err = w.Write(runReport)
	return err
}
