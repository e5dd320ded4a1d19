package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/nao1215/docketrocket/internal/history"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent crawl runs and download attempts",
		Long: `History shows recent crawl runs recorded in the history database, and
optionally the individual download attempts.

Examples:
  # Show the last 10 runs
  docketrocket history

  # Show the last 50 failed downloads
  docketrocket history --failed -n 50`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", 10, "Number of entries to show")
	cmd.Flags().Bool("downloads", false, "Show download attempts instead of runs")
	cmd.Flags().Bool("failed", false, "Show failed download attempts only (implies --downloads)")
	cmd.Flags().String("db-dir", "", "History database directory (default: XDG data directory)")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	downloads, err := cmd.Flags().GetBool("downloads")
	if err != nil {
		return err
	}
	failed, err := cmd.Flags().GetBool("failed")
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = cfg.DBDir
	}

	out := cmd.OutOrStdout()
	db, err := history.Open(dbDir, history.Options{CreateIfNotExists: false})
	if errors.Is(err, history.ErrNotFound) {
		fmt.Fprintln(out, "No history recorded yet.")
		return nil
	}
	if err != nil {
		return err
	}
	defer db.Close()

	t := newTable(out)
	if downloads || failed {
		rows, err := db.RecentDownloads(cmd.Context(), limit, failed)
		if err != nil {
			return err
		}
		t.AppendHeader(table.Row{"Run", "When", "Status", "Pages", "CAPTCHA", "File", "Error"})
		for _, d := range rows {
			t.AppendRow(table.Row{d.RunID, formatWhen(d.AttemptedAt), d.Status, d.Pages, yesNo(d.Captcha), d.Filename, d.Error})
		}
	} else {
		runs, err := db.RecentRuns(cmd.Context(), limit)
		if err != nil {
			return err
		}
		t.AppendHeader(table.Row{"Run", "Started", "Duration", "Pages", "New", "OK", "Failed", "Stop", "Error"})
		for _, r := range runs {
			duration := "-"
			if !r.FinishedAt.IsZero() {
				duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
			}
			t.AppendRow(table.Row{r.ID, formatWhen(r.StartedAt), duration, r.Pages, r.NewRecords, r.Succeeded, r.Failed, r.StopReason, r.Error})
		}
	}
	t.Render()
	return nil
}

func formatWhen(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
