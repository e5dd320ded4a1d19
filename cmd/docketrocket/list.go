package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/nao1215/docketrocket/internal/ledger"
	"github.com/nao1215/docketrocket/internal/log"
)

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the links recorded in the ledger",
		Long: `List prints every document link recorded in the ledger, in discovery order,
and whether its PDF is present in the download directory.

Examples:
  # Show every recorded link
  docketrocket list

  # Show only documents that still need downloading
  docketrocket list --missing`,
		Args: cobra.NoArgs,
		RunE: runListCmd,
	}

	addConfigFlags(cmd)
	cmd.Flags().Bool("missing", false, "Only show documents whose PDF is not downloaded yet")

	return cmd
}

func runListCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	missingOnly, err := cmd.Flags().GetBool("missing")
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	records, err := ledger.NewFile(cfg.LedgerFile, log.Discard()).Read()
	if errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(out, "No ledger at %s yet. Run \"docketrocket crawl\" first.\n", cfg.LedgerFile)
		return nil
	}
	if err != nil {
		return err
	}

	t := newTable(out)
	t.AppendHeader(table.Row{"#", "Docket", "Filed", "Title", "PDF"})
	shown, present := 0, 0
	for i, rec := range records {
		_, statErr := os.Stat(filepath.Join(cfg.DownloadDir, rec.TargetName()))
		have := statErr == nil
		if have {
			present++
		}
		if missingOnly && have {
			continue
		}
		mark := "missing"
		if have {
			mark = "yes"
		}
		t.AppendRow(table.Row{i + 1, rec.DocketNumber, rec.DateFiled, rec.Title, mark})
		shown++
	}
	t.AppendFooter(table.Row{"", "", "", fmt.Sprintf("%d shown", shown), fmt.Sprintf("%d/%d", present, len(records))})
	t.Render()
	return nil
}
