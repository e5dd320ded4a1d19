package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for docketrocket.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docketrocket",
		Short: "Resumable PDF downloader for paginated legal dockets",
		Long: `docketrocket discovers document links in a paginated docket table and
downloads the PDFs with a real Chrome browser.

Every link it finds is kept in a ledger file, so an interrupted run picks up
where it left off. When the site shows a CAPTCHA the run pauses once and asks
you to solve it in the browser window.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewImportCmd())
	cmd.AddCommand(NewListCmd())
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
