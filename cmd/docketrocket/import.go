package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nao1215/docketrocket/internal/browser"
	"github.com/nao1215/docketrocket/internal/config"
	"github.com/nao1215/docketrocket/internal/crawler"
	"github.com/nao1215/docketrocket/internal/ledger"
	"github.com/nao1215/docketrocket/internal/log"
	"github.com/nao1215/docketrocket/internal/model"
)

// NewImportCmd creates the import command.
func NewImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <saved-page.html>...",
		Short: "Add links from saved docket pages to the ledger",
		Long: `Import reads docket pages saved from a browser ("Save Page As") and adds
their document links to the ledger without opening Chrome.

Links are resolved against the configured start URL unless --page-url is
given. Links already in the ledger are left untouched.

Examples:
  # Import one saved page
  docketrocket import page1.html

  # Import several pages saved from a different docket
  docketrocket import --page-url https://example.com/case/Home-DocketInfo p1.html p2.html`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImportCmd,
	}

	addConfigFlags(cmd)
	cmd.Flags().String("page-url", "",
		"URL the pages were saved from (default: the configured start URL)")

	return cmd
}

func runImportCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	pageURL, err := cmd.Flags().GetString("page-url")
	if err != nil {
		return err
	}
	if pageURL == "" {
		pageURL = cfg.StartURL
	}

	logger := log.NewConsoleLogger(cmd.ErrOrStderr(), cfg.Verbose)
	store := ledger.NewFile(cfg.LedgerFile, logger)
	book := ledger.NewBook(store.Load())

	// A bad file is reported after the others are imported and saved.
	var errs []error
	total, added := 0, 0
	for _, path := range args {
		records, err := importPage(cmd.Context(), path, pageURL, cfg.Selectors, logger)
		if err != nil {
			logger.Warn("skipping saved page", "file", path, "error", err)
			errs = append(errs, err)
			continue
		}
		n := len(book.Merge(records))
		logger.Info("imported saved page", "file", path, "links", len(records), "new", n)
		total += len(records)
		added += n
	}

	if added > 0 {
		if err := store.Save(book.Records()); err != nil {
			errs = append(errs, fmt.Errorf("failed to save ledger: %w", err))
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Found %d links, %d new. Ledger %s now has %d entries.\n",
		total, added, store.Path(), book.Len())
	return errors.Join(errs...)
}

// importPage extracts the records of one saved docket page.
func importPage(ctx context.Context, path, pageURL string, selectors config.Selectors, logger *slog.Logger) ([]model.DocumentRecord, error) {
	b, err := browser.NewStaticFromFile(ctx, path, pageURL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = b.Quit() }()

	records, err := crawler.NewExtractor(b, selectors, crawler.WithExtractorLogger(logger)).Extract(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return records, nil
}
