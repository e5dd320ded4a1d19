package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/docketrocket/internal/config"
	"github.com/nao1215/docketrocket/internal/download"
	"github.com/nao1215/docketrocket/internal/history"
	"github.com/nao1215/docketrocket/internal/log"
	"github.com/nao1215/docketrocket/internal/model"
	"github.com/nao1215/docketrocket/internal/pace"
	"github.com/nao1215/docketrocket/internal/pipeline"
	"github.com/nao1215/docketrocket/internal/report"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Discover new docket entries and download their PDFs",
		Long: `Crawl opens the docket page in Chrome, walks the table page by page until it
reaches entries it has already seen, and then downloads every known document
into the download directory.

Discovered links are saved to the ledger after every page, so an interrupted
crawl resumes where it stopped. The first time the site shows a CAPTCHA the
crawl pauses and asks you to solve it in the browser window; later documents
in the same run are downloaded without asking again.

Examples:
  # Crawl with built-in settings
  docketrocket crawl

  # Skip PDFs that are already in the download directory
  docketrocket crawl --skip-existing

  # Write a Markdown report of the run
  docketrocket crawl -m -o reports/run.md

  # Use a custom configuration file
  docketrocket crawl -c myconfig.yaml`,
		Args: cobra.NoArgs,
		RunE: runCrawlCmd,
	}

	addConfigFlags(cmd)

	cmd.Flags().Bool("headless", false,
		"Run Chrome without a window (CAPTCHAs cannot be solved)")
	cmd.Flags().String("chrome-path", "",
		"Chrome or Chromium executable (default: auto-detect)")
	cmd.Flags().Bool("skip-existing", false,
		"Count documents whose PDF already exists as done without visiting them")
	cmd.Flags().Bool("no-history", false,
		"Do not record this run in the history database")
	cmd.Flags().String("log-file", "",
		"Debug log file (default: docketrocket.log in the XDG state directory)")

	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

func runCrawlCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, closeLog, err := log.NewRunLogger(cmd.ErrOrStderr(), cfg.LogFile, cfg.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, saving progress...")
			cancel()
		case <-ctx.Done():
		}
	}()

	deps := crawlDeps{
		factory:  pipeline.ChromeFactory(cfg, logger),
		prompter: download.NewConsolePrompter(cmd.OutOrStdout(), cmd.InOrStdin()),
		out:      cmd.OutOrStdout(),
	}
	return runCrawl(ctx, cfg, logger, deps)
}

// crawlDeps are the outside-world pieces of a crawl, replaced in tests.
type crawlDeps struct {
	factory  pipeline.BrowserFactory
	prompter download.Prompter
	pacer    pace.Pacer
	out      io.Writer
}

func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, deps crawlDeps) error {
	logger.Info("starting crawl",
		"url", cfg.StartURL,
		"downloadDir", cfg.DownloadDir,
		"ledger", cfg.LedgerFile,
		"skipExisting", cfg.SkipExisting,
	)

	opts := []pipeline.ControllerOption{
		pipeline.WithPrompter(deps.prompter),
		pipeline.WithPacer(deps.pacer),
		pipeline.WithInspector(download.NewPDFInspector()),
		pipeline.WithControllerLogger(logger),
	}

	var db *history.DB
	var runID int64
	if cfg.SaveHistory {
		var err error
		db, runID, err = beginHistory(ctx, cfg)
		if err != nil {
			logger.Warn("run history disabled", "error", err)
		} else {
			defer db.Close()
			opts = append(opts, pipeline.WithRecorder(db.ForRun(runID)))
			logger.Debug("recording run history", "db", db.Path(), "run", runID)
		}
	}

	runReport, runErr := pipeline.NewController(cfg, deps.factory, opts...).Run(ctx)

	if db != nil {
		if err := db.FinishRun(context.WithoutCancel(ctx), runID, runReport, runErr); err != nil {
			logger.Warn("failed to record run history", "error", err)
		}
	}

	if err := outputReport(cfg, runReport, deps.out); err != nil {
		logger.Error("report failed", "error", err)
	}

	if runErr != nil {
		return runErr
	}
	if runReport.Cancelled {
		logger.Warn("crawl interrupted; run again to continue", "ledger", cfg.LedgerFile)
	}
	return nil
}

func beginHistory(ctx context.Context, cfg *config.Config) (*history.DB, int64, error) {
	db, err := history.Open(cfg.DBDir, history.DefaultOptions())
	if err != nil {
		return nil, 0, err
	}
	runID, err := db.BeginRun(ctx, cfg.StartURL, time.Now())
	if err != nil {
		_ = db.Close()
		return nil, 0, err
	}
	return db, runID, nil
}

// outputReport writes the run report in the requested format to the report
// file, or to out when no file is configured.
func outputReport(cfg *config.Config, runReport *model.RunReport, out io.Writer) error {
	if runReport == nil {
		return nil
	}

	output := out
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		// Reports list local paths and document URLs, so keep them owner-only.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	format := report.FormatText
	switch {
	case cfg.JSONReport:
		format = report.FormatJSON
	case cfg.MarkdownReport:
		format = report.FormatMarkdown
	}

	var w report.Writer
	if format == report.FormatText {
		w = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	} else {
		w = report.New(format, output)
	}
	_, err := w.Write(runReport)
	return err
}
