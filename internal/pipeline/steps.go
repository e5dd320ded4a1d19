package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/docketrocket/internal/browser"
	"github.com/nao1215/docketrocket/internal/config"
	"github.com/nao1215/docketrocket/internal/crawler"
	"github.com/nao1215/docketrocket/internal/download"
	"github.com/nao1215/docketrocket/internal/ledger"
	"github.com/nao1215/docketrocket/internal/model"
	"github.com/nao1215/docketrocket/internal/pace"
)

// Step names.
const (
	StepDiscover = "discover"
	StepDedupe   = "dedupe"
	StepDownload = "download"
)

// DiscoverStep opens the start page and walks the docket table, merging new
// records into the ledger as it goes.
type DiscoverStep struct {
	browser      browser.Browser
	startURL     string
	initialDelay config.DelayRange
	pacer        pace.Pacer
	paginator    *crawler.Paginator
	book         *ledger.Book
	saver        crawler.Saver
	logger       *slog.Logger
}

// NewDiscoverStep creates a discovery step.
func NewDiscoverStep(
	b browser.Browser,
	startURL string,
	initialDelay config.DelayRange,
	pacer pace.Pacer,
	paginator *crawler.Paginator,
	book *ledger.Book,
	saver crawler.Saver,
	logger *slog.Logger,
) *DiscoverStep {
	return &DiscoverStep{
		browser:      b,
		startURL:     startURL,
		initialDelay: initialDelay,
		pacer:        pacer,
		paginator:    paginator,
		book:         book,
		saver:        saver,
		logger:       logger,
	}
}

// Name returns the step name.
func (s *DiscoverStep) Name() string {
	return StepDiscover
}

// Do executes the discovery step.
func (s *DiscoverStep) Do(ctx context.Context, report *model.RunReport) error {
	s.logger.Info("opening docket page", "url", s.startURL)
	if err := s.browser.Navigate(ctx, s.startURL); err != nil {
		return fmt.Errorf("failed to open start page: %w", err)
	}
	delay := s.pacer.Between(s.initialDelay.Min, s.initialDelay.Max)
	s.logger.Info("waiting for the docket page to load", "delay", delay)
	if err := s.pacer.Sleep(ctx, delay); err != nil {
		return err
	}

	res := s.paginator.Run(ctx, s.book, s.saver)
	report.PagesVisited = res.Pages
	report.NewRecords = res.Added
	report.StopReason = string(res.Reason)
	report.LedgerSize = s.book.Len()

	if res.Reason == crawler.StopCancelled {
		return ctx.Err()
	}
	return nil
}

// DedupeStep builds the download queue from the accumulated ledger.
type DedupeStep struct {
	book   *ledger.Book
	logger *slog.Logger
}

// NewDedupeStep creates a dedupe step over book.
func NewDedupeStep(book *ledger.Book, logger *slog.Logger) *DedupeStep {
	return &DedupeStep{book: book, logger: logger}
}

// Name returns the step name.
func (s *DedupeStep) Name() string {
	return StepDedupe
}

// Do executes the dedupe step.
func (s *DedupeStep) Do(_ context.Context, report *model.RunReport) error {
	report.Queue = ledger.Unique(s.book.Records())
	report.LedgerSize = s.book.Len()
	s.logger.Info("download queue ready", "unique", len(report.Queue))
	return nil
}

// DownloadStep downloads every queued record.
type DownloadStep struct {
	downloader *download.Downloader
	logger     *slog.Logger
}

// NewDownloadStep creates a download step.
func NewDownloadStep(d *download.Downloader, logger *slog.Logger) *DownloadStep {
	return &DownloadStep{downloader: d, logger: logger}
}

// Name returns the step name.
func (s *DownloadStep) Name() string {
	return StepDownload
}

// Do executes the download step.
func (s *DownloadStep) Do(ctx context.Context, report *model.RunReport) error {
	if len(report.Queue) == 0 {
		s.logger.Warn("no document links found, nothing to download")
		return nil
	}

	s.logger.Info("starting downloads", "count", len(report.Queue))
	summary := s.downloader.Run(ctx, report.Queue)
	for _, res := range summary.Results {
		report.AddResult(res)
	}
	s.logger.Info("downloads finished",
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
	)
	return ctx.Err()
}
