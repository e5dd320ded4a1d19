package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/nao1215/docketrocket/internal/browser"
	"github.com/nao1215/docketrocket/internal/config"
	"github.com/nao1215/docketrocket/internal/crawler"
	"github.com/nao1215/docketrocket/internal/download"
	"github.com/nao1215/docketrocket/internal/ledger"
	"github.com/nao1215/docketrocket/internal/model"
	"github.com/nao1215/docketrocket/internal/pace"
)

// BrowserFactory starts a browser session.
type BrowserFactory func(ctx context.Context) (browser.Browser, error)

// ChromeFactory returns a factory launching Chrome configured by cfg.
func ChromeFactory(cfg *config.Config, logger *slog.Logger) BrowserFactory {
	return func(ctx context.Context) (browser.Browser, error) {
		c, err := browser.NewChrome(ctx, browser.ChromeOptions{
			Headless:    cfg.Headless,
			ExecPath:    cfg.ChromePath,
			UserDataDir: cfg.UserDataDir,
			DownloadDir: cfg.DownloadDir,
			Logger:      logger,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// Controller runs one crawl: discovery, dedupe and download.
type Controller struct {
	cfg        *config.Config
	newBrowser BrowserFactory
	prompter   download.Prompter
	pacer      pace.Pacer
	inspector  download.PageCounter
	recorder   download.Recorder
	gate       *download.CaptchaGate
	logger     *slog.Logger
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithPrompter sets who is asked to solve a CAPTCHA.
func WithPrompter(p download.Prompter) ControllerOption {
	return func(c *Controller) {
		c.prompter = p
	}
}

// WithPacer sets the Pacer for every wait in the run.
func WithPacer(p pace.Pacer) ControllerOption {
	return func(c *Controller) {
		if p != nil {
			c.pacer = p
		}
	}
}

// WithInspector sets the PDF page counter.
func WithInspector(pc download.PageCounter) ControllerOption {
	return func(c *Controller) {
		c.inspector = pc
	}
}

// WithRecorder sets where download results are recorded.
func WithRecorder(r download.Recorder) ControllerOption {
	return func(c *Controller) {
		c.recorder = r
	}
}

// WithControllerLogger sets the logger.
func WithControllerLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewController creates a Controller. The CAPTCHA gate belongs to the
// controller, so it starts unresolved for every new process.
func NewController(cfg *config.Config, factory BrowserFactory, opts ...ControllerOption) *Controller {
	c := &Controller{
		cfg:        cfg,
		newBrowser: factory,
		pacer:      pace.NewReal(),
		gate:       download.NewCaptchaGate(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Gate returns the run's CAPTCHA gate.
func (c *Controller) Gate() *download.CaptchaGate {
	return c.gate
}

// Run executes the crawl and returns its report.
//
// The ledger is written back on every exit path, including a browser that
// never starts and a cancelled context. The only error returned is a failure
// to start the browser; everything else is recorded in the report.
func (c *Controller) Run(ctx context.Context) (*model.RunReport, error) {
	cfg := c.cfg
	report := model.NewRunReport(cfg.StartURL, cfg.DownloadDir, cfg.LedgerFile)

	if err := os.MkdirAll(cfg.DownloadDir, 0750); err != nil {
		c.logger.Error("failed to create download directory", "dir", cfg.DownloadDir, "error", err)
		report.AddError(fmt.Errorf("failed to create download directory: %w", err))
	}

	store := ledger.NewFile(cfg.LedgerFile, c.logger)
	book := ledger.NewBook(store.Load())
	defer c.flush(store, book)

	b, err := c.newBrowser(ctx)
	if err != nil {
		c.logger.Error("failed to start browser", "error", err)
		report.AddError(err)
		report.LedgerSize = book.Len()
		report.Cancelled = ctx.Err() != nil
		report.FinishedAt = time.Now()
		return report, fmt.Errorf("failed to start browser: %w", err)
	}
	defer func() {
		c.logger.Info("closing browser")
		if err := b.Quit(); err != nil && !errors.Is(err, browser.ErrClosed) {
			c.logger.Warn("failed to close browser", "error", err)
		}
	}()

	p := New(WithLogger(c.logger), WithContinueOnError(true))
	p.AddSteps(
		NewDiscoverStep(b, cfg.StartURL, cfg.InitialLoadDelay, c.pacer, c.paginator(b), book, store, c.logger),
		NewDedupeStep(book, c.logger),
		NewDownloadStep(c.downloader(b), c.logger),
	)

	if err := p.Execute(ctx, report); err != nil {
		c.logger.Warn("run interrupted", "error", err)
	}

	report.LedgerSize = book.Len()
	report.Cancelled = report.Cancelled || ctx.Err() != nil
	report.FinishedAt = time.Now()
	return report, nil
}

func (c *Controller) paginator(b browser.Browser) *crawler.Paginator {
	extractor := crawler.NewExtractor(b, c.cfg.Selectors,
		crawler.WithRowTimeout(c.cfg.RowWaitTimeout),
		crawler.WithExtractorLogger(c.logger),
	)
	return crawler.NewPaginator(b, extractor, c.cfg.Selectors.NextPage,
		crawler.WithNextWait(c.cfg.NextWaitTimeout),
		crawler.WithPreClickPause(c.cfg.PreClickPause),
		crawler.WithPageDelay(c.cfg.PageDelay),
		crawler.WithPacer(c.pacer),
		crawler.WithLogger(c.logger),
	)
}

func (c *Controller) downloader(b browser.Browser) *download.Downloader {
	return download.NewDownloader(b, c.prompter, c.cfg.DownloadDir,
		download.WithGate(c.gate),
		download.WithPacer(c.pacer),
		download.WithDelays(c.cfg.DownloadDelay, c.cfg.SettleDelay),
		download.WithAutoDownloadWait(c.cfg.AutoDownloadWait),
		download.WithPolling(c.cfg.PollAttempts, c.cfg.PollInterval),
		download.WithInspector(c.inspector),
		download.WithRecorder(c.recorder),
		download.WithSkipExisting(c.cfg.SkipExisting),
		download.WithLogger(c.logger),
	)
}

func (c *Controller) flush(store *ledger.File, book *ledger.Book) {
	if err := store.Save(book.Records()); err != nil {
		c.logger.Error("failed to save ledger", "path", store.Path(), "error", err)
		return
	}
	c.logger.Info("ledger saved", "path", store.Path(), "records", book.Len())
}
