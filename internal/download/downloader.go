package download

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nao1215/docketrocket/internal/browser"
	"github.com/nao1215/docketrocket/internal/config"
	"github.com/nao1215/docketrocket/internal/model"
	"github.com/nao1215/docketrocket/internal/pace"
)

// captchaMarker is searched for, case-insensitively, in the page source.
const captchaMarker = "captcha"

// Recorder receives every download result, for example to store history.
type Recorder interface {
	RecordDownload(ctx context.Context, result model.DownloadResult) error
}

// Summary is the outcome of a download run.
type Summary struct {
	// Succeeded counts confirmed and skipped records.
	Succeeded int
	// Failed counts records whose file never appeared or that errored.
	Failed int
	// Skipped counts records whose file already existed.
	Skipped int
	// Results holds one entry per processed record, in order.
	Results []model.DownloadResult
}

// Downloader fetches records one at a time through a browser.
type Downloader struct {
	browser       browser.Browser
	prompter      Prompter
	gate          *CaptchaGate
	pacer         pace.Pacer
	dir           string
	downloadDelay config.DelayRange
	settleDelay   config.DelayRange
	autoWait      time.Duration
	pollAttempts  int
	pollInterval  time.Duration
	inspector     PageCounter
	recorder      Recorder
	skipExisting  bool
	logger        *slog.Logger
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithGate shares a CaptchaGate, normally the one owned by the run.
func WithGate(g *CaptchaGate) Option {
	return func(d *Downloader) {
		if g != nil {
			d.gate = g
		}
	}
}

// WithPacer sets the Pacer used for every wait.
func WithPacer(p pace.Pacer) Option {
	return func(d *Downloader) {
		if p != nil {
			d.pacer = p
		}
	}
}

// WithDelays sets the throttle between records and the settle wait after navigation.
func WithDelays(between, settle config.DelayRange) Option {
	return func(d *Downloader) {
		d.downloadDelay = between
		d.settleDelay = settle
	}
}

// WithAutoDownloadWait sets the fixed wait used when no prompt is shown.
func WithAutoDownloadWait(wait time.Duration) Option {
	return func(d *Downloader) {
		d.autoWait = wait
	}
}

// WithPolling sets how often and how long to look for the downloaded file.
func WithPolling(attempts int, interval time.Duration) Option {
	return func(d *Downloader) {
		d.pollAttempts = attempts
		d.pollInterval = interval
	}
}

// WithInspector sets the PDF page counter.
func WithInspector(pc PageCounter) Option {
	return func(d *Downloader) {
		d.inspector = pc
	}
}

// WithRecorder sets the result recorder.
func WithRecorder(r Recorder) Option {
	return func(d *Downloader) {
		d.recorder = r
	}
}

// WithSkipExisting counts records whose file exists as done without visiting them.
func WithSkipExisting(skip bool) Option {
	return func(d *Downloader) {
		d.skipExisting = skip
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Downloader) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDownloader creates a Downloader that saves into dir.
func NewDownloader(b browser.Browser, prompter Prompter, dir string, opts ...Option) *Downloader {
	d := &Downloader{
		browser:       b,
		prompter:      prompter,
		gate:          NewCaptchaGate(),
		pacer:         pace.NewReal(),
		dir:           dir,
		downloadDelay: config.DefaultDownloadDelay,
		settleDelay:   config.DefaultSettleDelay,
		autoWait:      config.DefaultAutoDownloadWait,
		pollAttempts:  config.DefaultPollAttempts,
		pollInterval:  config.DefaultPollInterval,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run downloads records in order. Failures are counted per record and the
// loop continues; only cancellation of ctx stops it early.
func (d *Downloader) Run(ctx context.Context, records []model.DocumentRecord) Summary {
	summary := Summary{Results: make([]model.DownloadResult, 0, len(records))}
	attempted := 0

	for i, rec := range records {
		if ctx.Err() != nil {
			d.logger.Warn("download run interrupted", "remaining", len(records)-i)
			break
		}

		if d.skipExisting && fileExists(filepath.Join(d.dir, rec.TargetName())) {
			res := d.skipped(rec)
			d.logger.Info("file already present, skipping", "file", res.Filename)
			summary.Succeeded++
			summary.Skipped++
			summary.Results = append(summary.Results, res)
			d.record(ctx, res)
			continue
		}

		if attempted > 0 {
			delay := d.pacer.Between(d.downloadDelay.Min, d.downloadDelay.Max)
			d.logger.Info("waiting before next download", "delay", delay.Round(10*time.Millisecond))
			if err := d.pacer.Sleep(ctx, delay); err != nil {
				d.logger.Warn("download run interrupted", "remaining", len(records)-i)
				break
			}
		}
		attempted++

		d.logger.Info("downloading", "n", i+1, "of", len(records), "record", rec.String())
		res := d.Download(ctx, rec)
		if res.Status == model.DownloadSucceeded {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
		summary.Results = append(summary.Results, res)
		d.record(ctx, res)
	}

	return summary
}

// Download fetches one record and waits for its file. It never panics and
// never returns an error; failures are reported in the result.
func (d *Downloader) Download(ctx context.Context, rec model.DocumentRecord) (res model.DownloadResult) {
	start := time.Now()
	res = model.DownloadResult{
		URL:         rec.URL,
		Filename:    rec.TargetName(),
		Path:        filepath.Join(d.dir, rec.TargetName()),
		AttemptedAt: start,
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("unexpected failure while downloading", "url", rec.URL, "panic", r)
			res.Status = model.DownloadFailed
			res.Error = fmt.Sprintf("panic: %v", r)
		}
		res.Duration = time.Since(start)
	}()

	if err := d.fetch(ctx, rec, &res); err != nil {
		d.logger.Warn("download failed", "url", rec.URL, "file", res.Filename, "error", err)
		res.Status = model.DownloadFailed
		res.Error = err.Error()
		return res
	}

	res.Status = model.DownloadSucceeded
	d.logger.Info("confirmed download", "file", res.Filename, "path", res.Path)
	return res
}

func (d *Downloader) fetch(ctx context.Context, rec model.DocumentRecord, res *model.DownloadResult) error {
	if namer, ok := d.browser.(browser.DownloadNamer); ok {
		namer.ExpectDownload(res.Filename)
	}

	d.logger.Debug("navigating to document", "url", rec.URL)
	if err := d.browser.Navigate(ctx, rec.URL); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	if err := d.pacer.Sleep(ctx, d.pacer.Between(d.settleDelay.Min, d.settleDelay.Max)); err != nil {
		return err
	}

	page, err := d.browser.PageText(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		d.logger.Debug("could not read page text, assuming no captcha", "url", rec.URL, "error", err)
	}
	res.CaptchaDetected = strings.Contains(strings.ToLower(page), captchaMarker)

	switch {
	case res.CaptchaDetected && !d.gate.Resolved():
		d.logger.Warn("captcha detected, waiting for a person to solve it", "url", rec.URL)
		if d.prompter == nil {
			return fmt.Errorf("%w: no prompter configured", ErrPromptAborted)
		}
		challenge := Challenge{Record: rec, Directory: d.dir, TargetPath: res.Path}
		if err := d.prompter.Acknowledge(ctx, challenge); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		d.gate.MarkResolved()
		res.Prompted = true
	default:
		if res.CaptchaDetected {
			d.logger.Info("captcha text detected but already solved earlier, proceeding without prompt")
		} else {
			d.logger.Info("no captcha detected, waiting briefly for automatic download")
		}
		if err := d.pacer.Sleep(ctx, d.autoWait); err != nil {
			return err
		}
	}

	if err := d.waitForFile(ctx, res.Path); err != nil {
		return err
	}

	if d.inspector != nil {
		pages, err := d.inspector.PageCount(res.Path)
		if err != nil {
			d.logger.Warn("downloaded file is not a readable PDF", "path", res.Path, "error", err)
		} else {
			res.Pages = pages
		}
	}
	return nil
}

// waitForFile checks for path up to pollAttempts times, pollInterval apart.
func (d *Downloader) waitForFile(ctx context.Context, path string) error {
	for attempt := 1; attempt <= d.pollAttempts; attempt++ {
		if fileExists(path) {
			return nil
		}
		if err := d.pacer.Sleep(ctx, d.pollInterval); err != nil {
			return err
		}
	}
	if fileExists(path) {
		return nil
	}
	return fmt.Errorf("%w after %d attempts: %s", ErrFileNotFound, d.pollAttempts, path)
}

func (d *Downloader) skipped(rec model.DocumentRecord) model.DownloadResult {
	path := filepath.Join(d.dir, rec.TargetName())
	return model.DownloadResult{
		URL:         rec.URL,
		Filename:    rec.TargetName(),
		Path:        path,
		Status:      model.DownloadSkipped,
		AttemptedAt: time.Now(),
	}
}

func (d *Downloader) record(ctx context.Context, res model.DownloadResult) {
	if d.recorder == nil {
		return
	}
	if err := d.recorder.RecordDownload(context.WithoutCancel(ctx), res); err != nil {
		d.logger.Warn("failed to record download", "url", res.URL, "error", err)
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
