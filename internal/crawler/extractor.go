package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/docketrocket/internal/browser"
	"github.com/nao1215/docketrocket/internal/config"
	"github.com/nao1215/docketrocket/internal/model"
)

// errEmptyHref marks a row whose document link has no target.
var errEmptyHref = errors.New("document link has empty href")

// Extractor turns the docket table on the current page into records.
type Extractor struct {
	browser    browser.Browser
	selectors  config.Selectors
	rowTimeout time.Duration
	logger     *slog.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithRowTimeout sets how long to wait for table rows to appear.
func WithRowTimeout(d time.Duration) ExtractorOption {
	return func(e *Extractor) {
		e.rowTimeout = d
	}
}

// WithExtractorLogger sets the logger.
func WithExtractorLogger(logger *slog.Logger) ExtractorOption {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExtractor creates an Extractor reading the table located by selectors.
func NewExtractor(b browser.Browser, selectors config.Selectors, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		browser:    b,
		selectors:  selectors,
		rowTimeout: config.DefaultRowWaitTimeout,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the records on the current page in table order.
// A table that never appears yields no records and no error. Rows missing a
// cell or a link target are logged and skipped.
func (e *Extractor) Extract(ctx context.Context) ([]model.DocumentRecord, error) {
	rows, err := e.browser.FindAll(ctx, e.selectors.Rows, e.rowTimeout)
	if err != nil {
		if errors.Is(err, browser.ErrTimeout) {
			e.logger.Warn("no docket rows found on page", "timeout", e.rowTimeout)
			return []model.DocumentRecord{}, nil
		}
		return nil, fmt.Errorf("failed to find docket rows: %w", err)
	}

	base, err := e.browser.CurrentURL(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read current URL: %w", err)
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("failed to parse current URL %q: %w", base, err)
	}

	records := make([]model.DocumentRecord, 0, len(rows))
	for i, row := range rows {
		rec, err := e.extractRow(ctx, row, baseURL)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return records, ctxErr
			}
			e.logger.Warn("skipping docket row", "row", i+1, "error", err)
			continue
		}
		records = append(records, rec)
	}

	e.logger.Debug("extracted docket rows", "rows", len(rows), "records", len(records))
	return records, nil
}

func (e *Extractor) extractRow(ctx context.Context, row browser.Element, base *url.URL) (model.DocumentRecord, error) {
	link, err := e.browser.FindIn(ctx, row, e.selectors.Link)
	if err != nil {
		return model.DocumentRecord{}, fmt.Errorf("document link: %w", err)
	}
	title, err := e.text(ctx, link)
	if err != nil {
		return model.DocumentRecord{}, fmt.Errorf("document title: %w", err)
	}
	href, err := e.browser.Attribute(ctx, link, "href")
	if err != nil {
		return model.DocumentRecord{}, fmt.Errorf("document href: %w", err)
	}
	href = strings.TrimSpace(href)
	if href == "" {
		return model.DocumentRecord{}, errEmptyHref
	}

	docket, err := e.cellText(ctx, row, e.selectors.DocketNumber)
	if err != nil {
		return model.DocumentRecord{}, fmt.Errorf("docket number: %w", err)
	}
	date, err := e.cellText(ctx, row, e.selectors.DateFiled)
	if err != nil {
		return model.DocumentRecord{}, fmt.Errorf("date filed: %w", err)
	}

	ref, err := url.Parse(href)
	if err != nil {
		return model.DocumentRecord{}, fmt.Errorf("invalid href %q: %w", href, err)
	}
	abs := base.ResolveReference(ref).String()

	return model.NewDocumentRecord(abs, href, docket, title, date), nil
}

func (e *Extractor) cellText(ctx context.Context, row browser.Element, selector string) (string, error) {
	cell, err := e.browser.FindIn(ctx, row, selector)
	if err != nil {
		return "", err
	}
	return e.text(ctx, cell)
}

// text returns the element text with whitespace runs collapsed, as a
// person reading the table would see it.
func (e *Extractor) text(ctx context.Context, el browser.Element) (string, error) {
	raw, err := e.browser.Text(ctx, el)
	if err != nil {
		return "", err
	}
	return strings.Join(strings.Fields(raw), " "), nil
}
