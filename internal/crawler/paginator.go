package crawler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nao1215/docketrocket/internal/browser"
	"github.com/nao1215/docketrocket/internal/config"
	"github.com/nao1215/docketrocket/internal/ledger"
	"github.com/nao1215/docketrocket/internal/model"
	"github.com/nao1215/docketrocket/internal/pace"
)

// State is a Paginator state.
type State int

const (
	// StateOnPage extracts the current page.
	StateOnPage State = iota
	// StateAdvancing moves to the next page.
	StateAdvancing
	// StateDone is terminal.
	StateDone
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateOnPage:
		return "ON_PAGE"
	case StateAdvancing:
		return "ADVANCING"
	case StateDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// StopReason explains why discovery ended.
type StopReason string

const (
	// StopNoNewRecords means a page contained only known URLs.
	StopNoNewRecords StopReason = "no-new-records"
	// StopNoNextControl means the next control was absent or disabled.
	StopNoNextControl StopReason = "no-next-control"
	// StopClickFailed means scrolling to or clicking the next control failed.
	StopClickFailed StopReason = "click-failed"
	// StopExtractFailed means the page could not be read at all.
	StopExtractFailed StopReason = "extract-failed"
	// StopCancelled means the run was interrupted.
	StopCancelled StopReason = "cancelled"
)

// Saver persists the full ledger.
type Saver interface {
	Save(records []model.DocumentRecord) error
}

// PageExtractor reads the records on the current page.
type PageExtractor interface {
	Extract(ctx context.Context) ([]model.DocumentRecord, error)
}

// Result summarizes a discovery run.
type Result struct {
	// Pages is the number of pages extracted, including the final stale one.
	Pages int
	// Added is the number of records new to the ledger.
	Added int
	// Reason is why discovery stopped.
	Reason StopReason
}

// Paginator walks the docket table page by page.
type Paginator struct {
	browser       browser.Browser
	extractor     PageExtractor
	nextSelector  string
	nextWait      time.Duration
	preClickPause time.Duration
	pageDelay     config.DelayRange
	pacer         pace.Pacer
	logger        *slog.Logger
}

// Option configures a Paginator.
type Option func(*Paginator)

// WithNextWait sets how long to wait for a clickable next control.
func WithNextWait(d time.Duration) Option {
	return func(p *Paginator) {
		p.nextWait = d
	}
}

// WithPreClickPause sets the pause between scrolling and clicking.
func WithPreClickPause(d time.Duration) Option {
	return func(p *Paginator) {
		p.preClickPause = d
	}
}

// WithPageDelay sets the randomized wait after each click.
func WithPageDelay(r config.DelayRange) Option {
	return func(p *Paginator) {
		p.pageDelay = r
	}
}

// WithPacer sets the Pacer used for every wait.
func WithPacer(pacer pace.Pacer) Option {
	return func(p *Paginator) {
		if pacer != nil {
			p.pacer = pacer
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Paginator) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPaginator creates a Paginator that clicks the control matching nextSelector.
func NewPaginator(b browser.Browser, extractor PageExtractor, nextSelector string, opts ...Option) *Paginator {
	p := &Paginator{
		browser:       b,
		extractor:     extractor,
		nextSelector:  nextSelector,
		nextWait:      config.DefaultNextWaitTimeout,
		preClickPause: config.DefaultPreClickPause,
		pageDelay:     config.DefaultPageDelay,
		pacer:         pace.NewReal(),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run drives the state machine until DONE. Every page with new records is
// merged into book and persisted through saver before the next click.
// A failed save is logged and discovery continues.
func (p *Paginator) Run(ctx context.Context, book *ledger.Book, saver Saver) Result {
	var res Result
	state := StateOnPage

	for state != StateDone {
		p.logger.Debug("pagination state", "state", state.String(), "page", res.Pages+1)

		switch state {
		case StateOnPage:
			if ctx.Err() != nil {
				res.Reason = StopCancelled
				state = StateDone
				continue
			}

			records, err := p.extractor.Extract(ctx)
			res.Pages++
			if err != nil {
				if ctx.Err() != nil {
					res.Reason = StopCancelled
				} else {
					p.logger.Warn("failed to read docket page", "page", res.Pages, "error", err)
					res.Reason = StopExtractFailed
				}
				state = StateDone
				continue
			}

			added := book.Merge(records)
			if len(added) == 0 {
				p.logger.Info("no new records on page, discovery complete",
					"page", res.Pages, "rows", len(records))
				res.Reason = StopNoNewRecords
				state = StateDone
				continue
			}
			res.Added += len(added)

			if err := saver.Save(book.Records()); err != nil {
				p.logger.Error("failed to persist ledger", "page", res.Pages, "error", err)
			}
			p.logger.Info("page processed",
				"page", res.Pages, "rows", len(records), "new", len(added), "total", book.Len())
			state = StateAdvancing

		case StateAdvancing:
			if reason, ok := p.advance(ctx); !ok {
				res.Reason = reason
				state = StateDone
				continue
			}
			state = StateOnPage
		}
	}

	p.logger.Info("discovery finished", "pages", res.Pages, "added", res.Added, "reason", string(res.Reason))
	return res
}

// advance clicks the next control and waits for the next page to render.
func (p *Paginator) advance(ctx context.Context) (StopReason, bool) {
	next, err := p.browser.WaitClickable(ctx, p.nextSelector, p.nextWait)
	if err != nil {
		if ctx.Err() != nil {
			return StopCancelled, false
		}
		if errors.Is(err, browser.ErrTimeout) || errors.Is(err, browser.ErrNotClickable) {
			p.logger.Info("no clickable next page control, discovery complete")
		} else {
			p.logger.Warn("failed to locate next page control", "error", err)
		}
		return StopNoNextControl, false
	}

	if err := p.browser.ScrollIntoView(ctx, next); err != nil {
		return p.clickFailure(ctx, "scroll", err)
	}
	if err := p.pacer.Sleep(ctx, p.preClickPause); err != nil {
		return StopCancelled, false
	}
	if err := p.browser.Click(ctx, next); err != nil {
		return p.clickFailure(ctx, "click", err)
	}

	delay := p.pacer.Between(p.pageDelay.Min, p.pageDelay.Max)
	p.logger.Debug("waiting for next page", "delay", delay)
	if err := p.pacer.Sleep(ctx, delay); err != nil {
		return StopCancelled, false
	}
	return "", true
}

func (p *Paginator) clickFailure(ctx context.Context, step string, err error) (StopReason, bool) {
	if ctx.Err() != nil {
		return StopCancelled, false
	}
	p.logger.Warn("failed to move to next page", "step", step, "error", err)
	return StopClickFailed, false
}
