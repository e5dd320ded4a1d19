package crawler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/docketrocket/internal/browser"
	"github.com/nao1215/docketrocket/internal/config"
	"github.com/nao1215/docketrocket/internal/ledger"
	"github.com/nao1215/docketrocket/internal/log"
	"github.com/nao1215/docketrocket/internal/model"
	"github.com/nao1215/docketrocket/internal/pace"
)

const startURL = "https://restructuring.example.com/bbby/Home-DocketInfo"

// fixtureRow is one docket table row. Empty link means the row has no link.
type fixtureRow struct {
	docket string
	href   string
	title  string
	date   string
	noLink bool
	noDate bool
}

// docketPage renders a page whose structure matches config.DefaultSelectors.
// An empty nextHref renders no next control.
func docketPage(rows []fixtureRow, nextHref string, nextDisabled bool) string {
	var body strings.Builder
	for _, r := range rows {
		body.WriteString("<tr><td>" + r.docket + "</td><td><span><p>")
		if !r.noLink {
			body.WriteString(`<a href="` + r.href + `">` + r.title + `</a>`)
		}
		body.WriteString("</p></span></td>")
		if !r.noDate {
			body.WriteString("<td>" + r.date + "</td>")
		}
		body.WriteString("</tr>")
	}
	table := "<table><thead><tr><th>#</th><th>Title</th><th>Date</th></tr></thead><tbody>" + body.String() + "</tbody></table>"

	next := ""
	if nextHref != "" {
		class := "next"
		if nextDisabled {
			class = "next disabled"
		}
		next = `<a href="?p=1">1</a><a href="?p=2">2</a><a class="` + class + `" href="` + nextHref + `">Next</a>`
	}

	nextBranch := "<div></div><div><div>" + next + "</div></div>"
	rowsBranch := "<div></div><div>" +
		"<div></div><div></div><div>" +
		"<div></div><div></div><div></div><div>" +
		"<div>" + table + "</div>" +
		"</div></div></div>"

	return "<html><body><main><div></div><div></div><div>" +
		"<div></div><div>" +
		"<div></div><div>" + nextBranch + "</div><div>" + rowsBranch + "</div>" +
		"</div></div></main></body></html>"
}

func rowsFor(start, n int) []fixtureRow {
	rows := make([]fixtureRow, 0, n)
	for i := start; i < start+n; i++ {
		rows = append(rows, fixtureRow{
			docket: fmt.Sprint(100 + i),
			href:   fmt.Sprintf("/bbby/Home-DownloadPDF?id1=%d", i),
			title:  fmt.Sprintf("Motion %d", i),
			date:   "01/02/2023",
		})
	}
	return rows
}

type recordingSaver struct {
	calls int
	last  []model.DocumentRecord
	err   error
}

func (s *recordingSaver) Save(records []model.DocumentRecord) error {
	s.calls++
	s.last = records
	return s.err
}

func newPaginator(b browser.Browser, p pace.Pacer) *Paginator {
	sel := config.DefaultSelectors()
	ext := NewExtractor(b, sel, WithRowTimeout(time.Second), WithExtractorLogger(log.Discard()))
	return NewPaginator(b, ext, sel.NextPage, WithPacer(p), WithLogger(log.Discard()))
}

// TestExtractor tests reading records from the docket table.
func TestExtractor(t *testing.T) {
	t.Parallel()

	t.Run("rows become records in table order", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		b := browser.NewStatic()
		b.AddHTML(startURL, docketPage([]fixtureRow{
			{docket: "12", href: "/bbby/Home-DownloadPDF?id1=12", title: "  Motion to\n  Dismiss ", date: "01/02/2023"},
			{docket: "", href: "https://cdn.example.com/13.pdf", title: "Order: Granted?", date: "01/03/2023"},
		}, "", false))
		if err := b.Navigate(ctx, startURL); err != nil {
			t.Fatal(err)
		}

		records, err := NewExtractor(b, config.DefaultSelectors(), WithExtractorLogger(log.Discard())).Extract(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("expected 2 records, got %d", len(records))
		}

		first := records[0]
		if first.URL != "https://restructuring.example.com/bbby/Home-DownloadPDF?id1=12" {
			t.Errorf("expected resolved URL, got %q", first.URL)
		}
		if first.OriginalHref != "/bbby/Home-DownloadPDF?id1=12" {
			t.Errorf("expected raw href to be kept, got %q", first.OriginalHref)
		}
		if first.Title != "Motion to Dismiss" {
			t.Errorf("expected collapsed title, got %q", first.Title)
		}
		if first.FilenameSuggestion != "01_02_2023 - DN 12 - Motion to Dismiss" {
			t.Errorf("unexpected filename suggestion %q", first.FilenameSuggestion)
		}

		second := records[1]
		if second.URL != "https://cdn.example.com/13.pdf" {
			t.Errorf("expected absolute href unchanged, got %q", second.URL)
		}
		// Trailing underscores are trimmed; an empty docket keeps its separator spaces.
		if second.FilenameSuggestion != "01_03_2023 - DN  - Order_ Granted" {
			t.Errorf("unexpected filename suggestion %q", second.FilenameSuggestion)
		}
	})

	t.Run("incomplete rows are skipped", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		b := browser.NewStatic()
		b.AddHTML(startURL, docketPage([]fixtureRow{
			{docket: "1", noLink: true, date: "01/01/2023"},
			{docket: "2", href: "", title: "No target", date: "01/01/2023"},
			{docket: "3", href: "/doc/3", title: "No date", noDate: true},
			{docket: "4", href: "/doc/4", title: "Good", date: "01/04/2023"},
		}, "", false))
		if err := b.Navigate(ctx, startURL); err != nil {
			t.Fatal(err)
		}

		records, err := NewExtractor(b, config.DefaultSelectors(), WithExtractorLogger(log.Discard())).Extract(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 1 || records[0].DocketNumber != "4" {
			t.Errorf("expected only docket 4, got %v", records)
		}
	})

	t.Run("missing table yields no records", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		b := browser.NewStatic()
		b.AddHTML(startURL, "<html><body><p>Maintenance</p></body></html>")
		if err := b.Navigate(ctx, startURL); err != nil {
			t.Fatal(err)
		}
		records, err := NewExtractor(b, config.DefaultSelectors(), WithExtractorLogger(log.Discard())).Extract(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if records == nil || len(records) != 0 {
			t.Errorf("expected empty non-nil slice, got %v", records)
		}
	})

	t.Run("closed browser is an error", func(t *testing.T) {
		t.Parallel()
		b := browser.NewStatic()
		_ = b.Quit()
		_, err := NewExtractor(b, config.DefaultSelectors(), WithExtractorLogger(log.Discard())).Extract(context.Background())
		if !errors.Is(err, browser.ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
	})
}

// TestPaginatorRun tests the discovery state machine.
func TestPaginatorRun(t *testing.T) {
	t.Parallel()

	t.Run("walks pages until a page has nothing new", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		page2 := startURL + "?p=2"
		b := browser.NewStatic()
		b.AddHTML(startURL, docketPage(rowsFor(0, 2), "?p=2", false))
		// Page 2 links to itself, as a docket that keeps serving its last page.
		b.AddHTML(page2, docketPage(rowsFor(2, 3), "?p=2", false))
		if err := b.Navigate(ctx, startURL); err != nil {
			t.Fatal(err)
		}

		book := ledger.NewBook(nil)
		saver := &recordingSaver{}
		pacer := pace.NewInstant()
		res := newPaginator(b, pacer).Run(ctx, book, saver)

		if res.Reason != StopNoNewRecords {
			t.Errorf("expected %s, got %s", StopNoNewRecords, res.Reason)
		}
		if res.Pages != 3 || res.Added != 5 {
			t.Errorf("expected 3 pages and 5 added, got %d pages and %d added", res.Pages, res.Added)
		}
		if book.Len() != 5 {
			t.Errorf("expected 5 records in book, got %d", book.Len())
		}
		if saver.calls != 2 {
			t.Errorf("expected a save after each page with new records, got %d saves", saver.calls)
		}
		if len(saver.last) != 5 {
			t.Errorf("expected last save to hold 5 records, got %d", len(saver.last))
		}
		if b.Clicks() != 2 {
			t.Errorf("expected 2 clicks, got %d", b.Clicks())
		}

		sleeps := pacer.Sleeps()
		want := []time.Duration{
			config.DefaultPreClickPause, config.DefaultPageDelay.Max,
			config.DefaultPreClickPause, config.DefaultPageDelay.Max,
		}
		if len(sleeps) != len(want) {
			t.Fatalf("expected %d waits, got %v", len(want), sleeps)
		}
		for i := range want {
			if sleeps[i] != want[i] {
				t.Errorf("wait %d: expected %v, got %v", i, want[i], sleeps[i])
			}
		}
	})

	t.Run("stale first page stops without clicking", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		b := browser.NewStatic()
		b.AddHTML(startURL, docketPage(rowsFor(0, 3), "?p=2", false))
		if err := b.Navigate(ctx, startURL); err != nil {
			t.Fatal(err)
		}

		seed := []model.DocumentRecord{}
		for _, r := range rowsFor(0, 3) {
			seed = append(seed, model.NewDocumentRecord(
				"https://restructuring.example.com"+r.href, r.href, r.docket, r.title, r.date))
		}
		book := ledger.NewBook(seed)
		saver := &recordingSaver{}
		res := newPaginator(b, pace.NewInstant()).Run(ctx, book, saver)

		if res.Reason != StopNoNewRecords {
			t.Errorf("expected %s, got %s", StopNoNewRecords, res.Reason)
		}
		if b.Clicks() != 0 {
			t.Errorf("expected no click, got %d", b.Clicks())
		}
		if saver.calls != 0 {
			t.Errorf("expected no save, got %d", saver.calls)
		}
		if book.Len() != 3 {
			t.Errorf("expected ledger unchanged at 3, got %d", book.Len())
		}
	})

	t.Run("missing next control ends discovery", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		b := browser.NewStatic()
		b.AddHTML(startURL, docketPage(rowsFor(0, 2), "", false))
		if err := b.Navigate(ctx, startURL); err != nil {
			t.Fatal(err)
		}
		res := newPaginator(b, pace.NewInstant()).Run(ctx, ledger.NewBook(nil), &recordingSaver{})
		if res.Reason != StopNoNextControl || res.Pages != 1 || res.Added != 2 {
			t.Errorf("unexpected result %+v", res)
		}
	})

	t.Run("disabled next control ends discovery", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		b := browser.NewStatic()
		b.AddHTML(startURL, docketPage(rowsFor(0, 2), "?p=2", true))
		if err := b.Navigate(ctx, startURL); err != nil {
			t.Fatal(err)
		}
		res := newPaginator(b, pace.NewInstant()).Run(ctx, ledger.NewBook(nil), &recordingSaver{})
		if res.Reason != StopNoNextControl {
			t.Errorf("expected %s, got %s", StopNoNextControl, res.Reason)
		}
		if b.Clicks() != 0 {
			t.Errorf("expected no click, got %d", b.Clicks())
		}
	})

	t.Run("failed click ends discovery", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		b := browser.NewStatic()
		b.AddHTML(startURL, docketPage(rowsFor(0, 2), "?p=2", false))
		b.FailNavigation(startURL+"?p=2", errors.New("net::ERR_CONNECTION_RESET"))
		if err := b.Navigate(ctx, startURL); err != nil {
			t.Fatal(err)
		}
		res := newPaginator(b, pace.NewInstant()).Run(ctx, ledger.NewBook(nil), &recordingSaver{})
		if res.Reason != StopClickFailed {
			t.Errorf("expected %s, got %s", StopClickFailed, res.Reason)
		}
		if res.Added != 2 {
			t.Errorf("expected records from page 1 to be kept, got %d", res.Added)
		}
	})

	t.Run("save failure does not stop discovery", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		b := browser.NewStatic()
		b.AddHTML(startURL, docketPage(rowsFor(0, 2), "", false))
		if err := b.Navigate(ctx, startURL); err != nil {
			t.Fatal(err)
		}
		saver := &recordingSaver{err: errors.New("disk full")}
		res := newPaginator(b, pace.NewInstant()).Run(ctx, ledger.NewBook(nil), saver)
		if res.Added != 2 || res.Reason != StopNoNextControl {
			t.Errorf("unexpected result %+v", res)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()
		b := browser.NewStatic()
		b.AddHTML(startURL, docketPage(rowsFor(0, 2), "?p=2", false))
		if err := b.Navigate(context.Background(), startURL); err != nil {
			t.Fatal(err)
		}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		res := newPaginator(b, pace.NewInstant()).Run(ctx, ledger.NewBook(nil), &recordingSaver{})
		if res.Reason != StopCancelled || res.Pages != 0 {
			t.Errorf("unexpected result %+v", res)
		}
	})

	t.Run("persists through the ledger file", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		b := browser.NewStatic()
		b.AddHTML(startURL, docketPage(rowsFor(0, 2), "", false))
		if err := b.Navigate(ctx, startURL); err != nil {
			t.Fatal(err)
		}
		file := ledger.NewFile(filepath.Join(t.TempDir(), "scraped_links.json"), log.Discard())
		newPaginator(b, pace.NewInstant()).Run(ctx, ledger.NewBook(file.Load()), file)

		stored, err := file.Read()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(stored) != 2 {
			t.Errorf("expected 2 stored records, got %d", len(stored))
		}
	})
}

// TestStateString tests state names used in logs.
func TestStateString(t *testing.T) {
	t.Parallel()
	if StateOnPage.String() != "ON_PAGE" || StateAdvancing.String() != "ADVANCING" || StateDone.String() != "DONE" {
		t.Error("unexpected state names")
	}
	if State(42).String() != "UNKNOWN" {
		t.Error("expected UNKNOWN for out-of-range state")
	}
}
