package browser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// blankPage is served for URLs without registered content.
const blankPage = "<html><head></head><body></body></html>"

// NavigateHook runs after Static loads a URL.
type NavigateHook func(pageURL string) error

// Static is a Browser over in-memory HTML documents. It serves saved docket
// pages to the import command and fixtures to tests. Clicking a link with
// an href navigates to the resolved target.
type Static struct {
	mu         sync.Mutex
	pages      map[string]string
	failures   map[string]error
	current    *goquery.Document
	currentURL string
	visits     []string
	clicks     int
	closed     bool
	onNavigate NavigateHook
	expected   []string
}

// NewStatic returns an empty Static browser.
func NewStatic() *Static {
	return &Static{
		pages:    make(map[string]string),
		failures: make(map[string]error),
	}
}

// NewStaticFromFile loads a saved HTML page and opens it as if it had been
// served from pageURL, so relative links resolve against the live site.
func NewStaticFromFile(ctx context.Context, path, pageURL string) (*Static, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided saved page
	if err != nil {
		return nil, fmt.Errorf("failed to read saved page: %w", err)
	}
	s := NewStatic()
	s.AddHTML(pageURL, string(data))
	if err := s.Navigate(ctx, pageURL); err != nil {
		return nil, err
	}
	return s, nil
}

// AddHTML registers the document served at pageURL.
func (s *Static) AddHTML(pageURL, doc string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[pageURL] = doc
}

// AddPage registers the document read from r.
func (s *Static) AddPage(pageURL string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.AddHTML(pageURL, string(data))
	return nil
}

// FailNavigation makes navigations to pageURL return err.
func (s *Static) FailNavigation(pageURL string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[pageURL] = err
}

// OnNavigate installs a hook run after each successful navigation.
// Tests use it to drop downloaded files into place.
func (s *Static) OnNavigate(hook NavigateHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onNavigate = hook
}

// Visits returns every URL navigated to, in order.
func (s *Static) Visits() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.visits))
	copy(out, s.visits)
	return out
}

// Clicks returns the number of successful clicks.
func (s *Static) Clicks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clicks
}

// ExpectedDownloads returns the names announced through ExpectDownload.
func (s *Static) ExpectedDownloads() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.expected))
	copy(out, s.expected)
	return out
}

// ExpectDownload records the announced name.
func (s *Static) ExpectDownload(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expected = append(s.expected, name)
}

// Navigate loads the registered document for pageURL, or a blank page.
func (s *Static) Navigate(ctx context.Context, pageURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.visits = append(s.visits, pageURL)
	if err, ok := s.failures[pageURL]; ok {
		s.mu.Unlock()
		return err
	}
	content, ok := s.pages[pageURL]
	if !ok {
		content = blankPage
	}
	doc, err := parseDocument(content)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to parse %s: %w", pageURL, err)
	}
	s.current = doc
	s.currentURL = pageURL
	hook := s.onNavigate
	s.mu.Unlock()

	if hook != nil {
		return hook(pageURL)
	}
	return nil
}

// CurrentURL returns the URL of the loaded document.
func (s *Static) CurrentURL(ctx context.Context) (string, error) {
	_, u, err := s.state(ctx)
	if err != nil {
		return "", err
	}
	return u, nil
}

// PageText returns the loaded document's HTML.
func (s *Static) PageText(ctx context.Context) (string, error) {
	doc, _, err := s.state(ctx)
	if err != nil {
		return "", err
	}
	return doc.Html()
}

// FindAll returns all matches of selector. Static content never changes, so
// a miss is reported as ErrTimeout without waiting.
func (s *Static) FindAll(ctx context.Context, selector string, _ time.Duration) ([]Element, error) {
	doc, _, err := s.state(ctx)
	if err != nil {
		return nil, err
	}
	sel := doc.Find(selector)
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTimeout, selector)
	}
	elems := make([]Element, 0, sel.Length())
	sel.Each(func(_ int, item *goquery.Selection) {
		elems = append(elems, item)
	})
	return elems, nil
}

// FindIn returns the first descendant of parent matching selector.
func (s *Static) FindIn(ctx context.Context, parent Element, selector string) (Element, error) {
	if _, _, err := s.state(ctx); err != nil {
		return nil, err
	}
	p, err := asSelection(parent)
	if err != nil {
		return nil, err
	}
	found := p.Find(selector).First()
	if found.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchElement, selector)
	}
	return found, nil
}

// WaitClickable returns the first match of selector unless it is disabled.
// Like FindAll it does not wait.
func (s *Static) WaitClickable(ctx context.Context, selector string, _ time.Duration) (Element, error) {
	doc, _, err := s.state(ctx)
	if err != nil {
		return nil, err
	}
	found := doc.Find(selector).First()
	if found.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTimeout, selector)
	}
	if isDisabledSelection(found) {
		return nil, fmt.Errorf("%w: %s", ErrNotClickable, selector)
	}
	return found, nil
}

// Text returns the text content of e.
func (s *Static) Text(ctx context.Context, e Element) (string, error) {
	if _, _, err := s.state(ctx); err != nil {
		return "", err
	}
	sel, err := asSelection(e)
	if err != nil {
		return "", err
	}
	return sel.Text(), nil
}

// Attribute returns the raw attribute value of e.
func (s *Static) Attribute(ctx context.Context, e Element, name string) (string, error) {
	if _, _, err := s.state(ctx); err != nil {
		return "", err
	}
	sel, err := asSelection(e)
	if err != nil {
		return "", err
	}
	v, _ := sel.Attr(name)
	return v, nil
}

// ScrollIntoView only validates e.
func (s *Static) ScrollIntoView(ctx context.Context, e Element) error {
	if _, _, err := s.state(ctx); err != nil {
		return err
	}
	_, err := asSelection(e)
	return err
}

// Click follows the href of e when it has one.
func (s *Static) Click(ctx context.Context, e Element) error {
	_, base, err := s.state(ctx)
	if err != nil {
		return err
	}
	sel, err := asSelection(e)
	if err != nil {
		return err
	}
	if isDisabledSelection(sel) {
		return ErrNotClickable
	}

	s.mu.Lock()
	s.clicks++
	s.mu.Unlock()

	href, ok := sel.Attr("href")
	if !ok || href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return nil
	}
	target, err := resolve(base, href)
	if err != nil {
		return fmt.Errorf("failed to resolve link %q: %w", href, err)
	}
	return s.Navigate(ctx, target)
}

// Quit closes the browser.
func (s *Static) Quit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.closed = true
	return nil
}

func (s *Static) state(ctx context.Context) (*goquery.Document, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, "", ErrClosed
	}
	if s.current == nil {
		doc, err := parseDocument(blankPage)
		if err != nil {
			return nil, "", err
		}
		s.current = doc
		s.currentURL = "about:blank"
	}
	return s.current, s.currentURL, nil
}

func parseDocument(content string) (*goquery.Document, error) {
	root, err := html.Parse(bytes.NewReader([]byte(content)))
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromNode(root), nil
}

func asSelection(e Element) (*goquery.Selection, error) {
	sel, ok := e.(*goquery.Selection)
	if !ok || sel == nil || sel.Length() == 0 {
		return nil, ErrUnknownElement
	}
	return sel, nil
}

func isDisabledSelection(sel *goquery.Selection) bool {
	if _, ok := sel.Attr("disabled"); ok {
		return true
	}
	if v, ok := sel.Attr("aria-disabled"); ok && strings.EqualFold(v, "true") {
		return true
	}
	return sel.HasClass("disabled")
}

func resolve(base, href string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", err
	}
	return b.ResolveReference(ref).String(), nil
}
