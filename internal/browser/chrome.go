package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

const (
	// navigateTimeout bounds a single page load.
	navigateTimeout = 60 * time.Second

	// elementTimeout bounds reads of an element that is already known.
	elementTimeout = 5 * time.Second

	// startTimeout bounds browser startup.
	startTimeout = 45 * time.Second
)

// ChromeOptions configures a Chrome session.
type ChromeOptions struct {
	// Headless hides the browser window. CAPTCHAs need a visible window.
	Headless bool

	// ExecPath is the Chrome binary. Empty lets chromedp find one.
	ExecPath string

	// UserDataDir is the profile directory. Download preferences are
	// written into it before launch.
	UserDataDir string

	// DownloadDir receives every download.
	DownloadDir string

	// Logger receives chromedp diagnostics at debug level.
	Logger *slog.Logger
}

// Chrome drives a local Chrome or Chromium through the DevTools protocol.
type Chrome struct {
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	downloadDir string
	logger      *slog.Logger

	mu       sync.Mutex
	closed   bool
	expected string
	pending  map[string]string
}

// NewChrome launches Chrome configured to save PDFs into opts.DownloadDir
// without prompting and without opening the built-in viewer.
// The session outlives ctx cancellation; call Quit to release it.
func NewChrome(ctx context.Context, opts ChromeOptions) (*Chrome, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.DownloadDir == "" {
		return nil, errors.New("chrome: download directory is required")
	}

	if opts.UserDataDir != "" {
		if err := writePreferences(opts.UserDataDir, opts.DownloadDir); err != nil {
			return nil, fmt.Errorf("failed to prepare chrome profile: %w", err)
		}
	}

	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts,
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.WindowSize(1366, 900),
	)
	if opts.UserDataDir != "" {
		allocOpts = append(allocOpts, chromedp.UserDataDir(opts.UserDataDir))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug("chromedp", "msg", fmt.Sprintf(format, args...))
		}),
		chromedp.WithErrorf(func(format string, args ...any) {
			logger.Debug("chromedp error", "msg", fmt.Sprintf(format, args...))
		}),
	)

	c := &Chrome{
		allocCancel: allocCancel,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		downloadDir: opts.DownloadDir,
		logger:      logger,
		pending:     make(map[string]string),
	}

	chromedp.ListenTarget(tabCtx, c.onEvent)

	// The first Run starts the browser and must use the tab context itself;
	// a derived context would tear the browser down when it ends.
	started := make(chan error, 1)
	go func() {
		started <- chromedp.Run(tabCtx,
			cdpbrowser.SetDownloadBehavior(cdpbrowser.SetDownloadBehaviorBehaviorAllowAndName).
				WithDownloadPath(opts.DownloadDir).
				WithEventsEnabled(true),
		)
	}()

	timer := time.NewTimer(startTimeout)
	defer timer.Stop()
	select {
	case err := <-started:
		if err != nil {
			tabCancel()
			allocCancel()
			return nil, fmt.Errorf("failed to start chrome: %w", err)
		}
	case <-timer.C:
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start chrome: %w", ErrTimeout)
	case <-ctx.Done():
		tabCancel()
		allocCancel()
		return nil, ctx.Err()
	}

	logger.Debug("chrome started", "headless", opts.Headless, "download_dir", opts.DownloadDir)
	return c, nil
}

// run executes actions on the tab, bounded by timeout and by ctx.
func (c *Chrome) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if c.isClosed() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(c.tabCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}

// Navigate loads url and waits for the load event.
func (c *Chrome) Navigate(ctx context.Context, url string) error {
	err := c.run(ctx, navigateTimeout, chromedp.Navigate(url))
	if err != nil && isAbortedNavigation(err) {
		c.logger.Debug("navigation became a download", "url", url)
		return nil
	}
	return err
}

// CurrentURL returns the tab's location.
func (c *Chrome) CurrentURL(ctx context.Context) (string, error) {
	var loc string
	if err := c.run(ctx, elementTimeout, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

// PageText returns the outer HTML of the document element.
func (c *Chrome) PageText(ctx context.Context) (string, error) {
	var html string
	if err := c.run(ctx, elementTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

// FindAll waits for selector to match and returns every match.
func (c *Chrome) FindAll(ctx context.Context, selector string, timeout time.Duration) ([]Element, error) {
	var nodes []*cdp.Node
	if err := c.run(ctx, timeout, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll)); err != nil {
		return nil, err
	}
	elems := make([]Element, len(nodes))
	for i, n := range nodes {
		elems[i] = n
	}
	return elems, nil
}

// FindIn queries below parent without waiting.
func (c *Chrome) FindIn(ctx context.Context, parent Element, selector string) (Element, error) {
	node, err := asNode(parent)
	if err != nil {
		return nil, err
	}
	var nodes []*cdp.Node
	err = c.run(ctx, elementTimeout,
		chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.FromNode(node), chromedp.AtLeast(0)),
	)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchElement, selector)
	}
	return nodes[0], nil
}

// WaitClickable waits for a visible match of selector and rejects it when
// it is marked disabled.
func (c *Chrome) WaitClickable(ctx context.Context, selector string, timeout time.Duration) (Element, error) {
	var nodes []*cdp.Node
	if err := c.run(ctx, timeout, chromedp.Nodes(selector, &nodes, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTimeout, selector)
	}
	if isDisabledNode(nodes[0]) {
		return nil, fmt.Errorf("%w: %s", ErrNotClickable, selector)
	}
	return nodes[0], nil
}

// Text returns the text content of e.
func (c *Chrome) Text(ctx context.Context, e Element) (string, error) {
	node, err := asNode(e)
	if err != nil {
		return "", err
	}
	var text string
	if err := c.run(ctx, elementTimeout, chromedp.TextContent([]cdp.NodeID{node.NodeID}, &text, chromedp.ByNodeID)); err != nil {
		return "", err
	}
	return text, nil
}

// Attribute reads the live attribute value of e.
func (c *Chrome) Attribute(ctx context.Context, e Element, name string) (string, error) {
	node, err := asNode(e)
	if err != nil {
		return "", err
	}
	var (
		value string
		ok    bool
	)
	err = c.run(ctx, elementTimeout,
		chromedp.AttributeValue([]cdp.NodeID{node.NodeID}, name, &value, &ok, chromedp.ByNodeID),
	)
	if err != nil {
		return "", err
	}
	return value, nil
}

// ScrollIntoView scrolls e into the viewport.
func (c *Chrome) ScrollIntoView(ctx context.Context, e Element) error {
	node, err := asNode(e)
	if err != nil {
		return err
	}
	return c.run(ctx, elementTimeout, chromedp.ScrollIntoView([]cdp.NodeID{node.NodeID}, chromedp.ByNodeID))
}

// Click invokes the element's click() method in the page.
func (c *Chrome) Click(ctx context.Context, e Element) error {
	node, err := asNode(e)
	if err != nil {
		return err
	}
	return c.run(ctx, elementTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(node.NodeID).Do(ctx)
		if err != nil {
			return fmt.Errorf("failed to resolve node: %w", err)
		}
		_, exc, err := runtime.CallFunctionOn(`function() { this.click(); }`).
			WithObjectID(obj.ObjectID).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return fmt.Errorf("click failed: %s", exc.Text)
		}
		return nil
	}))
}

// ExpectDownload names the next download.
func (c *Chrome) ExpectDownload(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expected = name
}

// Quit closes the browser and the allocator.
func (c *Chrome) Quit() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.closed = true
	c.mu.Unlock()

	err := chromedp.Cancel(c.tabCtx)
	c.tabCancel()
	c.allocCancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to close chrome: %w", err)
	}
	return nil
}

func (c *Chrome) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func asNode(e Element) (*cdp.Node, error) {
	node, ok := e.(*cdp.Node)
	if !ok || node == nil {
		return nil, ErrUnknownElement
	}
	return node, nil
}

// isDisabledNode reports whether a node carries a disabled marker.
func isDisabledNode(n *cdp.Node) bool {
	if _, ok := n.Attribute("disabled"); ok {
		return true
	}
	if v, ok := n.Attribute("aria-disabled"); ok && strings.EqualFold(v, "true") {
		return true
	}
	if class, ok := n.Attribute("class"); ok {
		for _, c := range strings.Fields(class) {
			if c == "disabled" {
				return true
			}
		}
	}
	return false
}

// isAbortedNavigation reports whether a navigation error means the
// response was handed to the download manager.
func isAbortedNavigation(err error) bool {
	return strings.Contains(err.Error(), "net::ERR_ABORTED")
}

// ensureDir is used by the profile writer and download renamer.
func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0o750)
}
