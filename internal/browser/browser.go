package browser

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrTimeout is returned when a bounded element wait expires.
	ErrTimeout = errors.New("timed out waiting for element")

	// ErrNoSuchElement is returned when a lookup inside an element finds nothing.
	ErrNoSuchElement = errors.New("no such element")

	// ErrNotClickable is returned when an element exists but is disabled.
	ErrNotClickable = errors.New("element is not clickable")

	// ErrClosed is returned by every operation after Quit.
	ErrClosed = errors.New("browser is closed")

	// ErrUnknownElement is returned when an Element from another
	// implementation is passed in.
	ErrUnknownElement = errors.New("element does not belong to this browser")
)

// Element is an opaque handle to a DOM element. Handles are only valid for
// the Browser that returned them and only until the next navigation.
type Element any

// Browser is the capability boundary between docketrocket and the browser
// automation product. All methods block; none are safe for concurrent use.
type Browser interface {
	// Navigate loads url in the current tab.
	// A navigation that turns into a file download is not an error.
	Navigate(ctx context.Context, url string) error

	// CurrentURL returns the URL of the loaded document.
	CurrentURL(ctx context.Context) (string, error)

	// PageText returns the serialized HTML of the loaded document.
	PageText(ctx context.Context) (string, error)

	// FindAll waits up to timeout for at least one element matching
	// selector and returns all matches in document order.
	// It returns ErrTimeout when nothing matched in time.
	FindAll(ctx context.Context, selector string, timeout time.Duration) ([]Element, error)

	// FindIn returns the first descendant of parent matching selector
	// without waiting. It returns ErrNoSuchElement when nothing matches.
	FindIn(ctx context.Context, parent Element, selector string) (Element, error)

	// WaitClickable waits up to timeout for a visible, enabled element
	// matching selector. It returns ErrTimeout or ErrNotClickable.
	WaitClickable(ctx context.Context, selector string, timeout time.Duration) (Element, error)

	// Text returns the text content of e.
	Text(ctx context.Context, e Element) (string, error)

	// Attribute returns the raw value of the named attribute of e,
	// or an empty string when it is not set.
	Attribute(ctx context.Context, e Element, name string) (string, error)

	// ScrollIntoView scrolls e into the viewport.
	ScrollIntoView(ctx context.Context, e Element) error

	// Click clicks e directly through script, bypassing overlays that
	// would intercept a pointer click.
	Click(ctx context.Context, e Element) error

	// Quit releases the browser. Further calls return ErrClosed.
	Quit() error
}

// DownloadNamer is implemented by browsers that can save the next download
// under a caller-chosen file name.
type DownloadNamer interface {
	// ExpectDownload names the file written by the next download that starts.
	ExpectDownload(name string)
}
