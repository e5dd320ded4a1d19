package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// Timing defaults keep the request rate close to what a person clicking
// through the docket would produce.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "docketrocket"

	// DefaultStartURL is the docket table page the crawl starts from.
	DefaultStartURL = "https://restructuring.ra.kroll.com/bbby/Home-DocketInfo"

	// DefaultLedgerFile is the ledger path, relative to the working directory.
	// The name matches the file written by earlier versions of the tool.
	DefaultLedgerFile = "scraped_links.json"

	// DefaultDownloadFolder is the folder created under the user's
	// Downloads directory when no download directory is configured.
	DefaultDownloadFolder = "DocketRocketSource"

	// DefaultRowWaitTimeout bounds the wait for docket table rows.
	DefaultRowWaitTimeout = 10 * time.Second

	// DefaultNextWaitTimeout bounds the wait for a clickable "next page" control.
	DefaultNextWaitTimeout = 5 * time.Second

	// DefaultPreClickPause is the pause between scrolling the next control
	// into view and clicking it.
	DefaultPreClickPause = 500 * time.Millisecond

	// DefaultAutoDownloadWait is the fixed wait for an automatic download
	// to start when no CAPTCHA is involved.
	DefaultAutoDownloadWait = 2 * time.Second

	// DefaultPollAttempts is how many times the downloader checks for the
	// target file before declaring failure.
	DefaultPollAttempts = 30

	// DefaultPollInterval is the wait between file checks.
	DefaultPollInterval = 1 * time.Second
)

// DelayRange is a randomized wait: a duration is drawn uniformly from [Min, Max].
type DelayRange struct {
	Min time.Duration `yaml:"min"`
	Max time.Duration `yaml:"max"`
}

// validate checks that the range is non-negative and ordered.
func (r DelayRange) validate() error {
	if r.Min < 0 || r.Max < 0 || r.Min > r.Max {
		return ErrInvalidDelay
	}
	return nil
}

// Default randomized delays.
var (
	// DefaultInitialLoadDelay lets the first docket page run its scripts.
	DefaultInitialLoadDelay = DelayRange{Min: 2 * time.Second, Max: 5 * time.Second}

	// DefaultPageDelay is the wait after clicking "next page".
	DefaultPageDelay = DelayRange{Min: 3 * time.Second, Max: 7 * time.Second}

	// DefaultDownloadDelay throttles navigation between documents.
	DefaultDownloadDelay = DelayRange{Min: 3 * time.Second, Max: 8 * time.Second}

	// DefaultSettleDelay lets a document page or CAPTCHA render.
	DefaultSettleDelay = DelayRange{Min: 1 * time.Second, Max: 3 * time.Second}
)

// Selectors are the CSS selectors used to read the docket table.
// Site markup is the most volatile part of the system, so all of them are
// configuration rather than code.
type Selectors struct {
	// Rows matches every row of the docket table on the current page.
	Rows string `yaml:"rows,omitempty"`

	// Link matches the document link inside a row. Its text is the title.
	Link string `yaml:"link,omitempty"`

	// DocketNumber matches the docket number cell inside a row.
	DocketNumber string `yaml:"docketNumber,omitempty"`

	// DateFiled matches the filing date cell inside a row.
	DateFiled string `yaml:"dateFiled,omitempty"`

	// NextPage matches the pagination "next" control.
	NextPage string `yaml:"nextPage,omitempty"`
}

// DefaultSelectors returns selectors for the Kroll restructuring docket layout.
func DefaultSelectors() Selectors {
	return Selectors{
		Rows: "main > div:nth-of-type(3) > div:nth-of-type(2) > div:nth-of-type(3) > div:nth-of-type(2)" +
			" > div:nth-of-type(3) > div:nth-of-type(4) > div:nth-of-type(1) > table > tbody > tr",
		Link:         "td:nth-of-type(2) > span > p > a",
		DocketNumber: "td:nth-of-type(1)",
		DateFiled:    "td:nth-of-type(3)",
		NextPage: "main > div:nth-of-type(3) > div:nth-of-type(2) > div:nth-of-type(2) > div:nth-of-type(2)" +
			" > div:nth-of-type(1) > a:nth-of-type(3)",
	}
}

// validate checks that no selector is empty.
func (s Selectors) validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"rows", s.Rows},
		{"link", s.Link},
		{"docketNumber", s.DocketNumber},
		{"dateFiled", s.DateFiled},
		{"nextPage", s.NextPage},
	}
	for _, f := range fields {
		if f.value == "" {
			return fmt.Errorf("%w: %s", ErrMissingSelector, f.name)
		}
	}
	return nil
}

// Config holds all configuration options for a crawl run.
// It is populated from defaults, the optional config file and CLI flags,
// in that order, and passed down explicitly rather than kept in globals.
type Config struct {
	// StartURL is the docket table page to crawl.
	StartURL string

	// DownloadDir is where the browser saves PDFs and where the downloader
	// looks for them.
	DownloadDir string

	// LedgerFile is the JSON ledger of discovered records.
	LedgerFile string

	// Selectors locate the docket table, its cells and the next control.
	Selectors Selectors

	// RowWaitTimeout bounds the wait for table rows on each page.
	RowWaitTimeout time.Duration

	// NextWaitTimeout bounds the wait for the next control to become clickable.
	NextWaitTimeout time.Duration

	// PreClickPause is the pause before clicking the next control.
	PreClickPause time.Duration

	// InitialLoadDelay is the wait after opening the start page.
	InitialLoadDelay DelayRange

	// PageDelay is the wait after moving to the next page.
	PageDelay DelayRange

	// DownloadDelay is the wait between document navigations.
	DownloadDelay DelayRange

	// SettleDelay is the wait after navigating to a document URL.
	SettleDelay DelayRange

	// AutoDownloadWait is the fixed wait used when no CAPTCHA is shown.
	AutoDownloadWait time.Duration

	// PollAttempts and PollInterval bound the wait for a downloaded file.
	PollAttempts int
	PollInterval time.Duration

	// SkipExisting counts records whose file is already on disk as
	// succeeded without navigating to them.
	SkipExisting bool

	// Headless runs Chrome without a window. A visible window is needed
	// to solve a CAPTCHA, so this defaults to false.
	Headless bool

	// ChromePath is the Chrome/Chromium executable. Empty means auto-detect.
	ChromePath string

	// UserDataDir is the Chrome profile directory.
	UserDataDir string

	// SaveHistory records runs and download attempts in the history database.
	SaveHistory bool

	// DBDir is the directory of the history database.
	DBDir string

	// LogFile receives debug-level logs. Empty disables file logging.
	LogFile string

	// Verbose enables debug logging on the console.
	Verbose bool

	// JSONReport and MarkdownReport select the run report format.
	// They are mutually exclusive; neither means plain text.
	JSONReport     bool
	MarkdownReport bool

	// ReportFile writes the report to a file instead of stdout.
	ReportFile string

	// ConfigFilePath is the explicitly requested configuration file.
	ConfigFilePath string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		StartURL:         DefaultStartURL,
		DownloadDir:      DefaultDownloadDir(),
		LedgerFile:       DefaultLedgerFile,
		Selectors:        DefaultSelectors(),
		RowWaitTimeout:   DefaultRowWaitTimeout,
		NextWaitTimeout:  DefaultNextWaitTimeout,
		PreClickPause:    DefaultPreClickPause,
		InitialLoadDelay: DefaultInitialLoadDelay,
		PageDelay:        DefaultPageDelay,
		DownloadDelay:    DefaultDownloadDelay,
		SettleDelay:      DefaultSettleDelay,
		AutoDownloadWait: DefaultAutoDownloadWait,
		PollAttempts:     DefaultPollAttempts,
		PollInterval:     DefaultPollInterval,
		UserDataDir:      filepath.Join(XDGCacheDir(), "chrome-profile"),
		SaveHistory:      true,
		DBDir:            XDGDataDir(),
		LogFile:          filepath.Join(XDGStateDir(), AppName+".log"),
	}
}

// DefaultDownloadDir returns the default PDF destination under the user's
// Downloads directory.
func DefaultDownloadDir() string {
	base := xdg.UserDirs.Download
	if base == "" {
		base = filepath.Join(xdg.Home, "Downloads")
	}
	return filepath.Join(base, DefaultDownloadFolder)
}

// XDGDataDir returns the XDG data directory for docketrocket.
// On Linux: ~/.local/share/docketrocket
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for docketrocket.
// On Linux: ~/.cache/docketrocket
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// XDGStateDir returns the XDG state directory for docketrocket.
// On Linux: ~/.local/state/docketrocket
func XDGStateDir() string {
	return filepath.Join(xdg.StateHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found.
func (c *Config) Validate() error {
	if c.StartURL == "" {
		return ErrNoStartURL
	}
	u, err := url.Parse(c.StartURL)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidStartURL
	}

	if c.DownloadDir == "" {
		return ErrNoDownloadDir
	}
	if c.LedgerFile == "" {
		return ErrNoLedgerFile
	}

	if err := c.Selectors.validate(); err != nil {
		return err
	}

	if c.RowWaitTimeout <= 0 || c.NextWaitTimeout <= 0 {
		return ErrInvalidTimeout
	}

	for _, r := range []DelayRange{c.InitialLoadDelay, c.PageDelay, c.DownloadDelay, c.SettleDelay} {
		if err := r.validate(); err != nil {
			return err
		}
	}
	if c.PreClickPause < 0 || c.AutoDownloadWait < 0 || c.PollInterval < 0 {
		return ErrInvalidDelay
	}

	if c.PollAttempts <= 0 {
		return ErrInvalidPollAttempts
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}
