package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() so callers can use
// errors.Is() while users still get a readable message.
var (
	// ErrNoStartURL is returned when no docket page URL is configured.
	ErrNoStartURL = errors.New("no start URL configured")

	// ErrInvalidStartURL is returned when the start URL is not an absolute http(s) URL.
	ErrInvalidStartURL = errors.New("invalid start URL: must be an absolute http or https URL")

	// ErrNoDownloadDir is returned when the download directory is empty.
	ErrNoDownloadDir = errors.New("no download directory configured")

	// ErrNoLedgerFile is returned when the ledger path is empty.
	ErrNoLedgerFile = errors.New("no ledger file configured")

	// ErrMissingSelector is returned when one of the table selectors is empty.
	// The message is wrapped with the selector name.
	ErrMissingSelector = errors.New("missing selector")

	// ErrInvalidTimeout is returned when an element wait timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidDelay is returned when a delay range is negative or inverted.
	ErrInvalidDelay = errors.New("invalid delay range: min and max must be non-negative and min <= max")

	// ErrInvalidPollAttempts is returned when the file polling budget is not positive.
	ErrInvalidPollAttempts = errors.New("invalid poll attempts: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)
