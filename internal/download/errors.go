package download

import "errors"

var (
	// ErrFileNotFound is returned when the target file never appears
	// within the polling budget.
	ErrFileNotFound = errors.New("downloaded file not found")

	// ErrPromptAborted is returned when the human acknowledgment could
	// not be read.
	ErrPromptAborted = errors.New("captcha prompt aborted")
)
