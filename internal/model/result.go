package model

import "time"

// DownloadStatus is the outcome of one download attempt.
type DownloadStatus string

const (
	// DownloadSucceeded means the target file was observed on disk.
	DownloadSucceeded DownloadStatus = "succeeded"

	// DownloadFailed means the file never appeared or an error interrupted the attempt.
	DownloadFailed DownloadStatus = "failed"

	// DownloadSkipped means the target already existed and no navigation happened.
	// Skipped downloads count as succeeded in totals.
	DownloadSkipped DownloadStatus = "skipped"
)

// DownloadResult records what happened to one DocumentRecord.
type DownloadResult struct {
	// URL is the record's identity key.
	URL string `json:"url"`

	// Filename is the expected file name, extension included.
	Filename string `json:"filename"`

	// Path is the full expected path inside the download directory.
	Path string `json:"path"`

	// Status is the final outcome.
	Status DownloadStatus `json:"status"`

	// CaptchaDetected is true when the document page mentioned a CAPTCHA.
	CaptchaDetected bool `json:"captcha_detected"`

	// Prompted is true when this record triggered the human prompt.
	Prompted bool `json:"prompted"`

	// Pages is the PDF page count, or 0 when it could not be read.
	Pages int `json:"pages,omitempty"`

	// Error describes the failure. Empty on success.
	Error string `json:"error,omitempty"`

	// AttemptedAt is when processing of the record began.
	AttemptedAt time.Time `json:"attempted_at"`

	// Duration is how long the attempt took.
	Duration time.Duration `json:"duration"`
}

// OK reports whether the result counts as a success.
func (r DownloadResult) OK() bool {
	return r.Status == DownloadSucceeded || r.Status == DownloadSkipped
}
