package model

import "time"

// RunReport is the accumulated state and outcome of one crawl run.
// Pipeline steps fill it in as they execute; report writers render it.
type RunReport struct {
	// StartURL is the docket page the crawl began on.
	StartURL string `json:"start_url"`

	// DownloadDir is where PDFs are expected to land.
	DownloadDir string `json:"download_dir"`

	// LedgerPath is the ledger file used for resumability.
	LedgerPath string `json:"ledger_path"`

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// PagesVisited is the number of docket pages extracted.
	PagesVisited int `json:"pages_visited"`

	// NewRecords is the number of records discovered in this run.
	NewRecords int `json:"new_records"`

	// LedgerSize is the number of records in the ledger after discovery.
	LedgerSize int `json:"ledger_size"`

	// StopReason explains why pagination ended.
	StopReason string `json:"stop_reason,omitempty"`

	// Queue holds the deduplicated records scheduled for download.
	Queue []DocumentRecord `json:"-"`

	// Results has one entry per attempted record, in download order.
	Results []DownloadResult `json:"results"`

	// Succeeded and Failed count download outcomes.
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`

	// PerformedSteps lists the pipeline steps that ran.
	PerformedSteps []string `json:"performed_steps"`

	// Errors collects non-fatal step errors.
	Errors []string `json:"errors,omitempty"`

	// Cancelled is true when the run was interrupted.
	Cancelled bool `json:"cancelled"`
}

// NewRunReport creates a report for a run starting now.
func NewRunReport(startURL, downloadDir, ledgerPath string) *RunReport {
	return &RunReport{
		StartURL:       startURL,
		DownloadDir:    downloadDir,
		LedgerPath:     ledgerPath,
		StartedAt:      time.Now(),
		Results:        make([]DownloadResult, 0),
		PerformedSteps: make([]string, 0),
	}
}

// AddResult appends a download result and updates the counters.
func (r *RunReport) AddResult(res DownloadResult) {
	r.Results = append(r.Results, res)
	if res.OK() {
		r.Succeeded++
	} else {
		r.Failed++
	}
}

// AddError records a non-fatal error.
func (r *RunReport) AddError(err error) {
	if err == nil {
		return
	}
	r.Errors = append(r.Errors, err.Error())
}

// Attempted returns the number of records that were processed.
func (r *RunReport) Attempted() int {
	return r.Succeeded + r.Failed
}

// Elapsed returns the run duration. It is zero until FinishedAt is set.
func (r *RunReport) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
