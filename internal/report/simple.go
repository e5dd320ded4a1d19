package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/docketrocket/internal/model"
)

// SimpleWriter outputs the human-readable download summary.
type SimpleWriter struct {
	baseWriter

	// verbose lists every attempted record, not only failures.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose lists every result instead of failures only.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.RunReport) (int, error) {
	var sb strings.Builder

	w.writeDiscovery(&sb, report)
	w.writeSummary(&sb, report)
	w.writeResults(&sb, report)
	w.writeErrors(&sb, report)

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeDiscovery(sb *strings.Builder, report *model.RunReport) {
	sb.WriteString("\n--- Discovery ---\n")
	fmt.Fprintf(sb, "Start page:      %s\n", report.StartURL)
	fmt.Fprintf(sb, "Pages visited:   %d\n", report.PagesVisited)
	fmt.Fprintf(sb, "New links:       %d\n", report.NewRecords)
	fmt.Fprintf(sb, "Ledger size:     %d (%s)\n", report.LedgerSize, report.LedgerPath)
	if report.StopReason != "" {
		fmt.Fprintf(sb, "Stopped because: %s\n", report.StopReason)
	}
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.RunReport) {
	sb.WriteString("\n--- Download Summary ---\n")
	fmt.Fprintf(sb, "Successfully downloaded/already existed: %d PDFs\n", report.Succeeded)
	fmt.Fprintf(sb, "Failed to download: %d PDFs\n", report.Failed)
	fmt.Fprintf(sb, "All files are located in: %s\n", report.DownloadDir)
	fmt.Fprintf(sb, "Status: %s", statusText(report))
	if elapsed := report.Elapsed(); elapsed > 0 {
		fmt.Fprintf(sb, " in %s", elapsed.Round(time.Second))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeResults(sb *strings.Builder, report *model.RunReport) {
	header := false
	for _, res := range report.Results {
		if res.OK() && !w.verbose {
			continue
		}
		if !header {
			sb.WriteString("\n--- Results ---\n")
			header = true
		}
		fmt.Fprintf(sb, "  [%s] %s\n", res.Status, res.Filename)
		if res.Error != "" {
			fmt.Fprintf(sb, "      %s\n", res.Error)
		}
	}
}

func (w *SimpleWriter) writeErrors(sb *strings.Builder, report *model.RunReport) {
	if len(report.Errors) == 0 {
		return
	}
	sb.WriteString("\n--- Errors ---\n")
	for _, e := range report.Errors {
		fmt.Fprintf(sb, "  * %s\n", e)
	}
}
