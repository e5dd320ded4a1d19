package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/docketrocket/internal/model"
)

// createTestReport creates a report with one of each outcome.
func createTestReport() *model.RunReport {
	r := model.NewRunReport("https://example.com/bbby/Home-DocketInfo", "/tmp/DocketRocketSource", "scraped_links.json")
	r.StartedAt = time.Date(2023, 4, 1, 10, 0, 0, 0, time.UTC)
	r.FinishedAt = r.StartedAt.Add(90 * time.Second)
	r.PagesVisited = 3
	r.NewRecords = 5
	r.LedgerSize = 12
	r.StopReason = "no-new-records"
	r.PerformedSteps = []string{"discover", "dedupe", "download"}
	r.AddResult(model.DownloadResult{URL: "https://example.com/a", Filename: "a.pdf", Status: model.DownloadSucceeded})
	r.AddResult(model.DownloadResult{URL: "https://example.com/b", Filename: "b.pdf", Status: model.DownloadSkipped})
	r.AddResult(model.DownloadResult{URL: "https://example.com/c", Filename: "c.pdf", Status: model.DownloadFailed, Error: "file not found after 30 attempts"})
	return r
}

// TestSimpleWriter tests the plain-text summary.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes download summary", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		for _, want := range []string{
			"--- Download Summary ---",
			"Successfully downloaded/already existed: 2 PDFs",
			"Failed to download: 1 PDFs",
			"All files are located in: /tmp/DocketRocketSource",
			"Pages visited:   3",
			"Stopped because: no-new-records",
			"[failed] c.pdf",
			"file not found after 30 attempts",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
		if strings.Contains(output, "a.pdf") {
			t.Error("expected successful results to be omitted without verbose")
		}
	})

	t.Run("verbose lists every result", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(createTestReport()); err != nil {
			t.Fatal(err)
		}
		for _, want := range []string{"[succeeded] a.pdf", "[skipped] b.pdf"} {
			if !strings.Contains(buf.String(), want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("reports interruption and errors", func(t *testing.T) {
		t.Parallel()
		r := createTestReport()
		r.Cancelled = true
		r.AddError(errors.New("discover: navigation failed"))
		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(r); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "Interrupted") {
			t.Error("expected interrupted status")
		}
		if !strings.Contains(buf.String(), "discover: navigation failed") {
			t.Error("expected error listing")
		}
	})
}

// TestJSONWriter tests JSON output.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(buf.String(), "}\n") {
		t.Error("expected trailing newline")
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded["succeeded"] != float64(2) || decoded["failed"] != float64(1) || decoded["attempted"] != float64(3) {
		t.Errorf("unexpected counters: %v %v %v", decoded["succeeded"], decoded["failed"], decoded["attempted"])
	}
	if decoded["elapsed_seconds"] != float64(90) {
		t.Errorf("expected elapsed_seconds 90, got %v", decoded["elapsed_seconds"])
	}
	if _, ok := decoded["Queue"]; ok {
		t.Error("expected queue to be omitted")
	}
	results, ok := decoded["results"].([]any)
	if !ok || len(results) != 3 {
		t.Errorf("expected 3 results, got %v", decoded["results"])
	}

	var compact bytes.Buffer
	if _, err := NewJSONWriter(&compact).Write(createTestReport()); err != nil {
		t.Fatal(err)
	}
	if strings.Count(compact.String(), "\n") != 1 {
		t.Error("expected compact output on a single line")
	}
}

// TestMarkdownWriter tests Markdown output.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes tables and chart", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		for _, want := range []string{
			"# Docket Download Report",
			"## Summary",
			"```mermaid",
			"Download Outcomes",
			"## Failed Downloads",
			"c.pdf",
			"docketrocket",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("omits chart when nothing was attempted", func(t *testing.T) {
		t.Parallel()
		r := model.NewRunReport("https://example.com", "/tmp", "ledger.json")
		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(r); err != nil {
			t.Fatal(err)
		}
		if strings.Contains(buf.String(), "```mermaid") {
			t.Error("expected no chart for an empty run")
		}
		if strings.Contains(buf.String(), "## Failed Downloads") {
			t.Error("expected no failure table for an empty run")
		}
	})
}

// TestNew tests format selection.
func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format Format
		want   string
	}{
		{FormatText, "--- Download Summary ---"},
		{FormatJSON, `"start_url"`},
		{FormatMarkdown, "# Docket Download Report"},
		{Format("bogus"), "--- Download Summary ---"},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			if _, err := New(tt.format, &buf).Write(createTestReport()); err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("expected %q in output", tt.want)
			}
		})
	}
}

type failingWriter struct{}

func (failingWriter) Write(*model.RunReport) (int, error) {
	return 0, errors.New("disk full")
}

// TestMultiWriter tests writing to several writers.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var a, b bytes.Buffer
	m := NewMultiWriter(NewSimpleWriter(&a), NewJSONWriter(&b))
	n, err := m.Write(createTestReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != a.Len()+b.Len() {
		t.Errorf("expected %d bytes, got %d", a.Len()+b.Len(), n)
	}

	var c bytes.Buffer
	_, err = NewMultiWriter(failingWriter{}, NewSimpleWriter(&c)).Write(createTestReport())
	if err == nil {
		t.Error("expected error from failing writer")
	}
	if c.Len() != 0 {
		t.Error("expected writing to stop at the first error")
	}
}

// TestTruncateString tests rune-aware truncation.
func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"abcdef", 3, "abc"},
		{"ééééééé", 5, "éé..."},
	}
	for _, tt := range tests {
		if got := truncateString(tt.in, tt.max); got != tt.want {
			t.Errorf("truncateString(%q, %d): expected %q, got %q", tt.in, tt.max, tt.want, got)
		}
	}
}
