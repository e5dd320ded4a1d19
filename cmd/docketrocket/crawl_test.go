package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/docketrocket/internal/browser"
	"github.com/nao1215/docketrocket/internal/config"
	"github.com/nao1215/docketrocket/internal/history"
	"github.com/nao1215/docketrocket/internal/ledger"
	"github.com/nao1215/docketrocket/internal/log"
	"github.com/nao1215/docketrocket/internal/model"
	"github.com/nao1215/docketrocket/internal/pace"
)

// TestNewCrawlCmd tests the crawl command creation.
func TestNewCrawlCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCrawlCmd()
	if cmd.Use != "crawl" {
		t.Errorf("expected use 'crawl', got %q", cmd.Use)
	}

	flags := []struct {
		name      string
		shorthand string
	}{
		{"config", "c"},
		{"url", ""},
		{"download-dir", "d"},
		{"ledger", "l"},
		{"headless", ""},
		{"chrome-path", ""},
		{"skip-existing", ""},
		{"no-history", ""},
		{"log-file", ""},
		{"json", "j"},
		{"markdown", "m"},
		{"output", "o"},
	}
	for _, f := range flags {
		flag := cmd.Flags().Lookup(f.name)
		if flag == nil {
			t.Errorf("expected %s flag", f.name)
			continue
		}
		if flag.Shorthand != f.shorthand {
			t.Errorf("expected %s shorthand %q, got %q", f.name, f.shorthand, flag.Shorthand)
		}
	}
}

func TestRunCrawl(t *testing.T) {
	t.Parallel()

	t.Run("downloads and records history", func(t *testing.T) {
		t.Parallel()
		cfg := testCrawlConfig(t)
		records := []model.DocumentRecord{testRecord(1), testRecord(2)}
		site := staticSite(cfg, records)

		var out bytes.Buffer
		err := runCrawl(context.Background(), cfg, log.Discard(), crawlDeps{
			factory: staticFactory(site),
			pacer:   pace.NewInstant(),
			out:     &out,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := out.String()
		for _, want := range []string{"--- Download Summary ---", "Successfully downloaded/already existed: 2 PDFs", "Failed to download: 0 PDFs"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, output)
			}
		}

		saved, err := ledger.NewFile(cfg.LedgerFile, log.Discard()).Read()
		if err != nil {
			t.Fatalf("failed to read ledger: %v", err)
		}
		if len(saved) != 2 {
			t.Errorf("expected 2 ledger records, got %d", len(saved))
		}

		db, err := history.Open(cfg.DBDir, history.Options{})
		if err != nil {
			t.Fatalf("failed to open history: %v", err)
		}
		defer db.Close()

		runs, err := db.RecentRuns(context.Background(), 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(runs) != 1 {
			t.Fatalf("expected 1 run, got %d", len(runs))
		}
		if runs[0].Succeeded != 2 || runs[0].NewRecords != 2 {
			t.Errorf("unexpected run: %+v", runs[0])
		}
		if runs[0].FinishedAt.IsZero() {
			t.Error("expected run to be finished")
		}

		downloads, err := db.RecentDownloads(context.Background(), 10, false)
		if err != nil {
			t.Fatal(err)
		}
		if len(downloads) != 2 {
			t.Fatalf("expected 2 downloads, got %d", len(downloads))
		}
		for _, d := range downloads {
			if d.RunID != runs[0].ID {
				t.Errorf("expected run ID %d, got %d", runs[0].ID, d.RunID)
			}
			if d.Status != model.DownloadSucceeded {
				t.Errorf("expected succeeded, got %s", d.Status)
			}
		}
	})

	t.Run("history can be disabled", func(t *testing.T) {
		t.Parallel()
		cfg := testCrawlConfig(t)
		cfg.SaveHistory = false
		site := staticSite(cfg, []model.DocumentRecord{testRecord(1)})

		err := runCrawl(context.Background(), cfg, log.Discard(), crawlDeps{
			factory: staticFactory(site),
			pacer:   pace.NewInstant(),
			out:     &bytes.Buffer{},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := os.Stat(filepath.Join(cfg.DBDir, history.FileName)); !os.IsNotExist(err) {
			t.Errorf("expected no history database, got %v", err)
		}
	})

	t.Run("browser failure still creates the ledger", func(t *testing.T) {
		t.Parallel()
		cfg := testCrawlConfig(t)
		cfg.SaveHistory = false
		errNoChrome := errors.New("chrome not found")

		var out bytes.Buffer
		err := runCrawl(context.Background(), cfg, log.Discard(), crawlDeps{
			factory: func(context.Context) (browser.Browser, error) { return nil, errNoChrome },
			pacer:   pace.NewInstant(),
			out:     &out,
		})
		if !errors.Is(err, errNoChrome) {
			t.Fatalf("expected browser error, got %v", err)
		}
		if _, err := os.Stat(cfg.LedgerFile); err != nil {
			t.Errorf("expected ledger to exist: %v", err)
		}
		if !strings.Contains(out.String(), "chrome not found") {
			t.Errorf("expected report to mention the error, got:\n%s", out.String())
		}
	})
}

func TestOutputReport(t *testing.T) {
	t.Parallel()

	newReport := func() *model.RunReport {
		r := model.NewRunReport(testStart, "/tmp/pdfs", "links.json")
		r.AddResult(model.DownloadResult{URL: testStart + "/a", Filename: "a.pdf", Status: model.DownloadSucceeded})
		r.AddResult(model.DownloadResult{URL: testStart + "/b", Filename: "b.pdf", Status: model.DownloadFailed, Error: "timed out"})
		return r
	}

	t.Run("nil report writes nothing", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		if err := outputReport(config.NewConfig(), nil, &buf); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if buf.Len() != 0 {
			t.Errorf("expected no output, got %q", buf.String())
		}
	})

	t.Run("text to writer", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		if err := outputReport(config.NewConfig(), newReport(), &buf); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "Failed to download: 1 PDFs") {
			t.Errorf("expected text summary, got:\n%s", buf.String())
		}
	})

	t.Run("json to writer", func(t *testing.T) {
		t.Parallel()
		cfg := config.NewConfig()
		cfg.JSONReport = true
		var buf bytes.Buffer
		if err := outputReport(cfg, newReport(), &buf); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
			t.Errorf("expected JSON output, got:\n%s", buf.String())
		}
	})

	t.Run("markdown to file", func(t *testing.T) {
		t.Parallel()
		cfg := config.NewConfig()
		cfg.MarkdownReport = true
		cfg.ReportFile = filepath.Join(t.TempDir(), "reports", "run.md")

		var buf bytes.Buffer
		if err := outputReport(cfg, newReport(), &buf); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if buf.Len() != 0 {
			t.Errorf("expected nothing on the writer, got %q", buf.String())
		}

		info, err := os.Stat(cfg.ReportFile)
		if err != nil {
			t.Fatalf("expected report file: %v", err)
		}
		if info.Mode().Perm() != 0o600 {
			t.Errorf("expected permissions 0600, got %o", info.Mode().Perm())
		}
		content, err := os.ReadFile(cfg.ReportFile)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(content), "# Docket Download Report") {
			t.Errorf("expected markdown report, got:\n%s", content)
		}
	})
}

func TestBuildConfig(t *testing.T) {
	t.Parallel()

	t.Run("file then flags", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		configPath := writeConfig(t, dir)
		otherDir := filepath.Join(dir, "elsewhere")

		cmd := NewCrawlCmd()
		cmd.Flags().Bool("verbose", false, "")
		if err := cmd.ParseFlags([]string{"-c", configPath, "-d", otherDir, "--no-history", "-m", "--verbose"}); err != nil {
			t.Fatal(err)
		}
		cfg, err := buildConfig(cmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.StartURL != testStart {
			t.Errorf("expected start URL from file, got %q", cfg.StartURL)
		}
		if cfg.Selectors != testSelectors {
			t.Errorf("expected selectors from file, got %+v", cfg.Selectors)
		}
		if cfg.LedgerFile != filepath.Join(dir, "links.json") {
			t.Errorf("expected ledger from file, got %q", cfg.LedgerFile)
		}
		if cfg.DownloadDir != otherDir {
			t.Errorf("expected flag to override download dir, got %q", cfg.DownloadDir)
		}
		if cfg.SaveHistory {
			t.Error("expected --no-history to disable history")
		}
		if !cfg.MarkdownReport || cfg.JSONReport {
			t.Error("expected markdown report only")
		}
		if !cfg.Verbose {
			t.Error("expected verbose")
		}
	})

	t.Run("missing explicit config", func(t *testing.T) {
		t.Parallel()
		cmd := NewCrawlCmd()
		missing := filepath.Join(t.TempDir(), "nope.yaml")
		if err := cmd.ParseFlags([]string{"-c", missing}); err != nil {
			t.Fatal(err)
		}
		if _, err := buildConfig(cmd); !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("invalid crawl config is rejected", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		_, err := execute(t, "crawl", "-c", writeConfig(t, dir), "--url", "not a url", "--no-history", "--log-file", "")
		if err == nil || !strings.Contains(err.Error(), "configuration error") {
			t.Errorf("expected configuration error, got %v", err)
		}
	})
}
