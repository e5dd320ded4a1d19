package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/docketrocket/internal/browser"
	"github.com/nao1215/docketrocket/internal/config"
	"github.com/nao1215/docketrocket/internal/model"
)

const (
	testSite  = "https://example.com"
	testStart = testSite + "/bbby/Home-DocketInfo"
)

// testSelectors match the markup produced by docketHTML.
var testSelectors = config.Selectors{
	Rows:         "table#docket > tbody > tr",
	Link:         "td.title a",
	DocketNumber: "td.dn",
	DateFiled:    "td.date",
	NextPage:     "a.next",
}

func testRecord(n int) model.DocumentRecord {
	href := fmt.Sprintf("/bbby/Home-DownloadPDF?id1=%d", n)
	return model.NewDocumentRecord(testSite+href, href, fmt.Sprint(n), fmt.Sprintf("Motion %d", n), "03/04/2023")
}

// docketHTML renders one docket page whose next control is disabled.
func docketHTML(records []model.DocumentRecord) string {
	var sb strings.Builder
	sb.WriteString(`<html><body><table id="docket"><tbody>`)
	for _, r := range records {
		fmt.Fprintf(&sb, `<tr><td class="dn">%s</td><td class="title"><a href="%s">%s</a></td><td class="date">%s</td></tr>`,
			r.DocketNumber, r.OriginalHref, r.Title, r.DateFiled)
	}
	sb.WriteString(`</tbody></table><a class="next disabled" href="#">Next</a></body></html>`)
	return sb.String()
}

// writeConfig writes a configuration file pointing every path into dir.
func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	content := fmt.Sprintf(`startUrl: %s
downloadDir: %s
ledgerFile: %s
selectors:
  rows: "%s"
  link: "%s"
  docketNumber: "%s"
  dateFiled: "%s"
  nextPage: "%s"
`, testStart, filepath.Join(dir, "pdfs"), filepath.Join(dir, "links.json"),
		testSelectors.Rows, testSelectors.Link, testSelectors.DocketNumber,
		testSelectors.DateFiled, testSelectors.NextPage)

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// testCrawlConfig returns a configuration for a one-page docket in a temp dir.
func testCrawlConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.NewConfig()
	cfg.StartURL = testStart
	cfg.DownloadDir = filepath.Join(dir, "pdfs")
	cfg.LedgerFile = filepath.Join(dir, "links.json")
	cfg.DBDir = filepath.Join(dir, "data")
	cfg.LogFile = ""
	cfg.Selectors = testSelectors
	return cfg
}

// staticSite serves records on the start page and drops a PDF into the
// download directory whenever a document URL is opened.
func staticSite(cfg *config.Config, records []model.DocumentRecord) *browser.Static {
	b := browser.NewStatic()
	b.AddHTML(cfg.StartURL, docketHTML(records))
	files := make(map[string]string, len(records))
	for _, r := range records {
		files[r.URL] = r.TargetName()
	}
	b.OnNavigate(func(u string) error {
		name, ok := files[u]
		if !ok {
			return nil
		}
		return os.WriteFile(filepath.Join(cfg.DownloadDir, name), []byte("%PDF-1.7\n"), 0o600)
	})
	return b
}

func staticFactory(b browser.Browser) func(context.Context) (browser.Browser, error) {
	return func(context.Context) (browser.Browser, error) {
		return b, nil
	}
}

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
