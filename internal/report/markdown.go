package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/docketrocket/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.RunReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeFailures(md, report)
	w.writeErrors(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.RunReport) {
	md.H1("Docket Download Report")
	md.PlainText("")

	finished := "-"
	if !report.FinishedAt.IsZero() {
		finished = report.FinishedAt.Format("2006-01-02 15:04:05 MST")
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Start Page", "`" + report.StartURL + "`"},
			{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Finished", finished},
			{"Elapsed", report.Elapsed().Round(time.Second).String()},
			{"Download Directory", "`" + report.DownloadDir + "`"},
			{"Ledger", "`" + report.LedgerPath + "`"},
			{"Status", statusText(report)},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.RunReport) {
	md.H2("Summary")
	md.PlainText("")

	stop := report.StopReason
	if stop == "" {
		stop = "-"
	}
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Pages visited", strconv.Itoa(report.PagesVisited)},
			{"New links", strconv.Itoa(report.NewRecords)},
			{"Ledger size", strconv.Itoa(report.LedgerSize)},
			{"Pagination stop", stop},
			{"Downloaded", strconv.Itoa(report.Succeeded)},
			{"Failed", strconv.Itoa(report.Failed)},
			{"**Attempted**", "**" + strconv.Itoa(report.Attempted()) + "**"},
		},
	})
	md.PlainText("")

	if report.Attempted() > 0 {
		w.writePieChart(md, report)
	}
	w.writeAlert(md, report)
}

func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.RunReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Download Outcomes"),
		piechart.WithShowData(true),
	)

	var fresh, skipped int
	for _, res := range report.Results {
		switch res.Status {
		case model.DownloadSucceeded:
			fresh++
		case model.DownloadSkipped:
			skipped++
		}
	}
	if fresh > 0 {
		chart.LabelAndIntValue("Downloaded", uint64(fresh))
	}
	if skipped > 0 {
		chart.LabelAndIntValue("Already present", uint64(skipped))
	}
	if report.Failed > 0 {
		chart.LabelAndIntValue("Failed", uint64(report.Failed))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.RunReport) {
	switch {
	case report.Cancelled:
		md.Warningf("The run was interrupted. %d record(s) were processed before stopping.", report.Attempted())
	case report.Failed > 0:
		md.Importantf("%d download(s) failed. Run the crawl again to retry them.", report.Failed)
	case report.Attempted() == 0:
		md.Note("Nothing was downloaded in this run.")
	default:
		md.Tip("All downloads completed.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, report *model.RunReport) {
	rows := make([][]string, 0)
	for _, res := range report.Results {
		if res.OK() {
			continue
		}
		rows = append(rows, []string{
			truncateString(res.Filename, 60),
			truncateString(res.URL, 60),
			truncateString(res.Error, 60),
		})
	}
	if len(rows) == 0 {
		return
	}

	md.H2("Failed Downloads")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"File", "URL", "Error"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeErrors(md *markdown.Markdown, report *model.RunReport) {
	if len(report.Errors) == 0 {
		return
	}
	md.H2("Errors")
	md.PlainText("")
	md.BulletList(report.Errors...)
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [docketrocket](https://github.com/nao1215/docketrocket)*")
}
