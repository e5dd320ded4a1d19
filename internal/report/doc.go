// Package report renders a run report.
//
// This package contains writers for different output formats:
//   - SimpleWriter: the plain-text download summary printed after a crawl
//   - JSONWriter: structured JSON for tool integration
//   - MarkdownWriter: tables and a mermaid pie chart for sharing
//
// Writers implement the Writer interface, so they can be used
// interchangeably and combined with MultiWriter.
package report
