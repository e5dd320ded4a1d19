// Package model defines the data structures shared across docketrocket.
//
// This package contains the following main types:
//   - DocumentRecord: one docket entry discovered in the docket table
//   - DownloadResult: the outcome of one download attempt
//   - RunReport: everything a single crawl run discovered and downloaded
//
// Models live in their own package so that the ledger, crawler, downloader,
// history store and report writers can share them without import cycles.
// All of them serialize to JSON for the ledger file and the JSON report.
package model
