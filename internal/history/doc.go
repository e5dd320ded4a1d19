// Package history stores a record of crawl runs and download attempts in
// SQLite (via modernc.org/sqlite, CGO-free).
//
// The ledger file is the source of truth for what has been discovered. The
// history database only answers "what happened when": which runs ran, how
// far they got, and which documents failed to download and why.
package history
