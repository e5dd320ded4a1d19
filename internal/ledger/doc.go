// Package ledger persists the set of discovered docket records.
//
// The ledger is a JSON array of records in discovery order, keyed by
// absolute document URL. It is loaded once per run, extended page by page
// and rewritten atomically after every page so an interrupted crawl loses
// at most the page in progress.
package ledger
