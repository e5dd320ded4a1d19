// Package crawler discovers docket records by walking the paginated docket
// table in a browser.
//
// # Components
//
//   - Extractor: reads the rows of the table on the current page into
//     DocumentRecords
//   - Paginator: the ON_PAGE / ADVANCING / DONE state machine that extracts,
//     merges into the ledger, persists, and clicks "next"
//
// # Termination
//
// Discovery stops as soon as a page yields no URL that is not already in
// the ledger, before any "next" click is attempted. Some docket UIs wrap
// around to page 1 or keep serving the last page, so "nothing new" is the
// primary end-of-data signal. A missing or disabled "next" control is a
// second, independent stop at the ADVANCING step.
//
// # Usage
//
//	ext := crawler.NewExtractor(b, cfg.Selectors, crawler.WithRowTimeout(cfg.RowWaitTimeout))
//	pg := crawler.NewPaginator(b, ext, cfg.Selectors.NextPage, crawler.WithPacer(p))
//	res := pg.Run(ctx, book, ledgerFile)
package crawler
