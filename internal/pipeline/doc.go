// Package pipeline runs a crawl as an ordered list of steps.
//
// A run discovers new docket entries page by page, deduplicates the
// accumulated ledger into a download queue, then downloads the queue one
// document at a time. Each stage is a Step that receives the shared
// model.RunReport and fills in its part.
//
// Controller wires the steps to a browser session, the ledger file and
// the CAPTCHA gate, and guarantees that the ledger is written back on every
// exit path.
package pipeline
