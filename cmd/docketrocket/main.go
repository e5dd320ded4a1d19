// Package main provides the entry point for the docketrocket CLI.
//
// docketrocket walks a paginated legal docket table, remembers every
// document link it has seen, and downloads the PDFs through a real browser,
// pausing once per run for a person to solve the site's CAPTCHA.
//
// Usage:
//
//	docketrocket crawl
//	docketrocket list
//	docketrocket history
//
// See --help for all available options.
package main

func main() {
	Execute()
}
