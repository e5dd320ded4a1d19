// Package browser defines the browser capability the crawler and the
// downloader drive, with a Chrome implementation for real runs and a static
// HTML implementation for saved pages and tests.
package browser
