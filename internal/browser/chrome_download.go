package browser

import (
	"os"
	"path/filepath"

	cdpbrowser "github.com/chromedp/cdproto/browser"
)

// onEvent tracks downloads. Chrome saves each download under its GUID;
// completed files are renamed to the announced name.
func (c *Chrome) onEvent(ev any) {
	switch ev := ev.(type) {
	case *cdpbrowser.EventDownloadWillBegin:
		c.beginDownload(ev.GUID, ev.SuggestedFilename, ev.URL)
	case *cdpbrowser.EventDownloadProgress:
		switch ev.State {
		case cdpbrowser.DownloadProgressStateCompleted:
			go c.finishDownload(ev.GUID)
		case cdpbrowser.DownloadProgressStateCanceled:
			c.mu.Lock()
			delete(c.pending, ev.GUID)
			c.mu.Unlock()
			c.logger.Warn("download canceled by browser", "guid", ev.GUID)
		}
	}
}

func (c *Chrome) beginDownload(guid, suggested, url string) {
	c.mu.Lock()
	name := c.expected
	c.expected = ""
	if name == "" {
		name = filepath.Base(suggested)
	}
	c.pending[guid] = name
	c.mu.Unlock()

	c.logger.Debug("download started", "url", url, "suggested", suggested, "file", name)
}

// finishDownload moves a completed GUID file to its final name.
func (c *Chrome) finishDownload(guid string) {
	c.mu.Lock()
	name, ok := c.pending[guid]
	delete(c.pending, guid)
	c.mu.Unlock()
	if !ok || name == "" || name == "." {
		return
	}

	src := filepath.Join(c.downloadDir, guid)
	dst := filepath.Join(c.downloadDir, name)
	if err := ensureDir(c.downloadDir); err != nil {
		c.logger.Warn("download directory unavailable", "dir", c.downloadDir, "error", err)
		return
	}
	if err := os.Rename(src, dst); err != nil {
		c.logger.Warn("failed to name downloaded file", "from", src, "to", dst, "error", err)
		return
	}
	c.logger.Debug("download saved", "path", dst)
}
