package model

import "fmt"

// DocumentRecord is one docket entry discovered in the docket table.
//
// URL is the identity key: two records with the same URL are the same
// logical document, even if other fields differ between runs. Records are
// never mutated after the extractor creates them.
//
// The JSON field names match the ledger format written by earlier versions
// of the tool, so existing scraped_links.json files keep loading.
type DocumentRecord struct {
	// URL is the absolute document URL.
	URL string `json:"url"`

	// DocketNumber is the docket cell text. It may be empty.
	DocketNumber string `json:"docket_number"`

	// Title is the link text of the document link.
	Title string `json:"title"`

	// DateFiled is the date cell text in the site's own format.
	// It is intentionally not parsed.
	DateFiled string `json:"date"`

	// FilenameSuggestion is the sanitized base name (no extension) the
	// downloaded PDF is expected to be saved under.
	FilenameSuggestion string `json:"filename_suggestion"`

	// OriginalHref is the href attribute as found on the page.
	// Diagnostic only.
	OriginalHref string `json:"original_href"`
}

// PDFExtension is appended to FilenameSuggestion to form the target file name.
const PDFExtension = ".pdf"

// NewDocumentRecord builds a record from the three table cells and the
// link target. The filename suggestion is derived deterministically.
func NewDocumentRecord(absURL, href, docketNumber, title, dateFiled string) DocumentRecord {
	return DocumentRecord{
		URL:                absURL,
		DocketNumber:       docketNumber,
		Title:              title,
		DateFiled:          dateFiled,
		FilenameSuggestion: FilenameSuggestion(dateFiled, docketNumber, title),
		OriginalHref:       href,
	}
}

// TargetName returns the file name the browser is expected to write.
func (r DocumentRecord) TargetName() string {
	base := r.FilenameSuggestion
	if base == "" {
		base = untitledName
	}
	return base + PDFExtension
}

// String returns a short human-readable label used in prompts and logs.
func (r DocumentRecord) String() string {
	docket := r.DocketNumber
	if docket == "" {
		docket = "N/A"
	}
	return fmt.Sprintf("DN %s: %s", docket, r.Title)
}
