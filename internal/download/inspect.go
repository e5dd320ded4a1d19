package download

import (
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// PageCounter reports the number of pages in a PDF file.
type PageCounter interface {
	PageCount(path string) (int, error)
}

var disableConfigDir sync.Once

// PDFInspector reads downloaded PDFs with pdfcpu.
type PDFInspector struct{}

// NewPDFInspector returns a PDFInspector. pdfcpu's on-disk configuration
// directory is disabled so inspection never writes outside the download dir.
func NewPDFInspector() PDFInspector {
	disableConfigDir.Do(api.DisableConfigDir)
	return PDFInspector{}
}

// PageCount returns the page count of the PDF at path.
func (PDFInspector) PageCount(path string) (int, error) {
	return api.PageCountFile(path)
}
