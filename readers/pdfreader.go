package readers

import (
	"fmt"
	"path/filepath"

	"github.com/ledongthuc/pdf"
)

type PdfPageReader struct {
}

func (r *PdfPageReader) CanRead(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".pdf"
}

// ReadPages extracts text page by page. A corrupted or unsupported page
// yields a Failed page instead of aborting the document.
func (r *PdfPageReader) ReadPages(path string) ([]Page, error) {
	f, doc, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf document: %w", err)
	}
	defer f.Close()

	total := doc.NumPage()
	pages := make([]Page, 0, total)
	for i := 1; i <= total; i++ {
		text, err := extractPageText(doc, i)
		if err != nil {
			pages = append(pages, Page{Index: i - 1, Failed: true})
			continue
		}

		pages = append(pages, Page{Index: i - 1, Text: text})
	}

	return pages, nil
}

// extractPageText isolates the pdf library's content parsing, which panics on
// some malformed streams.
func extractPageText(doc *pdf.Reader, num int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page %d content parsing failed: %v", num, r)
		}
	}()

	p := doc.Page(num)
	if p.V.IsNull() {
		return "", fmt.Errorf("page %d is missing", num)
	}

	return p.GetPlainText(nil)
}
