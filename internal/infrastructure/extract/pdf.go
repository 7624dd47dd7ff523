package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

type pdfExtractor struct{}

// Extract reads the text layer page by page and joins pages with a form
// feed, which the metadata extractor counts as a page break.  Scanned PDFs
// without a text layer yield empty text.
func (pdfExtractor) Extract(r io.Reader, filename string) (doc *Document, err error) {
	data, err := readAll(r, filename)
	if err != nil {
		return nil, err
	}

	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if p := recover(); p != nil {
			doc, err = nil, extractionFailed(fmt.Errorf("pdf parser panic: %v", p), filename)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, extractionFailed(err, filename)
	}

	numPages := reader.NumPage()
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, extractionFailed(fmt.Errorf("page %d: %w", i, err), filename)
		}
		pages = append(pages, strings.TrimSpace(text))
	}

	return &Document{Text: strings.Join(pages, "\f"), PageCount: numPages, Format: FormatPDF}, nil
}

//Personal.AI order the ending
