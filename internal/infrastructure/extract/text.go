package extract

import (
	"bytes"
	"io"
	"strings"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type textExtractor struct{}

// Extract keeps the text as-is apart from line endings and a leading BOM.
// Form feeds survive so page counting still works on pdftotext output.
func (textExtractor) Extract(r io.Reader, filename string) (*Document, error) {
	data, err := readAll(r, filename)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	text := string(data)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	return &Document{Text: text, PageCount: pageCount(text), Format: FormatText}, nil
}

func pageCount(text string) int {
	if n := strings.Count(text, "\f"); n > 0 {
		return n + 1
	}
	return 0
}

//Personal.AI order the ending
