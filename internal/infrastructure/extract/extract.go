// Package extract turns uploaded files into the plain text the long document
// pipeline consumes.
package extract

import (
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/turtacn/KeyIP-LongDoc/pkg/errors"
)

type Format string

const (
	FormatText     Format = "txt"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
)

// Document is the extracted text of one file.  PageCount is only known for
// paged formats and is zero otherwise.
type Document struct {
	Text      string `json:"text"`
	PageCount int    `json:"page_count,omitempty"`
	Format    Format `json:"format"`
}

// Extractor reads a whole file and returns its text.
type Extractor interface {
	Extract(r io.Reader, filename string) (*Document, error)
}

var extractors = map[string]Extractor{
	".txt":      textExtractor{},
	".text":     textExtractor{},
	".md":       markdownExtractor{},
	".markdown": markdownExtractor{},
	".html":     htmlExtractor{},
	".htm":      htmlExtractor{},
	".pdf":      pdfExtractor{},
	".docx":     docxExtractor{},
}

// ForFile picks an extractor by file extension.
func ForFile(filename string) (Extractor, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	e, ok := extractors[ext]
	if !ok {
		return nil, errors.New(errors.ErrCodeUnsupportedFormat, "unsupported file format").
			WithDetail("extension " + quoteExt(ext) + "; supported: " + strings.Join(SupportedExtensions(), ", "))
	}
	return e, nil
}

// Extract is ForFile followed by Extract.
func Extract(r io.Reader, filename string) (*Document, error) {
	e, err := ForFile(filename)
	if err != nil {
		return nil, err
	}
	return e.Extract(r, filename)
}

// IsSupported reports whether filename has a known extension.
func IsSupported(filename string) bool {
	_, ok := extractors[strings.ToLower(filepath.Ext(filename))]
	return ok
}

func SupportedExtensions() []string {
	out := make([]string, 0, len(extractors))
	for ext := range extractors {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

func quoteExt(ext string) string {
	if ext == "" {
		return `""`
	}
	return ext
}

func readAll(r io.Reader, filename string) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExtractionFailed, "failed to read file").WithDetail(filename)
	}
	return data, nil
}

func extractionFailed(err error, filename string) error {
	return errors.Wrap(err, errors.ErrCodeExtractionFailed, "failed to extract text").WithDetail(filename)
}

// normalizeBlocks trims every line and collapses runs of blank lines into a
// single paragraph break.
func normalizeBlocks(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := true
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

//Personal.AI order the ending
