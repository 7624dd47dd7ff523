package extract

import (
	"bytes"
	"io"
	"strings"

	"github.com/fumiama/go-docx"
)

type docxExtractor struct{}

// Extract emits one paragraph per non-empty Word paragraph.  Tables become
// one line per row with cells separated by " | ".
func (docxExtractor) Extract(r io.Reader, filename string) (*Document, error) {
	data, err := readAll(r, filename)
	if err != nil {
		return nil, err
	}

	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, extractionFailed(err, filename)
	}

	var paras []string
	for _, item := range doc.Document.Body.Items {
		var t string
		switch v := item.(type) {
		case *docx.Paragraph:
			t = paragraphText(v)
		case *docx.Table:
			t = tableText(v)
		}
		if t != "" {
			paras = append(paras, t)
		}
	}
	return &Document{Text: strings.Join(paras, "\n\n"), Format: FormatDOCX}, nil
}

func paragraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		switch c := child.(type) {
		case *docx.Run:
			writeRun(&buf, c)
		case *docx.Hyperlink:
			writeRun(&buf, &c.Run)
		}
	}
	return strings.TrimSpace(buf.String())
}

func writeRun(buf *strings.Builder, run *docx.Run) {
	for _, rc := range run.Children {
		switch t := rc.(type) {
		case *docx.Text:
			buf.WriteString(t.Text)
		case *docx.Tab:
			buf.WriteByte('\t')
		case *docx.BarterRabbet:
			buf.WriteByte('\n')
		}
	}
}

func tableText(tbl *docx.Table) string {
	rows := make([]string, 0, len(tbl.TableRows))
	for _, row := range tbl.TableRows {
		cells := make([]string, 0, len(row.TableCells))
		for _, cell := range row.TableCells {
			var parts []string
			for _, p := range cell.Paragraphs {
				if t := paragraphText(p); t != "" {
					parts = append(parts, t)
				}
			}
			cells = append(cells, strings.Join(parts, " "))
		}
		if line := strings.TrimSpace(strings.Join(cells, " | ")); line != "" && strings.Trim(line, "| ") != "" {
			rows = append(rows, line)
		}
	}
	return strings.Join(rows, "\n")
}

//Personal.AI order the ending
