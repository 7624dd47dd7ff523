package extract

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

type markdownExtractor struct{}

// Extract renders the Markdown AST back to plain text.  Headings are kept as
// their own paragraphs since the structure analyzer keys on them, list items
// keep a marker, and emphasis and link syntax is dropped.
func (markdownExtractor) Extract(r io.Reader, filename string) (*Document, error) {
	src, err := readAll(r, filename)
	if err != nil {
		return nil, err
	}
	src = bytes.TrimPrefix(src, utf8BOM)

	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var blocks []string
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		blocks = appendBlock(blocks, n, src)
	}
	return &Document{Text: normalizeBlocks(strings.Join(blocks, "\n\n")), Format: FormatMarkdown}, nil
}

func appendBlock(blocks []string, n ast.Node, src []byte) []string {
	switch node := n.(type) {
	case *ast.Heading, *ast.Paragraph, *ast.TextBlock:
		if t := strings.TrimSpace(inlineText(node, src)); t != "" {
			blocks = append(blocks, t)
		}
	case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
		if t := strings.TrimSpace(blockLines(node, src)); t != "" {
			blocks = append(blocks, t)
		}
	case *ast.ThematicBreak:
	case *ast.List:
		i := node.Start
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			marker := "-"
			if node.IsOrdered() {
				marker = strconv.Itoa(i) + "."
				i++
			}
			var inner []string
			for c := item.FirstChild(); c != nil; c = c.NextSibling() {
				inner = appendBlock(inner, c, src)
			}
			blocks = append(blocks, marker+" "+strings.Join(inner, "\n"))
		}
	default:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			blocks = appendBlock(blocks, c, src)
		}
	}
	return blocks
}

func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch t := c.(type) {
			case *ast.Text:
				buf.Write(t.Segment.Value(src))
				if t.SoftLineBreak() || t.HardLineBreak() {
					buf.WriteByte('\n')
				}
			case *ast.String:
				buf.Write(t.Value)
			case *ast.AutoLink:
				buf.Write(t.URL(src))
			case *ast.RawHTML:
			default:
				walk(c)
			}
		}
	}
	walk(n)
	return buf.String()
}

func blockLines(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(src))
	}
	return buf.String()
}

//Personal.AI order the ending
