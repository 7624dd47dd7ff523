package extract

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

type htmlExtractor struct{}

var skippedElements = map[string]bool{
	"head": true, "script": true, "style": true, "noscript": true, "template": true, "svg": true,
}

// Elements that start a new paragraph.
var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "blockquote": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"ul": true, "ol": true, "table": true, "pre": true, "hr": true,
	"header": true, "footer": true, "main": true, "aside": true, "dl": true,
}

// Elements that only start a new line.
var lineElements = map[string]bool{
	"br": true, "li": true, "tr": true, "dt": true, "dd": true,
}

// Extract walks the parsed tree and keeps visible text, separating block
// elements with blank lines.
func (htmlExtractor) Extract(r io.Reader, filename string) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, extractionFailed(err, filename)
	}

	var b strings.Builder
	var walk func(n *html.Node, pre bool)
	walk = func(n *html.Node, pre bool) {
		switch n.Type {
		case html.TextNode:
			if pre {
				b.WriteString(n.Data)
			} else {
				b.WriteString(collapseSpace(n.Data))
			}
			return
		case html.ElementNode:
			if skippedElements[n.Data] {
				return
			}
			switch {
			case blockElements[n.Data]:
				b.WriteString("\n\n")
			case lineElements[n.Data]:
				b.WriteString("\n")
			case n.Data == "td" || n.Data == "th":
				b.WriteString(" ")
			}
			pre = pre || n.Data == "pre"
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, pre)
		}
		if n.Type == html.ElementNode && blockElements[n.Data] {
			b.WriteString("\n\n")
		}
	}
	walk(root, false)

	return &Document{Text: normalizeBlocks(b.String()), Format: FormatHTML}, nil
}

// collapseSpace folds whitespace runs to one space, keeping a single space at
// either edge so adjacent inline elements stay separated.
func collapseSpace(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s != "" {
			return " "
		}
		return ""
	}
	out := strings.Join(fields, " ")
	if isSpace(s[0]) {
		out = " " + out
	}
	if isSpace(s[len(s)-1]) {
		out += " "
	}
	return out
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\t' || c == '\r' || c == '\f'
}

//Personal.AI order the ending
