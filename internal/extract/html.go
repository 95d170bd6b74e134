package extract

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// extractHTML reduces an HTML document to heading-shaped plain text: h1-h6
// become "## Heading" lines (hash count = heading level), block elements end
// paragraphs, script/style/nav content is dropped. The section chunker then
// treats the output exactly like markdown.
func extractHTML(content []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return "", err
	}
	var buf strings.Builder
	walkHTML(doc, &buf)
	return cleanText(buf.String()), nil
}

func headingLevel(a atom.Atom) int {
	switch a {
	case atom.H1:
		return 1
	case atom.H2:
		return 2
	case atom.H3:
		return 3
	case atom.H4:
		return 4
	case atom.H5:
		return 5
	case atom.H6:
		return 6
	}
	return 0
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Section, atom.Article, atom.Li, atom.Ul, atom.Ol,
		atom.Table, atom.Tr, atom.Blockquote, atom.Pre, atom.Br, atom.Figure:
		return true
	}
	return false
}

func walkHTML(n *html.Node, buf *strings.Builder) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Noscript, atom.Nav, atom.Header, atom.Footer:
			return
		}
		if level := headingLevel(n.DataAtom); level > 0 {
			text := strings.TrimSpace(nodeText(n))
			if text != "" {
				buf.WriteString("\n\n")
				buf.WriteString(strings.Repeat("#", level))
				buf.WriteString(" ")
				buf.WriteString(text)
				buf.WriteString("\n\n")
			}
			return
		}
	}
	if n.Type == html.TextNode {
		text := strings.TrimSpace(n.Data)
		if text != "" {
			buf.WriteString(text)
			buf.WriteString(" ")
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkHTML(c, buf)
	}
	if n.Type == html.ElementNode && isBlock(n.DataAtom) {
		buf.WriteString("\n\n")
	}
}

// nodeText returns the concatenated text content of a node's subtree.
func nodeText(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return buf.String()
}
