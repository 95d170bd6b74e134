package chunker

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gtext "github.com/yuin/goldmark/text"

	"github.com/refseek/refseek/internal/models"
)

// heading is one markdown heading with its byte offset in the source text.
type heading struct {
	level int
	text  string
	start int // offset of the heading's line start
}

var markdownParser = goldmark.New()

// findHeadings parses text as markdown and returns all headings in document
// order with their source offsets.
func findHeadings(text string) []heading {
	src := []byte(text)
	doc := markdownParser.Parser().Parse(gtext.NewReader(src))

	var headings []heading
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok || h.Lines().Len() == 0 {
			return ast.WalkContinue, nil
		}
		seg := h.Lines().At(0)
		start := seg.Start
		for start > 0 && src[start-1] != '\n' {
			start--
		}
		headings = append(headings, heading{
			level: h.Level,
			text:  nodeText(h, src),
			start: start,
		})
		return ast.WalkSkipChildren, nil
	})
	return headings
}

// nodeText concatenates the text segments under a node.
func nodeText(n ast.Node, src []byte) string {
	var buf strings.Builder
	_ = ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := child.(*ast.Text); ok {
			buf.Write(t.Segment.Value(src))
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(buf.String())
}

// chunkSections splits text into heading-delimited sections and window-chunks
// each section, tagging every chunk with the heading trail in effect at the
// section start ("Results > Ablations"). setPath writes the trail into the
// kind-appropriate provenance field. Text with no headings falls back to plain
// window chunking.
func (c *Chunker) chunkSections(text string, setPath func(*models.Chunk, string)) []models.Chunk {
	headings := findHeadings(text)
	if len(headings) == 0 {
		return c.chunkWindows(text, 0)
	}

	var chunks []models.Chunk
	appendSection := func(start, end int, path string) {
		section := text[start:end]
		if strings.TrimSpace(section) == "" {
			return
		}
		sectionChunks := c.chunkWindows(section, start)
		for i := range sectionChunks {
			setPath(&sectionChunks[i], path)
		}
		chunks = append(chunks, sectionChunks...)
	}

	// Preamble before the first heading carries no trail.
	if headings[0].start > 0 {
		appendSection(0, headings[0].start, "")
	}

	var stack []heading
	for i, h := range headings {
		for len(stack) > 0 && stack[len(stack)-1].level >= h.level {
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, h)

		end := len(text)
		if i+1 < len(headings) {
			end = headings[i+1].start
		}
		appendSection(h.start, end, headingTrail(stack))
	}
	return chunks
}

// headingTrail joins the heading stack into a citation path.
func headingTrail(stack []heading) string {
	parts := make([]string, 0, len(stack))
	for _, h := range stack {
		if h.text != "" {
			parts = append(parts, h.text)
		}
	}
	return strings.Join(parts, " > ")
}
