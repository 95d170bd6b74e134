package extract

import (
	"strings"
	"testing"

	"github.com/refseek/refseek/internal/models"
)

func TestExtractPlainText(t *testing.T) {
	e := NewExtractor()
	got, err := e.Extract(&models.DocumentInput{
		ContentKind: models.KindText,
		Text:        "hello\r\nworld\n\n\n\nend",
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.Text != "hello\nworld\n\nend" {
		t.Errorf("got %q", got.Text)
	}
	if got.Pages != nil {
		t.Error("plain text should have no page map")
	}
}

func TestExtractHTMLHeadings(t *testing.T) {
	e := NewExtractor()
	src := `<html><head><style>p{}</style></head><body>
		<h1>Paper Title</h1>
		<p>Intro paragraph.</p>
		<h2>Methods</h2>
		<p>We did things.</p>
		<script>ignored()</script>
	</body></html>`
	got, err := e.Extract(&models.DocumentInput{
		ContentKind: models.KindHTML,
		RawContent:  []byte(src),
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got.Text, "# Paper Title") {
		t.Errorf("expected h1 as '# ' line, got %q", got.Text)
	}
	if !strings.Contains(got.Text, "## Methods") {
		t.Errorf("expected h2 as '## ' line, got %q", got.Text)
	}
	if strings.Contains(got.Text, "ignored") {
		t.Error("script content should be dropped")
	}
}

func TestExtractUnsupportedKind(t *testing.T) {
	e := NewExtractor()
	if _, err := e.Extract(&models.DocumentInput{ContentKind: "docx"}); err == nil {
		t.Error("expected error for unsupported kind")
	}
}

func TestPageAt(t *testing.T) {
	ext := &Extraction{
		Pages: []PageSpan{
			{Number: 1, Start: 0, End: 100},
			{Number: 2, Start: 102, End: 230},
			{Number: 4, Start: 232, End: 300},
		},
	}
	cases := []struct {
		offset int
		page   int
	}{
		{0, 1}, {99, 1}, {150, 2}, {240, 4}, {500, 4},
		// Offsets inside page separators resolve to the following page.
		{100, 2}, {101, 2}, {230, 4}, {231, 4},
	}
	for _, c := range cases {
		if got := ext.PageAt(c.offset); got != c.page {
			t.Errorf("PageAt(%d) = %d, expected %d", c.offset, got, c.page)
		}
	}
	empty := &Extraction{}
	if got := empty.PageAt(10); got != 0 {
		t.Errorf("no page map: expected 0, got %d", got)
	}
}

func TestContentHashDeterministic(t *testing.T) {
	if ContentHash("abc") != ContentHash("abc") {
		t.Error("same text must hash the same")
	}
	if ContentHash("abc") == ContentHash("abd") {
		t.Error("different text must hash differently")
	}
	if len(ContentHash("x")) != 64 {
		t.Error("expected hex sha256 length 64")
	}
}
