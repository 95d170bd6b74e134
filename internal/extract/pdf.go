package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pageSeparator joins page texts so chunk windows can span page boundaries
// without gluing the last word of one page to the first of the next.
const pageSeparator = "\n\n"

// extractPDF extracts text page by page and records each page's character
// range in the joined text. Pages with no extractable text are skipped but
// keep their original 1-indexed page numbers.
func extractPDF(content []byte) (*Extraction, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	var buf strings.Builder
	var pages []PageSpan
	numPages := r.NumPage()
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i, err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteString(pageSeparator)
		}
		start := buf.Len()
		buf.WriteString(text)
		pages = append(pages, PageSpan{Number: i, Start: start, End: buf.Len()})
	}
	return &Extraction{Text: buf.String(), Pages: pages}, nil
}
