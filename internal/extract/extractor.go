// Package extract provides text extraction from document payloads, with the
// positional side-channels the chunker needs (page offset map for PDF,
// heading-shaped text for HTML).
package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/refseek/refseek/internal/models"
)

// PageSpan maps one page of a PDF to its character range in the extracted text.
// Pages are 1-indexed; spans are contiguous and non-overlapping.
type PageSpan struct {
	Number int
	Start  int
	End    int
}

// Extraction is the result of extracting one document: plain text plus the
// page offset map when the source was a PDF.
type Extraction struct {
	Text  string
	Pages []PageSpan
}

// PageAt returns the page number covering the given character offset, or 0
// when no page map is present. Offsets inside the separator between two pages
// count toward the following page; offsets past the last page toward the last.
func (e *Extraction) PageAt(offset int) int {
	n := len(e.Pages)
	if n == 0 {
		return 0
	}
	for _, p := range e.Pages {
		if offset < p.End {
			return p.Number
		}
	}
	return e.Pages[n-1].Number
}

// Extractor extracts plain text from document intake payloads.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the text content of an intake document. PDF payloads are
// extracted page by page with an offset map; HTML is reduced to heading-shaped
// plain text; markdown and plain text pass through UTF-8 cleanup. When the
// caller already supplies extracted text for a PDF, no page map is available.
func (e *Extractor) Extract(input *models.DocumentInput) (*Extraction, error) {
	switch input.ContentKind {
	case models.KindPDF:
		if len(input.RawContent) > 0 {
			return extractPDF(input.RawContent)
		}
		return &Extraction{Text: cleanText(input.Text)}, nil
	case models.KindHTML:
		src := input.RawContent
		if len(src) == 0 {
			src = []byte(input.Text)
		}
		text, err := extractHTML(src)
		if err != nil {
			return nil, fmt.Errorf("extract html: %w", err)
		}
		return &Extraction{Text: text}, nil
	case models.KindMarkdown, models.KindText, "":
		text := input.Text
		if text == "" {
			text = string(input.RawContent)
		}
		return &Extraction{Text: cleanText(text)}, nil
	default:
		return nil, fmt.Errorf("unsupported content kind: %q", input.ContentKind)
	}
}

// ContentHash returns the hex SHA-256 fingerprint of extracted text. It is the
// basis for incremental skip decisions; timestamps are never compared.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
