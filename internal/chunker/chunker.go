// Package chunker splits extracted text into bounded, overlapping segments
// carrying positional provenance (page number, section path, heading path).
package chunker

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/refseek/refseek/internal/extract"
	"github.com/refseek/refseek/internal/models"
)

// ErrEmptyDocument is returned when a document has no extractable text.
// The caller decides whether that is fatal; the indexer records it as a
// per-document failure.
var ErrEmptyDocument = errors.New("document has no extractable text")

const (
	// DefaultSize is the target chunk size in characters.
	DefaultSize = 512
	// DefaultOverlap is the number of characters each window starts before
	// the end of the previous chunk.
	DefaultOverlap = 50

	// splitLookback bounds how far back from the window end a split point
	// is searched before falling back to a hard cut.
	splitLookback = 100
)

// Config holds chunking parameters for one invocation.
type Config struct {
	Size    int // target chunk size in characters
	Overlap int // window overlap in characters
	MinSize int // segments shorter than this are dropped (0 keeps everything)
}

// Chunker splits text into overlapping character windows, preferring natural
// split points. Calling Chunk twice on identical input yields identical output.
type Chunker struct {
	cfg Config
}

// New creates a chunker. A zero Size takes the default; Overlap 0 disables
// overlap, while a negative or oversized Overlap falls back to the default.
func New(cfg Config) *Chunker {
	if cfg.Size <= 0 {
		cfg.Size = DefaultSize
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.Size {
		cfg.Overlap = DefaultOverlap
	}
	return &Chunker{cfg: cfg}
}

// Chunk splits an extraction into ordered chunks. Seq is strictly increasing
// starting at 0; CharStart is strictly increasing; text windows overlap by
// cfg.Overlap. Chunk IDs and document IDs are assigned by the indexer.
func (c *Chunker) Chunk(ext *extract.Extraction, kind models.ContentKind) ([]models.Chunk, error) {
	if strings.TrimSpace(ext.Text) == "" {
		return nil, ErrEmptyDocument
	}

	var chunks []models.Chunk
	switch kind {
	case models.KindHTML:
		chunks = c.chunkSections(ext.Text, func(ch *models.Chunk, path string) {
			ch.SectionPath = path
		})
	case models.KindMarkdown:
		chunks = c.chunkSections(ext.Text, func(ch *models.Chunk, path string) {
			ch.HeadingPath = path
		})
	default:
		chunks = c.chunkWindows(ext.Text, 0)
	}

	if kind == models.KindPDF {
		for i := range chunks {
			chunks[i].PageNumber = ext.PageAt(chunks[i].CharStart)
		}
	}
	for i := range chunks {
		chunks[i].Seq = i
	}
	return chunks, nil
}

// chunkWindows scans text in windows of cfg.Size, splitting at the best
// natural boundary within the lookback window. The next window starts
// cfg.Overlap characters before the end of the previous chunk. base offsets
// CharStart/CharEnd into the full document text.
func (c *Chunker) chunkWindows(text string, base int) []models.Chunk {
	var chunks []models.Chunk
	pos := 0
	for pos < len(text) {
		end := pos + c.cfg.Size
		if end >= len(text) {
			end = len(text)
		} else {
			// Size is in bytes of UTF-8 text; never slice inside a rune.
			end = runeStart(text, end)
			end = pos + findSplit(text[pos:end])
		}

		if end-pos >= c.cfg.MinSize || len(chunks) == 0 {
			chunks = append(chunks, models.Chunk{
				Text:      text[pos:end],
				CharStart: base + pos,
				CharEnd:   base + end,
			})
		}
		if end >= len(text) {
			break
		}
		next := end - c.cfg.Overlap
		if next > pos {
			next = runeStart(text, next)
		}
		if next <= pos {
			// Overlap would not advance past a short split; move on without it.
			next = end
		}
		pos = next
	}
	return chunks
}

var (
	// CJK terminators carry no trailing space, so they are matched bare.
	sentenceEnds    = []string{". ", "! ", "? ", ".\n", "!\n", "?\n", "。", "！", "？"}
	punctuationEnds = []string{", ", "; ", ": ", ",\n", ";\n", ":\n", "、", "，", "；", "："}
)

// findSplit returns the best split offset within window, preferring (in order)
// a paragraph break, a sentence terminator, other punctuation, then a word
// boundary, searching only the trailing lookback region. Falls back to a hard
// cut at the window end.
func findSplit(window string) int {
	searchStart := len(window) - splitLookback
	if searchStart < 0 {
		searchStart = 0
	}
	region := window[searchStart:]

	if i := strings.LastIndex(region, "\n\n"); i != -1 {
		return searchStart + i + 2
	}
	for _, p := range sentenceEnds {
		if i := strings.LastIndex(region, p); i != -1 {
			return searchStart + i + len(p)
		}
	}
	for _, p := range punctuationEnds {
		if i := strings.LastIndex(region, p); i != -1 {
			return searchStart + i + len(p)
		}
	}
	if i := strings.LastIndex(region, " "); i != -1 {
		return searchStart + i + 1
	}
	return len(window)
}

// runeStart backs i off to the start of the UTF-8 rune covering it.
func runeStart(s string, i int) int {
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}
