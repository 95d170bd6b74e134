// Package models defines core data structures for documents, chunks, and index state.
package models

import (
	"strconv"
	"time"
)

// ContentKind identifies the source format of a document.
type ContentKind string

const (
	KindPDF      ContentKind = "pdf"
	KindHTML     ContentKind = "html"
	KindMarkdown ContentKind = "markdown"
	KindText     ContentKind = "text"
)

// Document is the store's cached projection of one library item.
// The library owns the item; the store only tracks what it has indexed.
type Document struct {
	DocumentID  string      `json:"document_id" db:"document_id"`
	Title       string      `json:"title,omitempty" db:"title"`
	ContentKind ContentKind `json:"content_kind" db:"content_kind"`
	ContentHash string      `json:"content_hash" db:"content_hash"`
	ItemType    string      `json:"item_type,omitempty" db:"item_type"`
	DocType     string      `json:"doc_type,omitempty" db:"doc_type"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

// DocumentInput is the intake contract: one item handed to the indexer by the
// surrounding tool. Either RawContent (pdf/html payload) or Text must be set.
type DocumentInput struct {
	DocumentID  string      `json:"document_id"`
	Title       string      `json:"title,omitempty"`
	ContentKind ContentKind `json:"content_kind"`
	RawContent  []byte      `json:"raw_content,omitempty"`
	Text        string      `json:"text,omitempty"`
	ItemType    string      `json:"item_type,omitempty"`
	DocType     string      `json:"doc_type,omitempty"`
}

// Chunk is an ordered text span of a document with positional provenance.
// Seq is strictly increasing per document; text windows may overlap in
// CharStart/CharEnd but never in Seq.
type Chunk struct {
	ChunkID    string `json:"chunk_id" db:"chunk_id"`
	DocumentID string `json:"document_id" db:"document_id"`
	Seq        int    `json:"seq" db:"seq"`
	Text       string `json:"text" db:"text"`
	CharStart  int    `json:"char_start" db:"char_start"`
	CharEnd    int    `json:"char_end" db:"char_end"`
	// Exactly one of the following is set, depending on ContentKind.
	PageNumber  int    `json:"page_number,omitempty" db:"page_number"`   // pdf, 1-indexed
	SectionPath string `json:"section_path,omitempty" db:"section_path"` // html heading trail
	HeadingPath string `json:"heading_path,omitempty" db:"heading_path"` // markdown heading trail
}

// Provenance returns a short human-readable location for citations,
// e.g. "p.3" or "Results > Ablations". Empty when only offsets are known.
func (c *Chunk) Provenance() string {
	if c.PageNumber > 0 {
		return "p." + strconv.Itoa(c.PageNumber)
	}
	if c.SectionPath != "" {
		return c.SectionPath
	}
	if c.HeadingPath != "" {
		return c.HeadingPath
	}
	return ""
}

// IndexState records what was last successfully indexed for a document.
// It is the sole gate for incremental skip logic.
type IndexState struct {
	DocumentID  string    `json:"document_id" db:"document_id"`
	ContentHash string    `json:"content_hash" db:"content_hash"`
	ModelID     string    `json:"model_id" db:"model_id"`
	ChunkCount  int       `json:"chunk_count" db:"chunk_count"`
	IndexedAt   time.Time `json:"indexed_at" db:"indexed_at"`
}

// DocumentFailure records one document that failed during batch indexing.
type DocumentFailure struct {
	DocumentID string `json:"document_id"`
	Reason     string `json:"reason"`
}

// IndexReport summarizes a batch indexing run. One document's failure never
// aborts the batch; it is recorded here instead.
type IndexReport struct {
	Indexed  int               `json:"indexed"`
	Skipped  int               `json:"skipped"`
	Failed   int               `json:"failed"`
	Chunks   int               `json:"chunks"`
	Failures []DocumentFailure `json:"failures,omitempty"`
}
