// Package storage defines the persistence contract for documents, chunks,
// embeddings, and per-document index state.
package storage

import (
	"context"
	"errors"

	"github.com/refseek/refseek/internal/models"
)

// ErrNotFound is returned when a document or index state does not exist.
var ErrNotFound = errors.New("not found")

// ErrDimensionMismatch is returned when a query vector's dimension disagrees
// with stored embeddings. It signals a stale index after a model change and is
// never silently ignored.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Filters restricts a search to documents carrying the given tags. Multiple
// values within a field are ORed; the two fields are ANDed. Empty fields mean
// no restriction.
type Filters struct {
	ItemTypes []string
	DocTypes  []string
}

// Empty reports whether no predicate is set.
func (f Filters) Empty() bool {
	return len(f.ItemTypes) == 0 && len(f.DocTypes) == 0
}

// Store is the transactional local persistence layer, keyed by document ID.
// A search never observes a document mid-replace: ReplaceChunks is atomic.
type Store interface {
	// UpsertDocument inserts or updates the cached document projection.
	UpsertDocument(ctx context.Context, doc *models.Document) error
	// GetDocument returns a document, or ErrNotFound.
	GetDocument(ctx context.Context, documentID string) (*models.Document, error)

	// ReplaceChunks atomically replaces a document's chunk/embedding rows and
	// index state. vectors[i] belongs to chunks[i]. Either everything commits
	// or prior state stays untouched.
	ReplaceChunks(ctx context.Context, documentID string, chunks []models.Chunk, vectors [][]float32, state *models.IndexState) error

	// GetIndexState returns the last successful index record, or ErrNotFound.
	GetIndexState(ctx context.Context, documentID string) (*models.IndexState, error)

	// DeleteDocumentVectors removes the document's chunks, embeddings, and
	// index state. Idempotent; the cached document row survives.
	DeleteDocumentVectors(ctx context.Context, documentID string) error

	// Search scores every stored embedding matching the filters against the
	// query vector by cosine similarity and returns the topK best, sorted by
	// score descending with ties broken by document ID then sequence index.
	Search(ctx context.Context, query []float32, topK int, filters Filters) ([]models.SearchResult, error)

	// EmbeddingCount returns the number of stored embeddings matching the filters.
	EmbeddingCount(ctx context.Context, filters Filters) (int, error)

	// Stats returns index-wide counts with a per-model breakdown.
	Stats(ctx context.Context) (*models.Stats, error)

	Close() error
}
