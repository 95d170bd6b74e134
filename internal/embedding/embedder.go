// Package embedding provides text embedding via a remote HTTP service or a
// local ONNX model, plus caching and a deterministic mock for tests.
package embedding

import (
	"context"
	"errors"
)

// ErrService marks transient embedding faults (network, timeouts, 5xx, rate
// limiting). Safe to retry; the indexer records the document as failed so the
// next run picks it up again.
var ErrService = errors.New("embedding service unavailable")

// ErrModel marks non-retryable embedding faults (malformed input, unsupported
// text, unknown model). Retrying the same input will fail again.
var ErrModel = errors.New("embedding model rejected input")

// Embedder produces vector embeddings for document chunks and queries.
// Implementations must be deterministic for a fixed ModelID and must preserve
// input order in EmbedDocuments.
type Embedder interface {
	// EmbedDocuments embeds a batch of chunk texts. The result has the same
	// length and order as texts.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedQuery embeds a single query string.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	// ModelID identifies the active model; a change invalidates the index.
	ModelID() string
	// Dimensions is the fixed output vector length.
	Dimensions() int
	Close() error
}
