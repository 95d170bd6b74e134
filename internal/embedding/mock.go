package embedding

import (
	"context"
	"math"
)

// MockEmbedder is a deterministic embedder for tests and offline runs. It
// returns a fixed-dimension unit vector derived from the text hash, so the
// same text always gets the same embedding.
type MockEmbedder struct {
	modelID    string
	dimensions int
}

// NewMockEmbedder returns an embedder producing deterministic embeddings of
// the given dimensions under the given model ID.
func NewMockEmbedder(modelID string, dimensions int) *MockEmbedder {
	if modelID == "" {
		modelID = "mock-v1"
	}
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{modelID: modelID, dimensions: dimensions}
}

// EmbedDocuments embeds each text deterministically.
func (e *MockEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.EmbedQuery(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = emb
	}
	return out, nil
}

// EmbedQuery returns a unit vector derived from the text hash. Texts sharing
// a word overlap land closer together than unrelated texts, which is enough
// for ranking assertions in tests.
func (e *MockEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	emb := make([]float32, e.dimensions)
	for _, word := range splitWords(text) {
		h := hashString(word)
		for i := 0; i < e.dimensions; i++ {
			emb[i] += float32(math.Sin(float64(h*(i+1))) * 0.1)
		}
	}
	if len(emb) > 0 {
		emb[0] += 0.01
	}
	normalize(emb)
	return emb, nil
}

// ModelID returns the configured mock model ID.
func (e *MockEmbedder) ModelID() string { return e.modelID }

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int { return e.dimensions }

// Close is a no-op.
func (e *MockEmbedder) Close() error { return nil }

func normalize(x []float32) {
	var sum float64
	for _, v := range x {
		sum += float64(v * v)
	}
	if sum == 0 {
		return
	}
	norm := float32(1.0 / math.Sqrt(sum))
	for i := range x {
		x[i] *= norm
	}
}
