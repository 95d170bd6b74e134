package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/refseek/refseek/internal/models"
	"github.com/refseek/refseek/internal/vector"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seedDocument(t *testing.T, store *SQLiteStore, id, title, itemType, docType string, vecs [][]float32) {
	t.Helper()
	ctx := context.Background()
	doc := &models.Document{
		DocumentID:  id,
		Title:       title,
		ContentKind: models.KindText,
		ContentHash: "hash-" + id,
		ItemType:    itemType,
		DocType:     docType,
	}
	if err := store.UpsertDocument(ctx, doc); err != nil {
		t.Fatalf("UpsertDocument(%s) error: %v", id, err)
	}
	chunks := make([]models.Chunk, len(vecs))
	for i := range vecs {
		chunks[i] = models.Chunk{
			ChunkID:    id + "_c" + string(rune('0'+i)),
			DocumentID: id,
			Seq:        i,
			Text:       "chunk " + string(rune('0'+i)) + " of " + id,
			CharStart:  i * 100,
			CharEnd:    i*100 + 50,
		}
		vector.NormalizeL2(vecs[i])
	}
	state := &models.IndexState{
		DocumentID:  id,
		ContentHash: doc.ContentHash,
		ModelID:     "mock-v1",
		ChunkCount:  len(chunks),
		IndexedAt:   time.Now(),
	}
	if err := store.ReplaceChunks(ctx, id, chunks, vecs, state); err != nil {
		t.Fatalf("ReplaceChunks(%s) error: %v", id, err)
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := &models.Document{
		DocumentID:  "doc1",
		Title:       "Attention Is All You Need",
		ContentKind: models.KindPDF,
		ContentHash: "abc123",
		ItemType:    "journalArticle",
		DocType:     "fulltext",
	}
	if err := store.UpsertDocument(ctx, doc); err != nil {
		t.Fatalf("UpsertDocument() error: %v", err)
	}

	got, err := store.GetDocument(ctx, "doc1")
	if err != nil {
		t.Fatalf("GetDocument() error: %v", err)
	}
	if got.Title != doc.Title || got.ContentKind != models.KindPDF || got.ContentHash != "abc123" {
		t.Errorf("GetDocument() = %+v, want fields of %+v", got, doc)
	}

	doc.Title = "Attention Is All You Need (v2)"
	doc.ContentHash = "def456"
	if err := store.UpsertDocument(ctx, doc); err != nil {
		t.Fatalf("UpsertDocument() update error: %v", err)
	}
	got, err = store.GetDocument(ctx, "doc1")
	if err != nil {
		t.Fatalf("GetDocument() after update error: %v", err)
	}
	if got.ContentHash != "def456" {
		t.Errorf("content hash = %q after upsert, want %q", got.ContentHash, "def456")
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetDocument(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetDocument(missing) error = %v, want ErrNotFound", err)
	}
}

func TestReplaceChunksAtomicSwap(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedDocument(t, store, "doc1", "Doc One", "", "", [][]float32{
		{1, 0, 0}, {0, 1, 0}, {0, 0, 1},
	})

	st, err := store.GetIndexState(ctx, "doc1")
	if err != nil {
		t.Fatalf("GetIndexState() error: %v", err)
	}
	if st.ChunkCount != 3 {
		t.Errorf("chunk count = %d, want 3", st.ChunkCount)
	}

	// Reindex with fewer chunks. Old rows must be gone.
	chunks := []models.Chunk{
		{ChunkID: "doc1_new0", DocumentID: "doc1", Seq: 0, Text: "replacement", CharEnd: 11},
	}
	state := &models.IndexState{
		DocumentID:  "doc1",
		ContentHash: "hash2",
		ModelID:     "mock-v1",
		ChunkCount:  1,
		IndexedAt:   time.Now(),
	}
	if err := store.ReplaceChunks(ctx, "doc1", chunks, [][]float32{{1, 0, 0}}, state); err != nil {
		t.Fatalf("ReplaceChunks() error: %v", err)
	}

	n, err := store.EmbeddingCount(ctx, Filters{})
	if err != nil {
		t.Fatalf("EmbeddingCount() error: %v", err)
	}
	if n != 1 {
		t.Errorf("embedding count after replace = %d, want 1", n)
	}
	st, err = store.GetIndexState(ctx, "doc1")
	if err != nil {
		t.Fatalf("GetIndexState() after replace error: %v", err)
	}
	if st.ContentHash != "hash2" || st.ChunkCount != 1 {
		t.Errorf("index state after replace = %+v", st)
	}
}

func TestReplaceChunksLengthMismatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedDocument(t, store, "doc1", "Doc One", "", "", [][]float32{
		{1, 0, 0}, {0, 1, 0},
	})

	chunks := []models.Chunk{{ChunkID: "c0", DocumentID: "doc1", Seq: 0, Text: "x"}}
	err := store.ReplaceChunks(ctx, "doc1", chunks, nil, &models.IndexState{DocumentID: "doc1", ModelID: "m"})
	if err == nil {
		t.Error("ReplaceChunks() with mismatched vectors should fail")
	}

	// The failed replace must leave the previous chunk set intact.
	n, err := store.EmbeddingCount(ctx, Filters{})
	if err != nil {
		t.Fatalf("EmbeddingCount() error: %v", err)
	}
	if n != 2 {
		t.Errorf("embedding count after failed replace = %d, want 2", n)
	}
	st, err := store.GetIndexState(ctx, "doc1")
	if err != nil {
		t.Fatalf("GetIndexState() error: %v", err)
	}
	if st.ChunkCount != 2 {
		t.Errorf("chunk count after failed replace = %d, want 2", st.ChunkCount)
	}
}

func TestSearchRanking(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedDocument(t, store, "docA", "Doc A", "journalArticle", "fulltext", [][]float32{
		{1, 0, 0}, {0.9, 0.1, 0},
	})
	seedDocument(t, store, "docB", "Doc B", "book", "summary", [][]float32{
		{0, 1, 0},
	})

	query := []float32{1, 0, 0}
	results, err := store.Search(ctx, query, 2, Filters{})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Search() returned %d results, want 2", len(results))
	}
	if results[0].DocumentID != "docA" || results[0].Seq != 0 {
		t.Errorf("top result = %s seq %d, want docA seq 0", results[0].DocumentID, results[0].Seq)
	}
	if results[1].DocumentID != "docA" || results[1].Seq != 1 {
		t.Errorf("second result = %s seq %d, want docA seq 1", results[1].DocumentID, results[1].Seq)
	}
	if results[0].Score < results[1].Score {
		t.Errorf("scores not descending: %f then %f", results[0].Score, results[1].Score)
	}
	if results[0].Title != "Doc A" || results[0].ItemType != "journalArticle" {
		t.Errorf("result missing document fields: %+v", results[0])
	}
}

func TestSearchDeterministicTieBreak(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Identical vectors across two documents score identically.
	seedDocument(t, store, "docB", "Doc B", "", "", [][]float32{{1, 0, 0}})
	seedDocument(t, store, "docA", "Doc A", "", "", [][]float32{{1, 0, 0}, {1, 0, 0}})

	query := []float32{1, 0, 0}
	for i := 0; i < 3; i++ {
		results, err := store.Search(ctx, query, 3, Filters{})
		if err != nil {
			t.Fatalf("Search() error: %v", err)
		}
		want := []struct {
			doc string
			seq int
		}{{"docA", 0}, {"docA", 1}, {"docB", 0}}
		for j, w := range want {
			if results[j].DocumentID != w.doc || results[j].Seq != w.seq {
				t.Fatalf("run %d result %d = %s seq %d, want %s seq %d",
					i, j, results[j].DocumentID, results[j].Seq, w.doc, w.seq)
			}
		}
	}
}

func TestSearchFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedDocument(t, store, "docA", "Doc A", "journalArticle", "fulltext", [][]float32{{1, 0, 0}})
	seedDocument(t, store, "docB", "Doc B", "book", "summary", [][]float32{{1, 0, 0}})

	query := []float32{1, 0, 0}
	results, err := store.Search(ctx, query, 10, Filters{ItemTypes: []string{"book"}})
	if err != nil {
		t.Fatalf("Search() with filter error: %v", err)
	}
	if len(results) != 1 || results[0].DocumentID != "docB" {
		t.Errorf("filtered search = %+v, want only docB", results)
	}

	results, err = store.Search(ctx, query, 10, Filters{DocTypes: []string{"fulltext"}, ItemTypes: []string{"journalArticle"}})
	if err != nil {
		t.Fatalf("Search() with both filters error: %v", err)
	}
	if len(results) != 1 || results[0].DocumentID != "docA" {
		t.Errorf("double-filtered search = %+v, want only docA", results)
	}
}

func TestSearchInvalidTopK(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Search(context.Background(), []float32{1, 0, 0}, 0, Filters{})
	if err == nil {
		t.Error("Search() with top_k 0 should fail")
	}
}

func TestSearchDimensionMismatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedDocument(t, store, "docA", "Doc A", "", "", [][]float32{{1, 0, 0}})

	_, err := store.Search(ctx, []float32{1, 0, 0, 0}, 5, Filters{})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Search() with wrong dimension error = %v, want ErrDimensionMismatch", err)
	}
}

func TestDeleteDocumentVectors(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedDocument(t, store, "docA", "Doc A", "", "", [][]float32{{1, 0, 0}, {0, 1, 0}})

	if err := store.DeleteDocumentVectors(ctx, "docA"); err != nil {
		t.Fatalf("DeleteDocumentVectors() error: %v", err)
	}
	n, err := store.EmbeddingCount(ctx, Filters{})
	if err != nil {
		t.Fatalf("EmbeddingCount() error: %v", err)
	}
	if n != 0 {
		t.Errorf("embedding count after delete = %d, want 0", n)
	}
	if _, err := store.GetIndexState(ctx, "docA"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetIndexState() after delete error = %v, want ErrNotFound", err)
	}

	// Deleting again is a no-op.
	if err := store.DeleteDocumentVectors(ctx, "docA"); err != nil {
		t.Errorf("DeleteDocumentVectors() second call error: %v", err)
	}
}

func TestStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedDocument(t, store, "docA", "Doc A", "", "", [][]float32{{1, 0, 0}, {0, 1, 0}})
	seedDocument(t, store, "docB", "Doc B", "", "", [][]float32{{0, 0, 1}})

	st, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if st.Documents != 2 {
		t.Errorf("Stats().Documents = %d, want 2", st.Documents)
	}
	if st.Chunks != 3 {
		t.Errorf("Stats().Chunks = %d, want 3", st.Chunks)
	}
	if st.PerModel["mock-v1"] != 3 {
		t.Errorf("Stats().PerModel[mock-v1] = %d, want 3", st.PerModel["mock-v1"])
	}
}
