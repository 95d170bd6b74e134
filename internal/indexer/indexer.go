// Package indexer orchestrates extraction, chunking, embedding, and storage
// for batches of documents, skipping work that is already up to date.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/refseek/refseek/internal/chunker"
	"github.com/refseek/refseek/internal/embedding"
	"github.com/refseek/refseek/internal/extract"
	"github.com/refseek/refseek/internal/models"
	"github.com/refseek/refseek/internal/storage"
)

const (
	// DefaultWorkers bounds concurrent document pipelines.
	DefaultWorkers = 4
	// DefaultEmbedTimeout caps each embedding batch call.
	DefaultEmbedTimeout = 2 * time.Minute
)

// Indexer runs the extract, chunk, embed, store pipeline.
type Indexer struct {
	store        storage.Store
	embedder     embedding.Embedder
	chunker      *chunker.Chunker
	extractor    *extract.Extractor
	workers      int
	embedTimeout time.Duration
	logger       *zap.Logger // optional; when set, logs per-document events
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithLogger sets a logger for debug output (document indexed, skipped, failed).
func WithLogger(l *zap.Logger) Option {
	return func(idx *Indexer) { idx.logger = l }
}

// WithWorkers sets the number of concurrent document workers.
func WithWorkers(n int) Option {
	return func(idx *Indexer) {
		if n > 0 {
			idx.workers = n
		}
	}
}

// WithEmbedTimeout bounds each embedding batch call.
func WithEmbedTimeout(d time.Duration) Option {
	return func(idx *Indexer) {
		if d > 0 {
			idx.embedTimeout = d
		}
	}
}

// New creates an indexer with the given dependencies.
func New(store storage.Store, embedder embedding.Embedder, ch *chunker.Chunker, opts ...Option) *Indexer {
	idx := &Indexer{
		store:        store,
		embedder:     embedder,
		chunker:      ch,
		extractor:    extract.NewExtractor(),
		workers:      DefaultWorkers,
		embedTimeout: DefaultEmbedTimeout,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// IndexDocuments indexes a batch of documents through a bounded worker pool.
// One document's failure never aborts the batch; it is recorded in the report.
// On cancellation, in-flight documents finish, queued documents remain
// untouched, and the partial report is returned alongside ctx.Err() so the
// next run resumes where this one stopped.
func (idx *Indexer) IndexDocuments(ctx context.Context, inputs []*models.DocumentInput, force bool) (*models.IndexReport, error) {
	report := &models.IndexReport{}
	if len(inputs) == 0 {
		return report, nil
	}

	jobs := make(chan *models.DocumentInput)
	var mu sync.Mutex
	var wg sync.WaitGroup

	workers := idx.workers
	if workers > len(inputs) {
		workers = len(inputs)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for input := range jobs {
				chunks, err := idx.indexOne(ctx, input, force)
				mu.Lock()
				switch {
				case errors.Is(err, errUnchanged):
					report.Skipped++
				case err != nil:
					report.Failed++
					report.Failures = append(report.Failures, models.DocumentFailure{
						DocumentID: input.DocumentID,
						Reason:     err.Error(),
					})
				default:
					report.Indexed++
					report.Chunks += chunks
				}
				mu.Unlock()
			}
		}()
	}

	var cancelErr error
feed:
	for _, input := range inputs {
		select {
		case <-ctx.Done():
			cancelErr = ctx.Err()
			break feed
		case jobs <- input:
		}
	}
	close(jobs)
	wg.Wait()
	return report, cancelErr
}

// errUnchanged signals the skip path inside indexOne.
var errUnchanged = errors.New("document unchanged")

// indexOne runs the pipeline for a single document and returns the number of
// chunks written. A skip returns errUnchanged and performs no writes.
func (idx *Indexer) indexOne(ctx context.Context, input *models.DocumentInput, force bool) (int, error) {
	if input.DocumentID == "" {
		return 0, fmt.Errorf("document ID is required")
	}

	ext, err := idx.extractor.Extract(input)
	if err != nil {
		return 0, fmt.Errorf("extract: %w", err)
	}
	hash := extract.ContentHash(ext.Text)

	if !force {
		state, err := idx.store.GetIndexState(ctx, input.DocumentID)
		if err == nil && state.ContentHash == hash && state.ModelID == idx.embedder.ModelID() {
			if idx.logger != nil {
				idx.logger.Debug("indexer skipping unchanged document",
					zap.String("doc_id", input.DocumentID))
			}
			return 0, errUnchanged
		}
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return 0, fmt.Errorf("load index state: %w", err)
		}
	}

	chunks, err := idx.chunker.Chunk(ext, input.ContentKind)
	if err != nil {
		return 0, fmt.Errorf("chunk: %w", err)
	}
	for i := range chunks {
		chunks[i].ChunkID = chunkID(input.DocumentID, chunks[i].Seq)
		chunks[i].DocumentID = input.DocumentID
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	embedCtx, cancel := context.WithTimeout(ctx, idx.embedTimeout)
	vectors, err := idx.embedder.EmbedDocuments(embedCtx, texts)
	cancel()
	if err != nil {
		return 0, fmt.Errorf("embed: %w", err)
	}

	// Once the embeddings exist, finish the writes even if the run was
	// cancelled. A document is either fully indexed or untouched, so the
	// next run can resume from the skip check.
	persistCtx := context.WithoutCancel(ctx)
	doc := &models.Document{
		DocumentID:  input.DocumentID,
		Title:       input.Title,
		ContentKind: input.ContentKind,
		ContentHash: hash,
		ItemType:    input.ItemType,
		DocType:     input.DocType,
		UpdatedAt:   time.Now(),
	}
	if err := idx.store.UpsertDocument(persistCtx, doc); err != nil {
		return 0, fmt.Errorf("store document: %w", err)
	}
	state := &models.IndexState{
		DocumentID:  input.DocumentID,
		ContentHash: hash,
		ModelID:     idx.embedder.ModelID(),
		ChunkCount:  len(chunks),
		IndexedAt:   time.Now(),
	}
	if err := idx.store.ReplaceChunks(persistCtx, input.DocumentID, chunks, vectors, state); err != nil {
		return 0, fmt.Errorf("store chunks: %w", err)
	}
	if idx.logger != nil {
		idx.logger.Debug("indexer document indexed",
			zap.String("doc_id", input.DocumentID),
			zap.Int("chunks", len(chunks)))
	}
	return len(chunks), nil
}

// DeleteDocument removes a document's chunks, embeddings, and index state.
func (idx *Indexer) DeleteDocument(ctx context.Context, documentID string) error {
	if err := idx.store.DeleteDocumentVectors(ctx, documentID); err != nil {
		return fmt.Errorf("delete document %s: %w", documentID, err)
	}
	if idx.logger != nil {
		idx.logger.Debug("indexer document deleted", zap.String("doc_id", documentID))
	}
	return nil
}

// chunkID builds a chunk identifier from the owning document, the sequence
// index, and a short random suffix. Regenerated on every reindex; chunk rows
// are replaced, never updated in place.
func chunkID(documentID string, seq int) string {
	return fmt.Sprintf("%s_%d_%s", documentID, seq, uuid.New().String()[:8])
}
