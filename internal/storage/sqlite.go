// Package storage provides the SQLite implementation of the Store interface.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/refseek/refseek/internal/models"
	"github.com/refseek/refseek/internal/vector"
)

// SQLiteStore implements Store using SQLite. WAL mode gives readers snapshot
// isolation, so a concurrent Search sees either the fully-old or fully-new
// chunk set for a document, never a mix. A single write mutex serializes
// writers; SQLite allows only one write transaction at a time anyway.
type SQLiteStore struct {
	db      *sql.DB
	writeMu sync.Mutex
}

// Open opens or creates a SQLite database at dbPath and initializes the
// schema. Parent directories are created if they do not exist.
func Open(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		document_id TEXT PRIMARY KEY,
		title TEXT,
		content_kind TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		item_type TEXT,
		doc_type TEXT,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chunks (
		chunk_id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		text TEXT NOT NULL,
		char_start INTEGER NOT NULL,
		char_end INTEGER NOT NULL,
		page_number INTEGER NOT NULL DEFAULT 0,
		section_path TEXT NOT NULL DEFAULT '',
		heading_path TEXT NOT NULL DEFAULT '',
		UNIQUE (document_id, seq),
		FOREIGN KEY (document_id) REFERENCES documents(document_id)
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id);

	CREATE TABLE IF NOT EXISTS embeddings (
		chunk_id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		model_id TEXT NOT NULL,
		dimension INTEGER NOT NULL,
		vec BLOB NOT NULL,
		FOREIGN KEY (chunk_id) REFERENCES chunks(chunk_id)
	);

	CREATE INDEX IF NOT EXISTS idx_embeddings_document ON embeddings(document_id);
	CREATE INDEX IF NOT EXISTS idx_embeddings_model ON embeddings(model_id);

	CREATE TABLE IF NOT EXISTS index_state (
		document_id TEXT PRIMARY KEY,
		content_hash TEXT NOT NULL,
		model_id TEXT NOT NULL,
		chunk_count INTEGER NOT NULL,
		indexed_at TIMESTAMP NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// UpsertDocument inserts or updates the cached document projection.
func (s *SQLiteStore) UpsertDocument(ctx context.Context, doc *models.Document) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (document_id, title, content_kind, content_hash, item_type, doc_type, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(document_id) DO UPDATE SET
		   title = excluded.title,
		   content_kind = excluded.content_kind,
		   content_hash = excluded.content_hash,
		   item_type = excluded.item_type,
		   doc_type = excluded.doc_type,
		   updated_at = excluded.updated_at`,
		doc.DocumentID, doc.Title, string(doc.ContentKind), doc.ContentHash, doc.ItemType, doc.DocType, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert document %s: %w", doc.DocumentID, err)
	}
	return nil
}

// GetDocument returns a document by ID, or ErrNotFound.
func (s *SQLiteStore) GetDocument(ctx context.Context, documentID string) (*models.Document, error) {
	var doc models.Document
	var kind string
	err := s.db.QueryRowContext(ctx,
		`SELECT document_id, title, content_kind, content_hash, item_type, doc_type, updated_at
		 FROM documents WHERE document_id = ?`, documentID,
	).Scan(&doc.DocumentID, &doc.Title, &kind, &doc.ContentHash, &doc.ItemType, &doc.DocType, &doc.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document %s: %w", documentID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", documentID, err)
	}
	doc.ContentKind = models.ContentKind(kind)
	return &doc, nil
}

// ReplaceChunks atomically swaps a document's chunk/embedding rows and index
// state inside one transaction. Readers see the old set until commit.
func (s *SQLiteStore) ReplaceChunks(ctx context.Context, documentID string, chunks []models.Chunk, vectors [][]float32, state *models.IndexState) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("replace chunks %s: %d chunks but %d vectors", documentID, len(chunks), len(vectors))
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM embeddings WHERE document_id = ?`, documentID); err != nil {
		return fmt.Errorf("delete old embeddings: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, documentID); err != nil {
		return fmt.Errorf("delete old chunks: %w", err)
	}

	chunkStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (chunk_id, document_id, seq, text, char_start, char_end, page_number, section_path, heading_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare chunk insert: %w", err)
	}
	defer chunkStmt.Close()
	embStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO embeddings (chunk_id, document_id, model_id, dimension, vec) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare embedding insert: %w", err)
	}
	defer embStmt.Close()

	for i, ch := range chunks {
		if _, err := chunkStmt.ExecContext(ctx, ch.ChunkID, documentID, ch.Seq, ch.Text,
			ch.CharStart, ch.CharEnd, ch.PageNumber, ch.SectionPath, ch.HeadingPath); err != nil {
			return fmt.Errorf("insert chunk %s: %w", ch.ChunkID, err)
		}
		if _, err := embStmt.ExecContext(ctx, ch.ChunkID, documentID, state.ModelID,
			len(vectors[i]), vector.Encode(vectors[i])); err != nil {
			return fmt.Errorf("insert embedding %s: %w", ch.ChunkID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO index_state (document_id, content_hash, model_id, chunk_count, indexed_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(document_id) DO UPDATE SET
		   content_hash = excluded.content_hash,
		   model_id = excluded.model_id,
		   chunk_count = excluded.chunk_count,
		   indexed_at = excluded.indexed_at`,
		state.DocumentID, state.ContentHash, state.ModelID, state.ChunkCount, state.IndexedAt,
	); err != nil {
		return fmt.Errorf("upsert index state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

// GetIndexState returns the last successful index record, or ErrNotFound.
func (s *SQLiteStore) GetIndexState(ctx context.Context, documentID string) (*models.IndexState, error) {
	var st models.IndexState
	err := s.db.QueryRowContext(ctx,
		`SELECT document_id, content_hash, model_id, chunk_count, indexed_at
		 FROM index_state WHERE document_id = ?`, documentID,
	).Scan(&st.DocumentID, &st.ContentHash, &st.ModelID, &st.ChunkCount, &st.IndexedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("index state %s: %w", documentID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get index state %s: %w", documentID, err)
	}
	return &st, nil
}

// DeleteDocumentVectors removes chunks, embeddings, and index state for one
// document. Idempotent.
func (s *SQLiteStore) DeleteDocumentVectors(ctx context.Context, documentID string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer tx.Rollback()
	for _, stmt := range []string{
		`DELETE FROM embeddings WHERE document_id = ?`,
		`DELETE FROM chunks WHERE document_id = ?`,
		`DELETE FROM index_state WHERE document_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, documentID); err != nil {
			return fmt.Errorf("delete vectors %s: %w", documentID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

// filterClause builds the WHERE fragment and args for tag filters against the
// aliased documents table d.
func filterClause(filters Filters) (string, []any) {
	var conds []string
	var args []any
	if len(filters.ItemTypes) > 0 {
		conds = append(conds, "d.item_type IN ("+placeholders(len(filters.ItemTypes))+")")
		for _, v := range filters.ItemTypes {
			args = append(args, v)
		}
	}
	if len(filters.DocTypes) > 0 {
		conds = append(conds, "d.doc_type IN ("+placeholders(len(filters.DocTypes))+")")
		for _, v := range filters.DocTypes {
			args = append(args, v)
		}
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// Search computes cosine similarity between the query vector and every stored
// embedding matching the filters, returning the topK best. Determinism: equal
// scores are ordered by document ID ascending, then sequence index ascending.
func (s *SQLiteStore) Search(ctx context.Context, query []float32, topK int, filters Filters) ([]models.SearchResult, error) {
	if topK < 1 {
		return nil, fmt.Errorf("top_k must be >= 1, got %d", topK)
	}

	where, args := filterClause(filters)
	rows, err := s.db.QueryContext(ctx,
		`SELECT e.chunk_id, e.document_id, e.dimension, e.vec,
		        c.seq, c.text, c.page_number, c.section_path, c.heading_path,
		        d.title, d.item_type, d.doc_type
		 FROM embeddings e
		 JOIN chunks c ON c.chunk_id = e.chunk_id
		 JOIN documents d ON d.document_id = e.document_id`+where, args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	var results []models.SearchResult
	for rows.Next() {
		var r models.SearchResult
		var dim int
		var blob []byte
		if err := rows.Scan(&r.ChunkID, &r.DocumentID, &dim, &blob,
			&r.Seq, &r.Text, &r.PageNumber, &r.SectionPath, &r.HeadingPath,
			&r.Title, &r.ItemType, &r.DocType); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		if dim != len(query) {
			return nil, fmt.Errorf("stored dimension %d vs query dimension %d for chunk %s: %w",
				dim, len(query), r.ChunkID, ErrDimensionMismatch)
		}
		vec, err := vector.Decode(blob)
		if err != nil {
			return nil, fmt.Errorf("decode embedding %s: %w", r.ChunkID, err)
		}
		r.Score = vector.Cosine(query, vec)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search rows: %w", err)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].DocumentID != results[j].DocumentID {
			return results[i].DocumentID < results[j].DocumentID
		}
		return results[i].Seq < results[j].Seq
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// EmbeddingCount returns how many embeddings match the filters.
func (s *SQLiteStore) EmbeddingCount(ctx context.Context, filters Filters) (int, error) {
	where, args := filterClause(filters)
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM embeddings e JOIN documents d ON d.document_id = e.document_id`+where,
		args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count embeddings: %w", err)
	}
	return n, nil
}

// Stats returns indexed document/chunk counts and a per-model breakdown.
func (s *SQLiteStore) Stats(ctx context.Context) (*models.Stats, error) {
	st := &models.Stats{PerModel: make(map[string]int)}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM index_state`).Scan(&st.Documents); err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&st.Chunks); err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT model_id, COUNT(*) FROM embeddings GROUP BY model_id`)
	if err != nil {
		return nil, fmt.Errorf("count per model: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var model string
		var n int
		if err := rows.Scan(&model, &n); err != nil {
			return nil, fmt.Errorf("scan model count: %w", err)
		}
		st.PerModel[model] = n
	}
	return st, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
