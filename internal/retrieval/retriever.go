// Package retrieval turns a text query into grouped passages for answer
// synthesis or a ranked list of sources for discovery.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/refseek/refseek/internal/embedding"
	"github.com/refseek/refseek/internal/models"
	"github.com/refseek/refseek/internal/storage"
)

// ErrNotIndexed is returned when no embeddings exist under the given filters.
// Callers distinguish "nothing indexed" from "no good match".
var ErrNotIndexed = errors.New("no indexed content matches the filters")

// ErrModelChanged is returned when stored embeddings were produced by a
// different model than the active embedder. Reindex to clear it.
var ErrModelChanged = errors.New("index was built with a different embedding model")

// DefaultDiscoverMultiplier widens the chunk-level search for DiscoverSources
// so enough distinct documents survive aggregation.
const DefaultDiscoverMultiplier = 5

// Retriever answers queries against the store using the active embedder.
type Retriever struct {
	store            storage.Store
	embedder         embedding.Embedder
	multiplier       int
	minScore         float64
	strictModelCheck bool
	logger           *zap.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(r *Retriever) { r.logger = l }
}

// WithDiscoverMultiplier sets the chunk-level widening factor for
// DiscoverSources.
func WithDiscoverMultiplier(n int) Option {
	return func(r *Retriever) {
		if n > 0 {
			r.multiplier = n
		}
	}
}

// WithMinScore drops results scoring below the threshold. Zero keeps
// everything.
func WithMinScore(score float64) Option {
	return func(r *Retriever) {
		if score > 0 {
			r.minScore = score
		}
	}
}

// WithStrictModelCheck controls whether a stored model mismatch is a hard
// error. When disabled, same-dimension embeddings from an older model are
// still searched.
func WithStrictModelCheck(strict bool) Option {
	return func(r *Retriever) { r.strictModelCheck = strict }
}

// New creates a retriever. Strict model checking is on by default.
func New(store storage.Store, embedder embedding.Embedder, opts ...Option) *Retriever {
	r := &Retriever{
		store:            store,
		embedder:         embedder,
		multiplier:       DefaultDiscoverMultiplier,
		strictModelCheck: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// search runs the readiness checks, embeds the query, and searches the store.
func (r *Retriever) search(ctx context.Context, query string, k int, filters storage.Filters) ([]models.SearchResult, error) {
	n, err := r.store.EmbeddingCount(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("count embeddings: %w", err)
	}
	if n == 0 {
		return nil, ErrNotIndexed
	}
	if r.strictModelCheck {
		stats, err := r.store.Stats(ctx)
		if err != nil {
			return nil, fmt.Errorf("load stats: %w", err)
		}
		for model := range stats.PerModel {
			if model != r.embedder.ModelID() {
				return nil, fmt.Errorf("stored model %q, active model %q: %w",
					model, r.embedder.ModelID(), ErrModelChanged)
			}
		}
	}

	vec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	results, err := r.store.Search(ctx, vec, k, filters)
	if err != nil {
		return nil, err
	}
	if r.minScore > 0 {
		kept := results[:0]
		for _, res := range results {
			if res.Score >= r.minScore {
				kept = append(kept, res)
			}
		}
		results = kept
	}
	if r.logger != nil {
		r.logger.Debug("retrieval search",
			zap.String("query", query),
			zap.Int("k", k),
			zap.Int("results", len(results)))
	}
	return results, nil
}

// RetrieveForAnswer returns the topK best chunks grouped by document. Groups
// are ordered by their best chunk's score descending; passages within a group
// follow document order so quoted context reads naturally.
func (r *Retriever) RetrieveForAnswer(ctx context.Context, query string, topK int, filters storage.Filters) (*models.AnswerContext, error) {
	if topK < 1 {
		return nil, fmt.Errorf("top_k must be >= 1, got %d", topK)
	}
	results, err := r.search(ctx, query, topK, filters)
	if err != nil {
		return nil, err
	}

	answer := &models.AnswerContext{Query: query}
	byDoc := make(map[string]int)
	for i := range results {
		res := &results[i]
		gi, ok := byDoc[res.DocumentID]
		if !ok {
			gi = len(answer.Groups)
			byDoc[res.DocumentID] = gi
			answer.Groups = append(answer.Groups, models.SourceGroup{
				DocumentID: res.DocumentID,
				Title:      res.Title,
				ItemType:   res.ItemType,
				DocType:    res.DocType,
				BestScore:  res.Score,
			})
		}
		group := &answer.Groups[gi]
		group.Passages = append(group.Passages, models.Passage{
			ChunkID:  res.ChunkID,
			Seq:      res.Seq,
			Text:     res.Text,
			Location: resultLocation(res),
			Citation: citation(res),
			Score:    res.Score,
		})
	}
	// Results arrive score-descending, so first appearance already orders
	// groups by best score. Passages reorder to document position.
	for gi := range answer.Groups {
		passages := answer.Groups[gi].Passages
		sort.Slice(passages, func(i, j int) bool {
			return passages[i].Seq < passages[j].Seq
		})
	}
	return answer, nil
}

// DiscoverSources returns the topN documents most relevant to the query. A
// document's score is its best chunk's score; the best chunk also supplies
// the evidence snippet.
func (r *Retriever) DiscoverSources(ctx context.Context, query string, topN int, filters storage.Filters) ([]models.RankedSource, error) {
	if topN < 1 {
		return nil, fmt.Errorf("top_n must be >= 1, got %d", topN)
	}
	results, err := r.search(ctx, query, topN*r.multiplier, filters)
	if err != nil {
		return nil, err
	}

	byDoc := make(map[string]*models.RankedSource)
	var order []string
	for _, res := range results {
		src, ok := byDoc[res.DocumentID]
		if !ok {
			byDoc[res.DocumentID] = &models.RankedSource{
				DocumentID:       res.DocumentID,
				Title:            res.Title,
				ItemType:         res.ItemType,
				DocType:          res.DocType,
				Score:            res.Score,
				ChunkHits:        1,
				Evidence:         res.Text,
				EvidenceLocation: resultLocation(&res),
			}
			order = append(order, res.DocumentID)
			continue
		}
		src.ChunkHits++
		if res.Score > src.Score {
			src.Score = res.Score
			src.Evidence = res.Text
			src.EvidenceLocation = resultLocation(&res)
		}
	}

	ranked := make([]models.RankedSource, 0, len(order))
	for _, id := range order {
		ranked = append(ranked, *byDoc[id])
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].DocumentID < ranked[j].DocumentID
	})
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked, nil
}

// resultLocation renders the most specific provenance a result carries.
func resultLocation(r *models.SearchResult) string {
	if r.PageNumber > 0 {
		return fmt.Sprintf("p.%d", r.PageNumber)
	}
	if r.SectionPath != "" {
		return r.SectionPath
	}
	return r.HeadingPath
}

// citation renders a bracketed label like "[Attention Is All You Need, p.3]".
func citation(r *models.SearchResult) string {
	label := r.Title
	if label == "" {
		label = r.DocumentID
	}
	if loc := resultLocation(r); loc != "" {
		return "[" + label + ", " + loc + "]"
	}
	return "[" + label + "]"
}
