package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/refseek/refseek/internal/models"
	"github.com/refseek/refseek/internal/retrieval"
	"github.com/refseek/refseek/internal/storage"
)

type indexRequest struct {
	Documents []*models.DocumentInput `json:"documents"`
	Force     bool                    `json:"force"`
}

type queryRequest struct {
	Query     string   `json:"query"`
	TopK      int      `json:"top_k"`
	TopN      int      `json:"top_n"`
	ItemTypes []string `json:"item_types"`
	DocTypes  []string `json:"doc_types"`
}

func (q *queryRequest) filters() storage.Filters {
	return storage.Filters{ItemTypes: q.ItemTypes, DocTypes: q.DocTypes}
}

func (s *Server) handleIndexDocuments(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Documents) == 0 {
		s.respondError(w, http.StatusBadRequest, "documents is required")
		return
	}
	s.logger.Debug("index request", zap.Int("documents", len(req.Documents)), zap.Bool("force", req.Force))
	report, err := s.indexer.IndexDocuments(r.Context(), req.Documents, req.Force)
	if err != nil {
		s.logger.Error("indexing failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete document request", zap.String("id", id))
	if err := s.indexer.DeleteDocument(r.Context(), id); err != nil {
		s.logger.Error("deletion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.TopK == 0 {
		req.TopK = 10
	}
	answer, err := s.retriever.RetrieveForAnswer(r.Context(), req.Query, req.TopK, req.filters())
	if err != nil {
		s.respondRetrievalError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, answer)
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.TopN == 0 {
		req.TopN = 10
	}
	sources, err := s.retriever.DiscoverSources(r.Context(), req.Query, req.TopN, req.filters())
	if err != nil {
		s.respondRetrievalError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"query": req.Query, "sources": sources})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.logger.Error("stats failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respondRetrievalError maps retrieval errors to HTTP statuses. Index state
// conflicts (nothing indexed, stale model, wrong dimension) are 409 so
// clients can distinguish them from bad requests.
func (s *Server) respondRetrievalError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, retrieval.ErrNotIndexed),
		errors.Is(err, retrieval.ErrModelChanged),
		errors.Is(err, storage.ErrDimensionMismatch):
		s.respondError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error("retrieval failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
