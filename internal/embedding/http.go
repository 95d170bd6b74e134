package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/refseek/refseek/internal/vector"
)

// Default configuration for the HTTP embedding client.
const (
	DefaultBaseURL   = "http://localhost:11434/v1"
	DefaultModel     = "all-minilm"
	DefaultTimeout   = 30 * time.Second
	DefaultBatchSize = 32
)

// HTTPConfig holds configuration for the HTTP embedding client.
type HTTPConfig struct {
	// BaseURL is the service base URL; the client POSTs to BaseURL+"/embeddings".
	BaseURL string
	// APIKey is sent as a bearer token when non-empty.
	APIKey string
	// Model is the embedding model identifier.
	Model string
	// Dimensions is the expected vector length.
	Dimensions int
	// Timeout bounds each request.
	Timeout time.Duration
	// BatchSize caps how many texts go into one request.
	BatchSize int
	// RequestsPerSecond throttles calls to the backend's rate limit
	// (0 = unlimited).
	RequestsPerSecond float64
	// CacheSize is the embedding LRU capacity (0 = default).
	CacheSize int
}

// HTTPEmbedder calls an OpenAI-compatible embeddings endpoint. Batches are
// split to BatchSize internally; order is always preserved.
type HTTPEmbedder struct {
	client     *http.Client
	limiter    *rate.Limiter
	cache      *lruCache
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	batchSize  int
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewHTTPEmbedder creates an HTTP embedding client.
func NewHTTPEmbedder(cfg HTTPConfig) *HTTPEmbedder {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return &HTTPEmbedder{
		client:     &http.Client{Timeout: cfg.Timeout},
		limiter:    limiter,
		cache:      newLRUCache(cfg.CacheSize),
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		batchSize:  cfg.BatchSize,
	}
}

// EmbedDocuments embeds texts in request batches, preserving order.
func (e *HTTPEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		copy(out[start:end], batch)
	}
	return out, nil
}

// EmbedQuery embeds a single query string, using the cache when possible.
func (e *HTTPEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := e.cache.get(text); ok {
		return cached, nil
	}
	batch, err := e.embedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return batch[0], nil
}

func (e *HTTPEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrService, err)
	}

	body, err := json.Marshal(embedRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrModel, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrModel, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		// 5xx and 429 are transient; other 4xx means the input or model is bad.
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: status %d: %s", ErrService, resp.StatusCode, msg)
		}
		return nil, fmt.Errorf("%w: status %d: %s", ErrModel, resp.StatusCode, msg)
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrService, err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("%w: %s", ErrModel, parsed.Error.Message)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrService, len(texts), len(parsed.Data))
	}

	out := make([][]float32, len(texts))
	for _, item := range parsed.Data {
		if item.Index < 0 || item.Index >= len(out) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", ErrService, item.Index)
		}
		vec := make([]float32, len(item.Embedding))
		for i, v := range item.Embedding {
			vec[i] = float32(v)
		}
		if e.dimensions > 0 && len(vec) != e.dimensions {
			return nil, fmt.Errorf("%w: model returned %d dimensions, expected %d", ErrModel, len(vec), e.dimensions)
		}
		// Backends differ on whether embeddings come back normalized; the
		// scorer requires unit vectors.
		vector.NormalizeL2(vec)
		out[item.Index] = vec
	}
	for i, vec := range out {
		if vec == nil {
			return nil, fmt.Errorf("%w: missing embedding for input %d", ErrService, i)
		}
		e.cache.set(texts[i], vec)
	}
	return out, nil
}

// ModelID returns the configured model identifier.
func (e *HTTPEmbedder) ModelID() string { return e.model }

// Dimensions returns the configured vector length (0 = accept what the model returns).
func (e *HTTPEmbedder) Dimensions() int { return e.dimensions }

// Close is a no-op; the HTTP client holds no persistent resources.
func (e *HTTPEmbedder) Close() error { return nil }
