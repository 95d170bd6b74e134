package cli

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/refseek/refseek/internal/chunker"
	"github.com/refseek/refseek/internal/config"
	"github.com/refseek/refseek/internal/embedding"
	"github.com/refseek/refseek/internal/indexer"
	"github.com/refseek/refseek/internal/retrieval"
	"github.com/refseek/refseek/internal/storage"
	"github.com/refseek/refseek/pkg/utils"
)

// app wires the engine together for one command invocation.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	store     storage.Store
	embedder  embedding.Embedder
	indexer   *indexer.Indexer
	retriever *retrieval.Retriever
}

func newApp() (*app, error) {
	var cfg *config.Config
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}

	logger, err := utils.NewLogger(debugFlag || cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	store, err := storage.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, err
	}

	embedder, err := newEmbedder(&cfg.Embedding)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	ch := chunker.New(chunker.Config{
		Size:    cfg.Chunking.Size,
		Overlap: cfg.Chunking.OverlapOrDefault(),
		MinSize: cfg.Chunking.MinSize,
	})
	idx := indexer.New(store, embedder, ch,
		indexer.WithLogger(logger),
		indexer.WithWorkers(cfg.Indexing.Workers),
		indexer.WithEmbedTimeout(cfg.Indexing.EmbedTimeout),
	)
	retriever := retrieval.New(store, embedder,
		retrieval.WithLogger(logger),
		retrieval.WithDiscoverMultiplier(cfg.Search.DiscoverMultiplier),
		retrieval.WithMinScore(cfg.Search.MinScore),
		retrieval.WithStrictModelCheck(cfg.Search.StrictModelCheckOrDefault()),
	)

	return &app{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		embedder:  embedder,
		indexer:   idx,
		retriever: retriever,
	}, nil
}

func newEmbedder(cfg *config.EmbeddingConfig) (embedding.Embedder, error) {
	switch cfg.Provider {
	case "mock":
		return embedding.NewMockEmbedder(cfg.Model, cfg.Dimensions), nil
	case "http":
		return embedding.NewHTTPEmbedder(embedding.HTTPConfig{
			BaseURL:           cfg.BaseURL,
			APIKey:            cfg.APIKey,
			Model:             cfg.Model,
			Dimensions:        cfg.Dimensions,
			Timeout:           cfg.Timeout,
			BatchSize:         cfg.BatchSize,
			RequestsPerSecond: cfg.RequestsPerSecond,
			CacheSize:         cfg.CacheSize,
		}), nil
	case "onnx":
		return embedding.NewONNXEmbedder(cfg.ModelPath, cfg.Model, cfg.Dimensions, cfg.MaxTokens, cfg.CacheSize)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q (want mock, http, or onnx)", cfg.Provider)
	}
}

func (a *app) Close() {
	_ = a.embedder.Close()
	_ = a.store.Close()
	_ = a.logger.Sync()
}
