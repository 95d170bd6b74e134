package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "./data/refseek.db"
embedding:
  provider: "mock"
  dimensions: 64
search:
  top_k: 5
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Embedding.Provider != "mock" || cfg.Embedding.Dimensions != 64 {
		t.Errorf("unexpected embedding config: %+v", cfg.Embedding)
	}
	if cfg.Search.TopK != 5 {
		t.Errorf("top_k = %d, want 5", cfg.Search.TopK)
	}
	if !filepath.IsAbs(cfg.Storage.DatabasePath) {
		t.Errorf("database_path not expanded: %q", cfg.Storage.DatabasePath)
	}
	if !strings.HasPrefix(cfg.Storage.DatabasePath, dir) {
		t.Errorf("./ path should resolve relative to the config dir, got %q", cfg.Storage.DatabasePath)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() of a missing file should fail")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("embedding: [not a map"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() of invalid yaml should fail")
	}
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Server.Host != "localhost" || cfg.Server.Port != 8080 {
		t.Errorf("server defaults: %+v", cfg.Server)
	}
	if cfg.Embedding.Provider != "http" {
		t.Errorf("provider default = %q, want http", cfg.Embedding.Provider)
	}
	if cfg.Embedding.Dimensions != 384 {
		t.Errorf("dimensions default = %d, want 384", cfg.Embedding.Dimensions)
	}
	if cfg.Chunking.Size != 512 || cfg.Chunking.OverlapOrDefault() != 50 {
		t.Errorf("chunking defaults: %+v", cfg.Chunking)
	}
	if cfg.Search.TopK != 10 || cfg.Search.DiscoverMultiplier != 5 {
		t.Errorf("search defaults: %+v", cfg.Search)
	}
	if !cfg.Search.StrictModelCheckOrDefault() {
		t.Error("strict_model_check should default to true")
	}
	if cfg.Indexing.Workers != 4 || cfg.Indexing.EmbedTimeout != 2*time.Minute {
		t.Errorf("indexing defaults: %+v", cfg.Indexing)
	}
	if cfg.Watch.Debounce != 2*time.Second {
		t.Errorf("watch debounce default = %v", cfg.Watch.Debounce)
	}
}

func TestOverlapExplicitZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
chunking:
  overlap: 0
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Chunking.OverlapOrDefault() != 0 {
		t.Errorf("overlap: 0 should be honored, got %d", cfg.Chunking.OverlapOrDefault())
	}
}

func TestStrictModelCheckExplicitFalse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
search:
  strict_model_check: false
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Search.StrictModelCheckOrDefault() {
		t.Error("strict_model_check: false should be honored, not defaulted back to true")
	}
}
