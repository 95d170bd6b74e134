package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	content := `
storage:
  database_path: "./refseek.db"
embedding:
  provider: "mock"
  model: "mock-v1"
  dimensions: 32
chunking:
  size: 128
  overlap: 16
`
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

// resetFlags clears package-level flag state between Execute calls; cobra
// re-parses flags but does not zero values a previous run set.
func resetFlags() {
	cfgPath, debugFlag = "", false
	indexForce, indexItemType, indexDocType = false, "", ""
	queryTopK, queryItemTypes, queryDocTypes, queryJSON = 0, nil, nil, false
	discoverTopN, discoverItemTypes, discoverDocTypes, discoverJSON = 0, nil, nil, false
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestIndexAndQueryCommands(t *testing.T) {
	cfg := writeTestConfig(t)
	docs := t.TempDir()
	if err := os.WriteFile(filepath.Join(docs, "sampling.txt"),
		[]byte("stratified sampling reduces variance in survey estimates"), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := runCommand(t, "--config", cfg, "index", docs)
	if err != nil {
		t.Fatalf("index command error: %v", err)
	}
	if !strings.Contains(out, "Indexed 1") {
		t.Errorf("index output = %q, want Indexed 1", out)
	}

	out, err = runCommand(t, "--config", cfg, "query", "sampling variance")
	if err != nil {
		t.Fatalf("query command error: %v", err)
	}
	if !strings.Contains(out, "sampling") {
		t.Errorf("query output = %q, want a passage mentioning sampling", out)
	}

	out, err = runCommand(t, "--config", cfg, "stats")
	if err != nil {
		t.Fatalf("stats command error: %v", err)
	}
	if !strings.Contains(out, "Documents: 1") {
		t.Errorf("stats output = %q, want Documents: 1", out)
	}
}

func TestQueryEmptyStoreExitsNotIndexed(t *testing.T) {
	cfg := writeTestConfig(t)
	_, err := runCommand(t, "--config", cfg, "query", "anything")
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != ExitNotIndexed {
		t.Errorf("query on empty store error = %v, want exit code %d", err, ExitNotIndexed)
	}
}

func TestFilteredQueryExitsNotIndexed(t *testing.T) {
	cfg := writeTestConfig(t)
	docs := t.TempDir()
	if err := os.WriteFile(filepath.Join(docs, "doc.txt"), []byte("some content"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := runCommand(t, "--config", cfg, "index", docs, "--item-type", "book"); err != nil {
		t.Fatalf("index command error: %v", err)
	}

	// Content exists, but nothing under this filter: not-indexed, not no-match.
	_, err := runCommand(t, "--config", cfg, "query", "content", "--item-type", "journalArticle")
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != ExitNotIndexed {
		t.Errorf("filtered-out query error = %v, want exit code %d", err, ExitNotIndexed)
	}
}

func TestQueryBelowMinScoreExitsNoMatches(t *testing.T) {
	dir := t.TempDir()
	content := `
storage:
  database_path: "./refseek.db"
embedding:
  provider: "mock"
  model: "mock-v1"
  dimensions: 32
search:
  min_score: 0.9999
`
	cfg := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfg, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	docs := t.TempDir()
	if err := os.WriteFile(filepath.Join(docs, "doc.txt"), []byte("completely unrelated gardening notes"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := runCommand(t, "--config", cfg, "index", docs); err != nil {
		t.Fatalf("index command error: %v", err)
	}

	_, err := runCommand(t, "--config", cfg, "query", "quantum chromodynamics")
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != ExitNoMatches {
		t.Errorf("below-threshold query error = %v, want exit code %d", err, ExitNoMatches)
	}
}

func TestUnknownProviderFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
storage:
  database_path: "./refseek.db"
embedding:
  provider: "quantum"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	_, err := runCommand(t, "--config", path, "stats")
	if err == nil || !strings.Contains(err.Error(), "unknown embedding provider") {
		t.Errorf("error = %v, want unknown embedding provider", err)
	}
}

func TestExitErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &ExitError{Code: ExitFailure, Err: inner}
	if !errors.Is(err, inner) {
		t.Error("ExitError should unwrap to its cause")
	}
	if (&ExitError{Code: ExitNoMatches}).Error() == "" {
		t.Error("ExitError without cause should still describe itself")
	}
}

func TestSnippet(t *testing.T) {
	if got := snippet("short", 10); got != "short" {
		t.Errorf("snippet() = %q", got)
	}
	long := strings.Repeat("x", 50)
	got := snippet(long, 10)
	if len([]rune(got)) != 10 {
		t.Errorf("snippet() length = %d, want 10", len([]rune(got)))
	}
}
