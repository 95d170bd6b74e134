package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu      sync.Mutex
	indexed []string
	removed []string
	ch      chan string
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan string, 16)}
}

func (r *recorder) onIndex(path string) {
	r.mu.Lock()
	r.indexed = append(r.indexed, path)
	r.mu.Unlock()
	r.ch <- path
}

func (r *recorder) onRemove(path string) {
	r.mu.Lock()
	r.removed = append(r.removed, path)
	r.mu.Unlock()
	r.ch <- path
}

func (r *recorder) indexedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.indexed)
}

func waitFor(t *testing.T, ch chan string, timeout time.Duration) string {
	t.Helper()
	select {
	case path := <-ch:
		return path
	case <-time.After(timeout):
		t.Fatal("timed out waiting for watcher callback")
		return ""
	}
}

func startWatcher(t *testing.T, dir string, rec *recorder) *Watcher {
	t.Helper()
	w := New([]string{dir}, []string{".txt"}, rec.onIndex, rec.onRemove,
		WithDebounce(100*time.Millisecond))
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	t.Cleanup(w.Stop)
	return w
}

func TestWatcherIndexesSettledFile(t *testing.T) {
	dir := t.TempDir()
	rec := newRecorder()
	startWatcher(t, dir, rec)

	path := filepath.Join(dir, "note.txt")
	if err := os.WriteFile(path, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}

	got := waitFor(t, rec.ch, 3*time.Second)
	if got != path {
		t.Errorf("indexed %q, want %q", got, path)
	}
}

func TestWatcherDebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	rec := newRecorder()
	startWatcher(t, dir, rec)

	path := filepath.Join(dir, "burst.txt")
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte("revision"), 0644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	waitFor(t, rec.ch, 3*time.Second)
	// Let any stray timers fire before counting.
	time.Sleep(300 * time.Millisecond)
	if n := rec.indexedCount(); n != 1 {
		t.Errorf("burst of writes produced %d index calls, want 1", n)
	}
}

func TestWatcherIgnoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()
	rec := newRecorder()
	startWatcher(t, dir, rec)

	if err := os.WriteFile(filepath.Join(dir, "ignored.bin"), []byte("junk"), 0644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "seen.txt")
	if err := os.WriteFile(path, []byte("text"), 0644); err != nil {
		t.Fatal(err)
	}

	got := waitFor(t, rec.ch, 3*time.Second)
	if got != path {
		t.Errorf("indexed %q, want only %q", got, path)
	}
}

func TestWatcherRemove(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doomed.txt")
	if err := os.WriteFile(path, []byte("content"), 0644); err != nil {
		t.Fatal(err)
	}

	rec := newRecorder()
	startWatcher(t, dir, rec)

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	waitFor(t, rec.ch, 3*time.Second)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.removed) != 1 || rec.removed[0] != path {
		t.Errorf("removed = %v, want [%s]", rec.removed, path)
	}
}

func TestWatcherStopIdempotent(t *testing.T) {
	dir := t.TempDir()
	rec := newRecorder()
	w := startWatcher(t, dir, rec)
	w.Stop()
	w.Stop()
}
