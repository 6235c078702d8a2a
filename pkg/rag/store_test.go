package rag_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	coreerrors "github.com/blacksky-llc/maurice-go/pkg/core/errors"
	"github.com/blacksky-llc/maurice-go/pkg/rag"
)

// stubEmbedder maps each text to a deterministic vector keyed on a
// few known words, so tests can control similarity ordering.
type stubEmbedder struct {
	fail bool
}

func (e *stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if e.fail {
		return nil, fmt.Errorf("embedding backend down")
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v := []float32{1, 0, 0}
		if strings.Contains(text, "pricing") {
			v = []float32{0, 1, 0}
		}
		if strings.Contains(text, "deployment") {
			v = []float32{0, 0, 1}
		}
		vectors[i] = v
	}
	return vectors, nil
}

func newTestStore(t *testing.T, opts ...rag.StoreOption) (*rag.DocumentStore, *stubEmbedder) {
	t.Helper()
	embedder := &stubEmbedder{}
	store := rag.NewDocumentStore(embedder, rag.NewMemoryIndex(), rag.NewChunker(500, 50), opts...)
	if err := store.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	return store, embedder
}

func TestAddDocumentBlankContent(t *testing.T) {
	store, _ := newTestStore(t)

	n, err := store.AddDocument(context.Background(), "   \n  ", "blank.md")
	if err != nil {
		t.Fatalf("AddDocument failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 chunks for blank content, got %d", n)
	}
}

func TestAddDocumentSupersedesSource(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	if _, err := store.AddDocument(ctx, "old version of the document", "doc.md"); err != nil {
		t.Fatalf("AddDocument failed: %v", err)
	}
	if _, err := store.AddDocument(ctx, "new version", "doc.md"); err != nil {
		t.Fatalf("AddDocument failed: %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected old chunks superseded, got %d chunks", count)
	}

	results, err := store.Search(ctx, "anything")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 || results[0].Chunk.Content != "new version" {
		t.Fatalf("expected only new version in index, got %+v", results)
	}
}

func TestSearchEmbedFailureIsTyped(t *testing.T) {
	store, embedder := newTestStore(t)
	embedder.fail = true

	_, err := store.Search(context.Background(), "query")
	if err == nil {
		t.Fatalf("expected error when embedding fails")
	}
	if !errors.Is(err, coreerrors.ErrEmbeddingFailed) {
		t.Fatalf("expected ErrEmbeddingFailed, got %v", err)
	}
}

func TestSearchEmptyIndexReturnsNoResults(t *testing.T) {
	store, _ := newTestStore(t)

	results, err := store.Search(context.Background(), "query")
	if err != nil {
		t.Fatalf("Search on empty index must not error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}

func TestContextWithSources(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, rag.WithTopK(3))

	if _, err := store.AddDocument(ctx, "our pricing starts at ten dollars", "pricing.md"); err != nil {
		t.Fatalf("AddDocument failed: %v", err)
	}
	if _, err := store.AddDocument(ctx, "pricing tiers scale with usage", "pricing.md"); err != nil {
		t.Fatalf("AddDocument failed: %v", err)
	}
	if _, err := store.AddDocument(ctx, "deployment uses docker compose", "deploy.md"); err != nil {
		t.Fatalf("AddDocument failed: %v", err)
	}

	// Two docs to the same source supersede each other, so re-add the
	// first under a distinct source to get multiple pricing chunks.
	if _, err := store.AddDocument(ctx, "our pricing starts at ten dollars", "pricing2.md"); err != nil {
		t.Fatalf("AddDocument failed: %v", err)
	}

	text, sources, err := store.ContextWithSources(ctx, "what is the pricing")
	if err != nil {
		t.Fatalf("ContextWithSources failed: %v", err)
	}

	if !strings.HasPrefix(text, "Relevant documentation:") {
		t.Fatalf("context missing preamble: %q", text)
	}
	if !strings.Contains(text, "pricing tiers scale with usage") {
		t.Fatalf("context missing best match: %q", text)
	}
	if len(sources) == 0 {
		t.Fatalf("expected sources, got none")
	}
	seen := make(map[string]bool)
	for _, s := range sources {
		if seen[s] {
			t.Fatalf("duplicate source %q in %v", s, sources)
		}
		seen[s] = true
	}
}

func TestContextWithSourcesEmpty(t *testing.T) {
	store, _ := newTestStore(t)

	text, sources, err := store.ContextWithSources(context.Background(), "query")
	if err != nil {
		t.Fatalf("ContextWithSources failed: %v", err)
	}
	if text != "" || len(sources) != 0 {
		t.Fatalf("expected empty context and sources, got %q / %v", text, sources)
	}
}

func TestAddDirectory(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	dir := t.TempDir()
	files := map[string]string{
		"a.md":       "content of document a",
		"b.txt":      "content of document b",
		"ignored.go": "package main",
		"empty.md":   "   ",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
	}

	docs, chunks, failures := store.AddDirectory(ctx, dir)
	if len(failures) != 0 {
		t.Fatalf("unexpected failures: %v", failures)
	}
	if docs != 2 {
		t.Fatalf("expected 2 documents indexed, got %d", docs)
	}
	if chunks < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", chunks)
	}

	sources, err := store.Sources(ctx)
	if err != nil {
		t.Fatalf("Sources failed: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %v", sources)
	}
}

func TestAddDirectoryReportsUnreadableFiles(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "good.md"), []byte("readable content"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	// A dangling symlink has a supported extension but cannot be read.
	if err := os.Symlink(filepath.Join(dir, "missing-target"), filepath.Join(dir, "broken.md")); err != nil {
		t.Fatalf("create symlink: %v", err)
	}

	docs, _, failures := store.AddDirectory(ctx, dir)
	if docs != 1 {
		t.Fatalf("expected 1 document indexed, got %d", docs)
	}
	if len(failures) != 1 {
		t.Fatalf("expected the unreadable file reported as a failure, got %v", failures)
	}
}

func TestAddDirectoryMissing(t *testing.T) {
	store, _ := newTestStore(t)

	docs, chunks, failures := store.AddDirectory(context.Background(), "/nonexistent/path")
	if docs != 0 || chunks != 0 {
		t.Fatalf("expected nothing indexed, got %d docs %d chunks", docs, chunks)
	}
	if len(failures) == 0 {
		t.Fatalf("expected a failure for missing directory")
	}
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	if _, err := store.AddDocument(ctx, "some content", "doc.md"); err != nil {
		t.Fatalf("AddDocument failed: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty index after Clear, got %d", count)
	}
}
