package rag_test

import (
	"context"
	"testing"

	"github.com/blacksky-llc/maurice-go/pkg/rag"
)

func TestMemoryIndexUpsertReplacesByID(t *testing.T) {
	ctx := context.Background()
	index := rag.NewMemoryIndex()

	original := rag.DocumentChunk{
		ID:      "chunk-1",
		Source:  "doc.md",
		Content: "original content",
		Vector:  []float32{1, 0, 0},
	}
	if err := index.Upsert(ctx, []rag.DocumentChunk{original}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	updated := original
	updated.Content = "updated content"
	if err := index.Upsert(ctx, []rag.DocumentChunk{updated}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	stats, err := index.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.VectorCount != 1 {
		t.Fatalf("expected 1 vector after re-upsert, got %d", stats.VectorCount)
	}

	results, err := index.Query(ctx, []float32{1, 0, 0}, 1)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if results[0].Chunk.Content != "updated content" {
		t.Fatalf("expected updated content, got %q", results[0].Chunk.Content)
	}
}

func TestMemoryIndexQueryOrdering(t *testing.T) {
	ctx := context.Background()
	index := rag.NewMemoryIndex()

	chunks := []rag.DocumentChunk{
		{ID: "far", Source: "doc.md", Content: "far", Vector: []float32{0, 1, 0}},
		{ID: "near", Source: "doc.md", Content: "near", Vector: []float32{1, 0, 0}},
		{ID: "mid", Source: "doc.md", Content: "mid", Vector: []float32{1, 1, 0}},
	}
	if err := index.Upsert(ctx, chunks); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	results, err := index.Query(ctx, []float32{1, 0, 0}, 10)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	want := []string{"near", "mid", "far"}
	for i, id := range want {
		if results[i].Chunk.ID != id {
			t.Fatalf("result %d: expected %s, got %s", i, id, results[i].Chunk.ID)
		}
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Fatalf("results not in descending score order: %v then %v",
				results[i-1].Score, results[i].Score)
		}
	}
}

func TestMemoryIndexQueryTopK(t *testing.T) {
	ctx := context.Background()
	index := rag.NewMemoryIndex()

	var chunks []rag.DocumentChunk
	for i := 0; i < 5; i++ {
		chunks = append(chunks, rag.DocumentChunk{
			ID:     string(rune('a' + i)),
			Source: "doc.md",
			Vector: []float32{float32(i + 1), 1, 0},
		})
	}
	if err := index.Upsert(ctx, chunks); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	results, err := index.Query(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected topK=2 results, got %d", len(results))
	}
}

func TestMemoryIndexDeleteBySource(t *testing.T) {
	ctx := context.Background()
	index := rag.NewMemoryIndex()

	chunks := []rag.DocumentChunk{
		{ID: "a1", Source: "a.md", Vector: []float32{1, 0}},
		{ID: "b1", Source: "b.md", Vector: []float32{0, 1}},
		{ID: "a2", Source: "a.md", Vector: []float32{1, 1}},
	}
	if err := index.Upsert(ctx, chunks); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	if err := index.DeleteBySource(ctx, "a.md"); err != nil {
		t.Fatalf("DeleteBySource failed: %v", err)
	}

	sources, err := index.Sources(ctx)
	if err != nil {
		t.Fatalf("Sources failed: %v", err)
	}
	if len(sources) != 1 || sources[0] != "b.md" {
		t.Fatalf("expected only b.md to remain, got %v", sources)
	}

	// Deleted IDs can be re-inserted.
	if err := index.Upsert(ctx, chunks[:1]); err != nil {
		t.Fatalf("re-Upsert failed: %v", err)
	}
	stats, err := index.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.VectorCount != 2 {
		t.Fatalf("expected 2 vectors, got %d", stats.VectorCount)
	}
}

func TestMemoryIndexSourcesFirstSeenOrder(t *testing.T) {
	ctx := context.Background()
	index := rag.NewMemoryIndex()

	chunks := []rag.DocumentChunk{
		{ID: "1", Source: "second.md", Vector: []float32{1}},
		{ID: "2", Source: "first.md", Vector: []float32{1}},
		{ID: "3", Source: "second.md", Vector: []float32{1}},
	}
	if err := index.Upsert(ctx, chunks); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	sources, err := index.Sources(ctx)
	if err != nil {
		t.Fatalf("Sources failed: %v", err)
	}
	want := []string{"second.md", "first.md"}
	if len(sources) != len(want) {
		t.Fatalf("expected %v, got %v", want, sources)
	}
	for i := range want {
		if sources[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, sources)
		}
	}
}

func TestMemoryIndexDeleteAll(t *testing.T) {
	ctx := context.Background()
	index := rag.NewMemoryIndex()

	if err := index.Upsert(ctx, []rag.DocumentChunk{
		{ID: "1", Source: "a.md", Vector: []float32{1}},
	}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	if err := index.DeleteAll(ctx); err != nil {
		t.Fatalf("DeleteAll failed: %v", err)
	}

	stats, err := index.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.VectorCount != 0 {
		t.Fatalf("expected empty index, got %d vectors", stats.VectorCount)
	}
}
