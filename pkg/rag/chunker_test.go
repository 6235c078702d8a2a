package rag_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/blacksky-llc/maurice-go/pkg/rag"
)

func TestChunkDeterministic(t *testing.T) {
	chunker := rag.NewChunker(100, 20)
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 20)

	first := chunker.Chunk(text, "doc.md")
	second := chunker.Chunk(text, "doc.md")

	if len(first) == 0 {
		t.Fatalf("expected chunks, got none")
	}
	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("chunk %d id differs: %s vs %s", i, first[i].ID, second[i].ID)
		}
		if first[i].Content != second[i].Content {
			t.Fatalf("chunk %d content differs", i)
		}
	}
}

func TestChunkIDsScopedToSource(t *testing.T) {
	chunker := rag.NewChunker(100, 20)
	text := strings.Repeat("Some sentence here. ", 20)

	a := chunker.Chunk(text, "a.md")
	b := chunker.Chunk(text, "b.md")

	if a[0].ID == b[0].ID {
		t.Fatalf("chunks from different sources must not share ids")
	}
}

func TestChunkSentenceBoundary(t *testing.T) {
	chunker := rag.NewChunker(100, 10)
	// A sentence terminator sits in the second half of the first window,
	// so the first chunk should end at it rather than mid-word.
	text := "First sentence padding padding padding padding padding. Second part continues with more words that overflow the window size considerably here."

	chunks := chunker.Chunk(text, "doc.txt")
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	if !strings.HasSuffix(chunks[0].Content, ".") {
		t.Fatalf("first chunk should end at sentence boundary, got %q", chunks[0].Content)
	}
}

func TestChunkOverlap(t *testing.T) {
	chunker := rag.NewChunker(50, 10)
	text := strings.Repeat("abcdefghij", 20) // no break points, hard cuts

	chunks := chunker.Chunk(text, "doc.txt")
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	// Consecutive chunks share a trailing/leading overlap region.
	tail := chunks[0].Content[len(chunks[0].Content)-10:]
	if !strings.HasPrefix(chunks[1].Content, tail) {
		t.Fatalf("chunk 1 does not start with chunk 0 tail: %q vs %q", tail, chunks[1].Content[:10])
	}
}

func TestChunkProgressWithLargeOverlap(t *testing.T) {
	// Overlap larger than half the window: a sentence boundary cut can
	// land exactly at start+overlap, so the window must still advance.
	chunker := rag.NewChunker(10, 8)
	text := strings.Repeat("aaaaaaa.", 40)

	chunks := chunker.Chunk(text, "doc.txt")
	if len(chunks) == 0 {
		t.Fatalf("expected chunks, got none")
	}
	// Every iteration must consume at least one byte.
	if len(chunks) > len(text) {
		t.Fatalf("chunk count %d exceeds input length %d", len(chunks), len(text))
	}
	last := chunks[len(chunks)-1]
	if !strings.HasSuffix(text, last.Content) {
		t.Fatalf("last chunk should cover the input tail, got %q", last.Content)
	}
}

func TestChunkRuneBoundaries(t *testing.T) {
	chunker := rag.NewChunker(50, 10)
	// Three-byte runes with no ASCII break points: hard cuts at 50 bytes
	// would land mid-rune without boundary alignment.
	text := strings.Repeat("维基百科条目内容", 30)

	chunks := chunker.Chunk(text, "doc.md")
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if !utf8.ValidString(c.Content) {
			t.Fatalf("chunk %d contains invalid UTF-8: %q", i, c.Content)
		}
	}
}

func TestChunkStripsMarkup(t *testing.T) {
	chunker := rag.NewChunker(500, 50)
	text := "# Heading\n\nBody text under the heading.\n\n---\n\nMore body text."

	chunks := chunker.Chunk(text, "doc.md")
	if len(chunks) == 0 {
		t.Fatalf("expected chunks, got none")
	}
	for _, c := range chunks {
		if strings.Contains(c.Content, "#") {
			t.Fatalf("heading marker leaked into chunk: %q", c.Content)
		}
		if strings.Contains(c.Content, "---") {
			t.Fatalf("separator leaked into chunk: %q", c.Content)
		}
	}
	if !strings.Contains(chunks[0].Content, "Heading") {
		t.Fatalf("heading text should be kept: %q", chunks[0].Content)
	}
}

func TestChunkBlankInput(t *testing.T) {
	chunker := rag.NewChunker(100, 10)

	if got := chunker.Chunk("", "doc.txt"); len(got) != 0 {
		t.Fatalf("expected no chunks for empty input, got %d", len(got))
	}
	if got := chunker.Chunk("   \n\t  ", "doc.txt"); len(got) != 0 {
		t.Fatalf("expected no chunks for whitespace input, got %d", len(got))
	}
}

func TestChunkShortInputSingleChunk(t *testing.T) {
	chunker := rag.NewChunker(500, 50)
	chunks := chunker.Chunk("short document", "doc.txt")

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Content != "short document" {
		t.Fatalf("unexpected content: %q", chunks[0].Content)
	}
	if chunks[0].Index != 0 {
		t.Fatalf("expected index 0, got %d", chunks[0].Index)
	}
}
