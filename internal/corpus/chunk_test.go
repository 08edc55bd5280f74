package corpus

import (
	"strings"
	"testing"
)

// TestChunker_EmptyText verifies that empty or whitespace-only input
// produces no chunks.
func TestChunker_EmptyText(t *testing.T) {
	t.Parallel()

	c := NewChunker(100, 20)
	if got := c.Chunk(""); got != nil {
		t.Errorf("expected nil chunks for empty text, got %v", got)
	}
	if got := c.Chunk("   \n\t  "); got != nil {
		t.Errorf("expected nil chunks for whitespace text, got %v", got)
	}
}

// TestChunker_ShortText verifies that text fitting in one window comes back
// as a single trimmed chunk.
func TestChunker_ShortText(t *testing.T) {
	t.Parallel()

	c := NewChunker(100, 20)
	got := c.Chunk("  a short note about retrieval  ")
	if len(got) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(got))
	}
	if got[0] != "a short note about retrieval" {
		t.Errorf("expected trimmed text, got %q", got[0])
	}
}

// TestChunker_SentenceBoundary verifies that a window ending is pulled back
// to a sentence end when one occurs past the window midpoint.
func TestChunker_SentenceBoundary(t *testing.T) {
	t.Parallel()

	c := NewChunker(100, 20)
	text := strings.Repeat("a", 80) + ". " + strings.Repeat("b", 120)

	chunks := c.Chunk(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	if !strings.HasSuffix(chunks[0], ".") {
		t.Errorf("expected first chunk to end at the sentence boundary, got %q", chunks[0])
	}
	for i, chunk := range chunks {
		if len(chunk) > 100 {
			t.Errorf("chunk %d exceeds window size: %d chars", i, len(chunk))
		}
	}
}

// TestChunker_Overlap verifies that consecutive chunks share the configured
// overlap so context survives chunk boundaries.
func TestChunker_Overlap(t *testing.T) {
	t.Parallel()

	c := NewChunker(100, 20)
	// No sentence punctuation or spaces, so windows cut at exactly the
	// window size and every position is distinguishable.
	var sb strings.Builder
	for i := 0; i < 250; i++ {
		sb.WriteByte(byte('a' + i%26))
	}
	text := sb.String()

	chunks := c.Chunk(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		tail := chunks[i-1][len(chunks[i-1])-20:]
		if !strings.HasPrefix(chunks[i], tail) {
			t.Errorf("chunk %d does not start with the overlap tail of chunk %d", i, i-1)
		}
	}
}

// TestChunker_Deterministic verifies that chunking the same text twice
// yields identical output.
func TestChunker_Deterministic(t *testing.T) {
	t.Parallel()

	c := NewChunker(120, 30)
	text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 20)

	first := c.Chunk(text)
	second := c.Chunk(text)
	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

// TestNewChunker_Defaults verifies the fallback behavior for degenerate
// size and overlap values.
func TestNewChunker_Defaults(t *testing.T) {
	t.Parallel()

	c := NewChunker(0, -1)
	if c.size != DefaultChunkSize {
		t.Errorf("expected default size %d, got %d", DefaultChunkSize, c.size)
	}
	if c.overlap != DefaultChunkSize/5 {
		t.Errorf("expected fallback overlap %d, got %d", DefaultChunkSize/5, c.overlap)
	}

	// Overlap >= size would never advance; it must fall back too.
	c = NewChunker(100, 100)
	if c.overlap != 20 {
		t.Errorf("expected fallback overlap 20, got %d", c.overlap)
	}
}
