package corpus

import (
	"strings"
)

const (
	// DefaultChunkSize is the maximum number of characters per chunk.
	DefaultChunkSize = 1000

	// DefaultChunkOverlap is the number of characters shared between
	// consecutive chunks so context survives chunk boundaries.
	DefaultChunkOverlap = 200
)

// Chunker splits source text into overlapping fixed-size windows,
// preferring to end each window at a sentence boundary.
type Chunker struct {
	// size is the maximum chunk length in characters.
	size int

	// overlap is the number of characters repeated between chunks.
	overlap int
}

// NewChunker constructs a Chunker with the given size and overlap.
// Non-positive size falls back to DefaultChunkSize; an overlap that is
// negative or not smaller than size falls back to size/5.
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 5
	}
	return &Chunker{size: size, overlap: overlap}
}

// Chunk splits text into overlapping chunks. Text that fits in a single
// window is returned as one chunk; empty or whitespace-only text yields nil.
//
// Each window is trimmed back to the nearest sentence end ('.', then '!'
// or '?') when one occurs past the midpoint of the window, so chunks tend
// to end on complete sentences rather than mid-word.
func (c *Chunker) Chunk(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= c.size {
		return []string{text}
	}

	var chunks []string
	start := 0

	for start < len(text) {
		end := start + c.size
		if end >= len(text) {
			end = len(text)
		} else {
			end = c.sentenceEnd(text, start, end)
		}

		if chunk := strings.TrimSpace(text[start:end]); chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end == len(text) {
			break
		}

		// Advance by a full window minus overlap, but never move backwards
		// past the overlap tail of the window just emitted.
		next := start + c.size - c.overlap
		if tail := end - c.overlap; tail > next {
			next = tail
		}
		if next <= start {
			next = start + 1
		}
		start = next
	}

	return chunks
}

// sentenceEnd returns the best cut position in (start, end] for a window,
// preferring a '.' past the window midpoint, then '!' or '?'.
func (c *Chunker) sentenceEnd(text string, start, end int) int {
	mid := start + c.size/2

	if dot := strings.LastIndexByte(text[start:end], '.'); dot >= 0 && start+dot > mid {
		return start + dot + 1
	}

	bang := strings.LastIndexByte(text[start:end], '!')
	if q := strings.LastIndexByte(text[start:end], '?'); q > bang {
		bang = q
	}
	if bang >= 0 && start+bang > mid {
		return start + bang + 1
	}

	return end
}
