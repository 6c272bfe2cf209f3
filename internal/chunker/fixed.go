// Package chunker splits documents into overlapping windows for indexing.
package chunker

import (
	"fmt"
	"strconv"

	"ragstore/internal/domain"
)

// Fixed splits text into fixed-size character windows with overlap.
// Deterministic: identical input always yields identical chunks, which is
// what makes fingerprint-based re-index skipping safe upstream.
type Fixed struct {
	size    int
	overlap int
}

// NewFixed creates a fixed-window chunker. size must be positive and
// overlap must satisfy 0 <= overlap < size; anything else is a
// configuration error reported at construction time.
func NewFixed(size, overlap int) (*Fixed, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunker: chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunker: overlap must be in [0, size), got %d with size %d", overlap, size)
	}
	return &Fixed{size: size, overlap: overlap}, nil
}

// Chunk splits the document into windows of size characters, consecutive
// windows overlapping by overlap characters. The last window may be
// shorter. An empty document yields no chunks.
func (c *Fixed) Chunk(document domain.Document) ([]domain.Chunk, error) {
	runes := []rune(document.Content)
	if len(runes) == 0 {
		return nil, nil
	}
	step := c.size - c.overlap
	var chunks []domain.Chunk
	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		idx := len(chunks)
		chunks = append(chunks, domain.Chunk{
			ID:   document.ID + ":" + strconv.Itoa(idx),
			Text: string(runes[start:end]),
			Meta: domain.Metadata{Source: document.Path, ChunkIndex: idx},
		})
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}
