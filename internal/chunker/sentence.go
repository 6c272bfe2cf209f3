package chunker

import (
	"fmt"
	"strconv"
	"strings"

	"ragstore/internal/domain"
	"ragstore/internal/textutil"
)

// Sentence groups whole sentences into chunks with sentence-level overlap.
// Useful for prose where cutting mid-sentence hurts retrieval quality.
type Sentence struct {
	perChunk int
	overlap  int
}

// NewSentence creates a sentence-based chunker.
func NewSentence(perChunk, overlap int) (*Sentence, error) {
	if perChunk <= 0 {
		return nil, fmt.Errorf("chunker: sentences per chunk must be positive, got %d", perChunk)
	}
	if overlap < 0 || overlap >= perChunk {
		return nil, fmt.Errorf("chunker: sentence overlap must be in [0, per-chunk), got %d with per-chunk %d", overlap, perChunk)
	}
	return &Sentence{perChunk: perChunk, overlap: overlap}, nil
}

// Chunk splits the document into runs of perChunk sentences, consecutive
// runs sharing overlap sentences.
func (c *Sentence) Chunk(document domain.Document) ([]domain.Chunk, error) {
	sentences := textutil.Sentences(document.Content)
	if len(sentences) == 0 {
		return nil, nil
	}
	step := c.perChunk - c.overlap
	var chunks []domain.Chunk
	for start := 0; start < len(sentences); start += step {
		end := start + c.perChunk
		if end > len(sentences) {
			end = len(sentences)
		}
		idx := len(chunks)
		chunks = append(chunks, domain.Chunk{
			ID:   document.ID + ":" + strconv.Itoa(idx),
			Text: strings.Join(sentences[start:end], " "),
			Meta: domain.Metadata{Source: document.Path, ChunkIndex: idx},
		})
		if end == len(sentences) {
			break
		}
	}
	return chunks, nil
}
