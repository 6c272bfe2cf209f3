// Package service exposes the retrieval API consumed by the UI layer:
// similarity search, indexing, clearing and stats.
package service

import (
	"context"
	"fmt"

	"ragstore/internal/domain"
	"ragstore/internal/indexer"
)

// RAG is a thin façade over the embedder, the vector store and the index
// manager. Query embeddings are not cached; every call re-embeds.
type RAG struct {
	embedder domain.Embedder
	store    domain.VectorStore
	manager  *indexer.Manager
	docsDir  string
}

// New creates the façade.
func New(embedder domain.Embedder, store domain.VectorStore, manager *indexer.Manager, docsDir string) *RAG {
	return &RAG{embedder: embedder, store: store, manager: manager, docsDir: docsDir}
}

// SimilaritySearch returns the k stored chunks most similar to query.
func (s *RAG) SimilaritySearch(ctx context.Context, query string, k int) ([]domain.Chunk, error) {
	results, err := s.SimilaritySearchWithScore(ctx, query, k)
	if err != nil {
		return nil, err
	}
	chunks := make([]domain.Chunk, len(results))
	for i, r := range results {
		chunks[i] = r.Chunk
	}
	return chunks, nil
}

// SimilaritySearchWithScore returns the k most similar chunks with their
// cosine similarity scores. A query that embeds to the zero vector (no
// known tokens) yields no results rather than arbitrary ranking.
func (s *RAG) SimilaritySearchWithScore(ctx context.Context, query string, k int) ([]domain.SearchResult, error) {
	if s.store.Count() == 0 {
		return nil, nil
	}
	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("service: query embedding failed: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("service: expected 1 query vector, got %d", len(vectors))
	}
	vec := vectors[0]
	if isZero(vec) {
		return nil, nil
	}
	return s.store.Search(vec, k)
}

// IndexDocuments indexes the configured documents directory.
func (s *RAG) IndexDocuments(ctx context.Context, force bool) (int, error) {
	return s.manager.IndexDirectory(ctx, s.docsDir, force)
}

// CorpusOverview returns the summary produced by the last full index run.
func (s *RAG) CorpusOverview() string { return s.manager.Summary() }

// ClearIndex drops all stored entries.
func (s *RAG) ClearIndex() error { return s.store.Clear() }

// Stats reports the store's current state.
func (s *RAG) Stats() domain.StoreStats { return s.store.Stats() }

func isZero(vec []float64) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}
