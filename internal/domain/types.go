package domain

import "context"

// Document represents a single source file loaded into the system.
type Document struct {
	ID      string
	Path    string
	Content string
}

// Metadata is the closed set of fields every stored chunk carries.
// Extra holds optional fields attached by readers without a schema change.
type Metadata struct {
	Source     string            `json:"source"`
	ChunkIndex int               `json:"chunk_index"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Chunk is a bounded text window extracted from a document, the unit of
// embedding and retrieval.
type Chunk struct {
	ID   string
	Text string
	Meta Metadata
}

// SearchResult pairs a stored chunk with its cosine similarity to a query.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// StoreStats describes the current state of a vector store.
type StoreStats struct {
	TotalDocuments int
	PersistDir     string
	Dimension      int
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// Embedder converts batches of text into fixed-length vectors.
// Implementations may require a preparation phase over the corpus;
// remote embedders treat Prepare as a no-op. Dimension returns 0 until
// the dimensionality is known.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// VectorStore durably persists vectors with co-located text and metadata
// and ranks them by cosine similarity. Add and Clear are serialized by the
// implementation; Search and Count may run concurrently.
type VectorStore interface {
	Add(ids []string, texts []string, vectors [][]float64, metas []Metadata) error
	Search(vector []float64, k int) ([]SearchResult, error)
	Clear() error
	Count() int
	Stats() StoreStats
}

// Summarizer produces a brief overview of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
