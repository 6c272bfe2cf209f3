// Package flat implements a persistent brute-force vector store.
//
// Similarity is an exact inner product over L2-normalized vectors, O(N·D)
// per query, which holds up to roughly 10⁵–10⁶ stored vectors. Beyond that
// an approximate index (inverted-file or graph-based) with a build step is
// needed, trading exact recall for sub-linear queries; this store does not
// implement one.
package flat

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"ragstore/internal/domain"
	"ragstore/internal/vectorstore"
)

const (
	indexFile = "index.vec"
	metaFile  = "metadata.json"

	fileMagic   = uint32(0x52414756) // "RAGV"
	fileVersion = uint32(1)
)

// Store keeps vectors and a parallel side-table of (id, text, metadata),
// joined by ordinal. Both are persisted to two co-located files after
// every mutation; a loaded pair whose entry counts disagree is corrupt.
type Store struct {
	mu      sync.RWMutex
	dir     string
	dim     int // 0 until the first Add fixes it
	vectors [][]float64
	chunks  []domain.Chunk
	ids     map[string]struct{}
}

type metaPayload struct {
	Dimension int         `json:"dimension"`
	Entries   []metaEntry `json:"entries"`
}

type metaEntry struct {
	ID       string          `json:"id"`
	Text     string          `json:"text"`
	Metadata domain.Metadata `json:"metadata"`
}

// Open creates a store persisting into dir, loading any existing index.
// A half-present or inconsistent artifact pair fails with ErrCorruptIndex;
// it is never deleted or repaired here.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, vectorstore.Wrap("open", err)
	}
	s := &Store{dir: dir, ids: make(map[string]struct{})}

	_, vecErr := os.Stat(s.indexPath())
	_, metaErr := os.Stat(s.metaPath())
	vecExists := vecErr == nil
	metaExists := metaErr == nil
	if !vecExists && !metaExists {
		return s, nil
	}
	if vecExists != metaExists {
		return nil, vectorstore.Wrap("open",
			fmt.Errorf("%w: artifact pair incomplete in %s", vectorstore.ErrCorruptIndex, dir))
	}
	if err := s.load(); err != nil {
		return nil, vectorstore.Wrap("open", err)
	}
	return s, nil
}

// Add appends entries and persists before returning. The first add on an
// empty store fixes the dimensionality for the store's lifetime (until
// Clear). Vectors are L2-normalized copies; callers' slices are not
// mutated. On any validation or persistence failure the store is left
// exactly as before the call.
func (s *Store) Add(ids []string, texts []string, vectors [][]float64, metas []domain.Metadata) error {
	if len(ids) != len(texts) || len(ids) != len(vectors) || len(ids) != len(metas) {
		return vectorstore.Wrap("add", vectorstore.ErrLengthMismatch)
	}
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dim := s.dim
	if dim == 0 {
		dim = len(vectors[0])
		if dim == 0 {
			return vectorstore.Wrap("add",
				fmt.Errorf("%w: empty vector", vectorstore.ErrDimensionMismatch))
		}
	}
	for i, v := range vectors {
		if len(v) != dim {
			return vectorstore.Wrap("add",
				fmt.Errorf("%w: vector %d has length %d, want %d", vectorstore.ErrDimensionMismatch, i, len(v), dim))
		}
	}
	batch := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := s.ids[id]; ok {
			return vectorstore.Wrap("add",
				fmt.Errorf("%w: %q", vectorstore.ErrDuplicateID, id))
		}
		if _, ok := batch[id]; ok {
			return vectorstore.Wrap("add",
				fmt.Errorf("%w: %q repeated within batch", vectorstore.ErrDuplicateID, id))
		}
		batch[id] = struct{}{}
	}

	prevDim, prevLen := s.dim, len(s.chunks)
	s.dim = dim
	for i, id := range ids {
		s.vectors = append(s.vectors, normalized(vectors[i]))
		s.chunks = append(s.chunks, domain.Chunk{ID: id, Text: texts[i], Meta: metas[i]})
	}
	if err := s.persist(); err != nil {
		// failed mutations must not leave entries disk does not have
		s.vectors = s.vectors[:prevLen]
		s.chunks = s.chunks[:prevLen]
		s.dim = prevDim
		return vectorstore.Wrap("add", err)
	}
	for id := range batch {
		s.ids[id] = struct{}{}
	}
	return nil
}

// Search returns the min(k, count) stored entries most similar to vector,
// ordered by descending cosine similarity, ties broken by insertion order.
func (s *Store) Search(vector []float64, k int) ([]domain.SearchResult, error) {
	if k <= 0 {
		return nil, vectorstore.Wrap("search", fmt.Errorf("k must be positive, got %d", k))
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.chunks) == 0 {
		return nil, nil
	}
	if len(vector) != s.dim {
		return nil, vectorstore.Wrap("search",
			fmt.Errorf("%w: query has length %d, want %d", vectorstore.ErrDimensionMismatch, len(vector), s.dim))
	}
	query := normalized(vector)
	scores := make([]float64, len(s.vectors))
	for i, v := range s.vectors {
		scores[i] = dot(v, query)
	}
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return scores[order[i]] > scores[order[j]] })
	if k > len(order) {
		k = len(order)
	}
	results := make([]domain.SearchResult, 0, k)
	for _, idx := range order[:k] {
		results = append(results, domain.SearchResult{Chunk: s.chunks[idx], Score: scores[idx]})
	}
	return results, nil
}

// Clear drops all entries and resets the dimensionality, so the next Add
// may establish a new one (supports switching embedding models). The empty
// state is persisted.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prevDim := s.dim
	prevVectors, prevChunks := s.vectors, s.chunks
	s.dim = 0
	s.vectors = nil
	s.chunks = nil
	if err := s.persist(); err != nil {
		s.dim = prevDim
		s.vectors = prevVectors
		s.chunks = prevChunks
		return vectorstore.Wrap("clear", err)
	}
	s.ids = make(map[string]struct{})
	return nil
}

// Count returns the number of stored entries.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Stats describes the store's current state.
func (s *Store) Stats() domain.StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.StoreStats{
		TotalDocuments: len(s.chunks),
		PersistDir:     s.dir,
		Dimension:      s.dim,
	}
}

func (s *Store) indexPath() string { return filepath.Join(s.dir, indexFile) }
func (s *Store) metaPath() string  { return filepath.Join(s.dir, metaFile) }

// persist writes both artifacts with write-temp-fsync-rename so readers
// never observe a partially written file. Caller holds the write lock.
func (s *Store) persist() error {
	var buf bytes.Buffer
	header := []uint32{fileMagic, fileVersion, uint32(s.dim), uint32(len(s.vectors))}
	for _, h := range header {
		if err := binary.Write(&buf, binary.LittleEndian, h); err != nil {
			return err
		}
	}
	for _, v := range s.vectors {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	if err := writeAtomic(s.indexPath(), buf.Bytes()); err != nil {
		return err
	}

	payload := metaPayload{Dimension: s.dim, Entries: make([]metaEntry, len(s.chunks))}
	for i, c := range s.chunks {
		payload.Entries[i] = metaEntry{ID: c.ID, Text: c.Text, Metadata: c.Meta}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return writeAtomic(s.metaPath(), data)
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.indexPath())
	if err != nil {
		return fmt.Errorf("%w: %v", vectorstore.ErrCorruptIndex, err)
	}
	r := bytes.NewReader(data)
	var magic, version, dim, count uint32
	for _, p := range []*uint32{&magic, &version, &dim, &count} {
		if err := binary.Read(r, binary.LittleEndian, p); err != nil {
			return fmt.Errorf("%w: truncated header", vectorstore.ErrCorruptIndex)
		}
	}
	if magic != fileMagic || version != fileVersion {
		return fmt.Errorf("%w: unrecognized index format", vectorstore.ErrCorruptIndex)
	}
	if r.Len() != int(count)*int(dim)*8 {
		return fmt.Errorf("%w: index payload size disagrees with header", vectorstore.ErrCorruptIndex)
	}
	vectors := make([][]float64, count)
	for i := range vectors {
		vectors[i] = make([]float64, dim)
		if err := binary.Read(r, binary.LittleEndian, vectors[i]); err != nil {
			return fmt.Errorf("%w: truncated vectors", vectorstore.ErrCorruptIndex)
		}
	}

	metaData, err := os.ReadFile(s.metaPath())
	if err != nil {
		return fmt.Errorf("%w: %v", vectorstore.ErrCorruptIndex, err)
	}
	var payload metaPayload
	if err := json.Unmarshal(metaData, &payload); err != nil {
		return fmt.Errorf("%w: unreadable metadata: %v", vectorstore.ErrCorruptIndex, err)
	}
	if len(payload.Entries) != int(count) {
		return fmt.Errorf("%w: %d vectors but %d metadata entries",
			vectorstore.ErrCorruptIndex, count, len(payload.Entries))
	}
	if payload.Dimension != int(dim) {
		return fmt.Errorf("%w: dimensionality disagrees between artifacts", vectorstore.ErrCorruptIndex)
	}

	chunks := make([]domain.Chunk, len(payload.Entries))
	ids := make(map[string]struct{}, len(payload.Entries))
	for i, e := range payload.Entries {
		if _, ok := ids[e.ID]; ok {
			return fmt.Errorf("%w: %v", vectorstore.ErrCorruptIndex, errors.New("duplicate id in metadata"))
		}
		ids[e.ID] = struct{}{}
		chunks[i] = domain.Chunk{ID: e.ID, Text: e.Text, Meta: e.Metadata}
	}
	s.dim = int(dim)
	s.vectors = vectors
	s.chunks = chunks
	s.ids = ids
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// normalized returns an L2-normalized copy of v. Zero vectors are copied
// as-is; they score 0 against everything.
func normalized(v []float64) []float64 {
	out := make([]float64, len(v))
	norm := 0.0
	for _, x := range v {
		norm += x * x
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		copy(out, v)
		return out
	}
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
