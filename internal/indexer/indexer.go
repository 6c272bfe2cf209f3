// Package indexer orchestrates end-to-end indexing of a document
// directory: discovery, chunking, embedding in batches, store insertion,
// and re-index avoidance via a corpus fingerprint.
package indexer

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"ragstore/internal/docreader"
	"ragstore/internal/domain"
)

const defaultBatchSize = 32

// IndexingError reports a run aborted mid-way. Chunks counted by Indexed
// were durably stored before the failure and remain valid; the caller
// decides whether to retry the remainder.
type IndexingError struct {
	Indexed int
	Err     error
}

func (e *IndexingError) Error() string {
	return fmt.Sprintf("indexer: aborted after %d chunks stored: %v", e.Indexed, e.Err)
}

func (e *IndexingError) Unwrap() error { return e.Err }

// Options tunes a Manager.
type Options struct {
	// BatchSize bounds memory and embedding-call size. Defaults to 32.
	BatchSize int
	// StatePath is where the corpus fingerprint is kept. Defaults to
	// <store persist dir>/corpus.fp.
	StatePath string
	// Summarizer, when set, produces a corpus overview on each full run.
	Summarizer domain.Summarizer
	// MaxSummary caps the overview length in sentences.
	MaxSummary int
}

// Manager drives the chunk → embed → store pipeline.
type Manager struct {
	chunker   domain.Chunker
	embedder  domain.Embedder
	store     domain.VectorStore
	readers   *docreader.Registry
	batchSize int
	statePath string

	summarizer domain.Summarizer
	maxSummary int
	summary    string
}

// New creates a Manager. readers may be nil for the default registry.
func New(chunker domain.Chunker, embedder domain.Embedder, store domain.VectorStore, readers *docreader.Registry, opts Options) *Manager {
	if readers == nil {
		readers = docreader.NewRegistry()
	}
	batch := opts.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	statePath := opts.StatePath
	if statePath == "" {
		statePath = filepath.Join(store.Stats().PersistDir, "corpus.fp")
	}
	return &Manager{
		chunker:    chunker,
		embedder:   embedder,
		store:      store,
		readers:    readers,
		batchSize:  batch,
		statePath:  statePath,
		summarizer: opts.Summarizer,
		maxSummary: opts.MaxSummary,
	}
}

// Summary returns the corpus overview from the last full indexing run,
// or "" if the last call skipped re-indexing or no summarizer is set.
func (m *Manager) Summary() string { return m.summary }

// IndexDirectory indexes every supported document under dir and returns
// the number of chunks now in the store. With force false and an
// unchanged corpus fingerprint it is an idempotent no-op that performs no
// embedding calls. A provider or store failure mid-run aborts and returns
// *IndexingError; batches stored before the failure are kept.
func (m *Manager) IndexDirectory(ctx context.Context, dir string, force bool) (int, error) {
	run := uuid.New().String()[:8]

	files, err := m.discover(dir)
	if err != nil {
		return 0, err
	}
	fp, err := fingerprint(files)
	if err != nil {
		return 0, err
	}

	if !force && m.store.Count() > 0 && fp == m.lastFingerprint() {
		log.Printf("[index %s] corpus unchanged, keeping %d chunks", run, m.store.Count())
		// trainable embedders still need their corpus pass for querying
		if m.embedder.Dimension() == 0 {
			if err := m.prepareFromFiles(files); err != nil {
				return 0, err
			}
		}
		return m.store.Count(), nil
	}

	docs, err := m.loadDocuments(files)
	if err != nil {
		return 0, err
	}
	chunks, texts, err := m.chunkAll(docs)
	if err != nil {
		return 0, err
	}
	log.Printf("[index %s] %d documents, %d chunks from %s", run, len(docs), len(chunks), dir)

	if len(chunks) == 0 {
		if m.store.Count() > 0 {
			if err := m.store.Clear(); err != nil {
				return 0, err
			}
		}
		m.summary = ""
		return 0, m.writeFingerprint(fp)
	}

	if err := m.embedder.Prepare(texts); err != nil {
		return 0, err
	}
	// Re-indexing a changed corpus replaces the store wholesale. A store
	// built with a different embedding model must never receive vectors of
	// the new dimensionality on top of the old ones.
	if m.store.Count() > 0 {
		if d, st := m.embedder.Dimension(), m.store.Stats(); d > 0 && st.Dimension > 0 && d != st.Dimension {
			log.Printf("[index %s] dimensionality changed %d -> %d, clearing store", run, st.Dimension, d)
		}
		if err := m.store.Clear(); err != nil {
			return 0, err
		}
	}

	indexed := 0
	for start := 0; start < len(chunks); start += m.batchSize {
		end := start + m.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		batchTexts := texts[start:end]

		vectors, err := m.embedder.Embed(ctx, batchTexts)
		if err != nil {
			return indexed, &IndexingError{Indexed: indexed, Err: err}
		}
		ids := make([]string, len(batch))
		metas := make([]domain.Metadata, len(batch))
		for i, c := range batch {
			ids[i] = c.ID
			metas[i] = c.Meta
		}
		if err := m.store.Add(ids, batchTexts, vectors, metas); err != nil {
			return indexed, &IndexingError{Indexed: indexed, Err: err}
		}
		indexed += len(batch)
	}

	if m.summarizer != nil {
		var corpus strings.Builder
		for _, d := range docs {
			corpus.WriteString(d.Content)
			corpus.WriteString("\n")
		}
		if summary, err := m.summarizer.Summarize(corpus.String(), m.maxSummary); err == nil {
			m.summary = summary
		}
	}
	if err := m.writeFingerprint(fp); err != nil {
		return indexed, err
	}
	log.Printf("[index %s] indexed %d chunks", run, indexed)
	return indexed, nil
}

// discover lists supported files under dir, sorted by path. Files without
// a registered reader are skipped, not errors.
func (m *Manager) discover(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("indexer: cannot read directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("indexer: %s is not a directory", dir)
	}
	var files []string
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !m.readers.Supported(path) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func (m *Manager) loadDocuments(files []string) ([]domain.Document, error) {
	docs := make([]domain.Document, 0, len(files))
	for _, path := range files {
		content, err := m.readers.Read(path)
		if err != nil {
			return nil, err
		}
		docs = append(docs, domain.Document{ID: hashString(path), Path: path, Content: content})
	}
	return docs, nil
}

func (m *Manager) chunkAll(docs []domain.Document) ([]domain.Chunk, []string, error) {
	var chunks []domain.Chunk
	var texts []string
	for _, doc := range docs {
		cs, err := m.chunker.Chunk(doc)
		if err != nil {
			return nil, nil, err
		}
		chunks = append(chunks, cs...)
		for _, c := range cs {
			texts = append(texts, c.Text)
		}
	}
	return chunks, texts, nil
}

func (m *Manager) prepareFromFiles(files []string) error {
	docs, err := m.loadDocuments(files)
	if err != nil {
		return err
	}
	_, texts, err := m.chunkAll(docs)
	if err != nil {
		return err
	}
	if len(texts) == 0 {
		return nil
	}
	return m.embedder.Prepare(texts)
}

// fingerprint hashes each file's path, size and mtime. Content is not
// read; a touched-but-identical file re-indexes, which is acceptable.
func fingerprint(files []string) (string, error) {
	h := sha1.New()
	for _, path := range files {
		info, err := os.Stat(path)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(h, "%s|%d|%d\n", path, info.Size(), info.ModTime().UnixNano())
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (m *Manager) lastFingerprint() string {
	data, err := os.ReadFile(m.statePath)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (m *Manager) writeFingerprint(fp string) error {
	if err := os.MkdirAll(filepath.Dir(m.statePath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(m.statePath, []byte(fp+"\n"), 0o644)
}

func hashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:8])
}
