package indexer

import (
	"context"
	"crypto/sha1"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragstore/internal/chunker"
	"ragstore/internal/vectorstore/flat"
)

// fakeEmbedder produces deterministic vectors from the text content and
// counts calls, so tests can assert the no-embedding-on-skip property.
type fakeEmbedder struct {
	dim        int
	embedCalls int
	failAfter  int // when > 0, calls beyond this number fail
}

func (f *fakeEmbedder) Name() string { return "fake" }

func (f *fakeEmbedder) Prepare(corpus []string) error { return nil }

func (f *fakeEmbedder) Dimension() int { return f.dim }

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	f.embedCalls++
	if f.failAfter > 0 && f.embedCalls > f.failAfter {
		return nil, errors.New("provider unavailable")
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		h := sha1.Sum([]byte(t))
		v := make([]float64, f.dim)
		for j := range v {
			v[j] = float64(h[j%len(h)]) + 1
		}
		out[i] = v
	}
	return out, nil
}

type fixture struct {
	dir      string
	store    *flat.Store
	embedder *fakeEmbedder
	manager  *Manager
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	docs := t.TempDir()
	store, err := flat.Open(t.TempDir())
	require.NoError(t, err)
	ch, err := chunker.NewFixed(4, 2)
	require.NoError(t, err)
	emb := &fakeEmbedder{dim: 8}
	return &fixture{
		dir:      docs,
		store:    store,
		embedder: emb,
		manager:  New(ch, emb, store, nil, opts),
	}
}

func (f *fixture) writeDoc(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, name), []byte(content), 0o644))
}

func TestIndexDirectory_Basic(t *testing.T) {
	f := newFixture(t, Options{})
	f.writeDoc(t, "a.txt", "abcdefghij")

	n, err := f.manager.IndexDirectory(context.Background(), f.dir, false)
	require.NoError(t, err)
	assert.Equal(t, 4, n) // windows abcd cdef efgh ghij
	assert.Equal(t, 4, f.store.Count())
}

func TestIndexDirectory_IdempotentSkip(t *testing.T) {
	f := newFixture(t, Options{})
	f.writeDoc(t, "a.txt", "abcdefghij")

	first, err := f.manager.IndexDirectory(context.Background(), f.dir, false)
	require.NoError(t, err)
	callsAfterFirst := f.embedder.embedCalls

	second, err := f.manager.IndexDirectory(context.Background(), f.dir, false)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, callsAfterFirst, f.embedder.embedCalls, "skip run must perform no embedding calls")
}

func TestIndexDirectory_ForceReindex(t *testing.T) {
	f := newFixture(t, Options{})
	f.writeDoc(t, "a.txt", "abcdefghij")

	_, err := f.manager.IndexDirectory(context.Background(), f.dir, false)
	require.NoError(t, err)
	calls := f.embedder.embedCalls

	n, err := f.manager.IndexDirectory(context.Background(), f.dir, true)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Greater(t, f.embedder.embedCalls, calls)
	assert.Equal(t, 4, f.store.Count(), "force reindex must not duplicate entries")
}

func TestIndexDirectory_ChangedCorpusReindexes(t *testing.T) {
	f := newFixture(t, Options{})
	f.writeDoc(t, "a.txt", "abcdefghij")

	_, err := f.manager.IndexDirectory(context.Background(), f.dir, false)
	require.NoError(t, err)

	f.writeDoc(t, "a.txt", "abcdefghijklmn") // size change alters the fingerprint
	n, err := f.manager.IndexDirectory(context.Background(), f.dir, false)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, 6, f.store.Count())
}

func TestIndexDirectory_SkipsUnsupportedFiles(t *testing.T) {
	f := newFixture(t, Options{})
	f.writeDoc(t, "a.txt", "abcd")
	f.writeDoc(t, "b.pdf", "%PDF garbage")

	n, err := f.manager.IndexDirectory(context.Background(), f.dir, false)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestIndexDirectory_EmptyDirectory(t *testing.T) {
	f := newFixture(t, Options{})
	n, err := f.manager.IndexDirectory(context.Background(), f.dir, false)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestIndexDirectory_EmptiedCorpusClearsStore(t *testing.T) {
	f := newFixture(t, Options{})
	f.writeDoc(t, "a.txt", "abcdefghij")
	_, err := f.manager.IndexDirectory(context.Background(), f.dir, false)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(f.dir, "a.txt")))
	n, err := f.manager.IndexDirectory(context.Background(), f.dir, false)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, f.store.Count())
}

func TestIndexDirectory_PartialFailure(t *testing.T) {
	f := newFixture(t, Options{BatchSize: 2})
	f.writeDoc(t, "a.txt", "abcdefghij") // 4 chunks -> 2 batches of 2
	f.embedder.failAfter = 1

	n, err := f.manager.IndexDirectory(context.Background(), f.dir, false)
	require.Error(t, err)

	var ierr *IndexingError
	require.True(t, errors.As(err, &ierr))
	assert.Equal(t, 2, ierr.Indexed)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, f.store.Count(), "chunks stored before the failure are kept")

	// a failed run must not record the fingerprint: the next run retries
	f.embedder.failAfter = 0
	n, err = f.manager.IndexDirectory(context.Background(), f.dir, false)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 4, f.store.Count())
}

func TestIndexDirectory_MissingDirectory(t *testing.T) {
	f := newFixture(t, Options{})
	_, err := f.manager.IndexDirectory(context.Background(), filepath.Join(f.dir, "nope"), false)
	assert.Error(t, err)
}

func TestIndexingError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := &IndexingError{Indexed: 3, Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "3 chunks")
}
