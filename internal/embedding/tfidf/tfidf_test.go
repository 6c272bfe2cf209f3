package tfidf

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var corpus = []string{
	"cats chase mice around barns",
	"dogs chase cats around yards",
	"compilers translate source code",
}

func TestEmbedder_RequiresPrepare(t *testing.T) {
	e := NewEmbedder()
	assert.Equal(t, 0, e.Dimension())
	_, err := e.Embed(context.Background(), []string{"anything"})
	assert.Error(t, err)
}

func TestEmbedder_PrepareAndEmbed(t *testing.T) {
	e := NewEmbedder()
	require.NoError(t, e.Prepare(corpus))
	require.Greater(t, e.Dimension(), 0)

	vecs, err := e.Embed(context.Background(), corpus)
	require.NoError(t, err)
	require.Len(t, vecs, len(corpus))
	for _, v := range vecs {
		require.Len(t, v, e.Dimension())
		norm := 0.0
		for _, x := range v {
			norm += x * x
		}
		assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-9)
	}
}

func TestEmbedder_UnknownTokensEmbedToZero(t *testing.T) {
	e := NewEmbedder()
	require.NoError(t, e.Prepare(corpus))

	vecs, err := e.Embed(context.Background(), []string{"zzz qqq xxx"})
	require.NoError(t, err)
	for _, x := range vecs[0] {
		assert.Zero(t, x)
	}
}

func TestEmbedder_DeterministicVocabulary(t *testing.T) {
	a := NewEmbedder()
	b := NewEmbedder()
	require.NoError(t, a.Prepare(corpus))
	require.NoError(t, b.Prepare(corpus))
	assert.Equal(t, a.Dimension(), b.Dimension())

	va, err := a.Embed(context.Background(), []string{corpus[0]})
	require.NoError(t, err)
	vb, err := b.Embed(context.Background(), []string{corpus[0]})
	require.NoError(t, err)
	assert.Equal(t, va, vb)
}

func TestEmbedder_EmptyCorpus(t *testing.T) {
	e := NewEmbedder()
	assert.Error(t, e.Prepare(nil))
}
