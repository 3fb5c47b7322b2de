package fallback

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEmbedder returns a fixed unit vector for any query.
type stubEmbedder struct {
	vec []float32
}

func (e *stubEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	return e.vec, nil
}

// Corpus of four unit vectors along distinct directions. A query along the
// first axis ranks d1 closest, then d4 (diagonal), then d2 and d3.
var (
	corpusIDs     = []string{"d1", "d2", "d3", "d4"}
	corpusVectors = [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
		{0.70710678, 0.70710678, 0},
	}
	axisQuery = []float32{1, 0, 0}
)

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	searcher, err := NewExactSearcher(corpusIDs, corpusVectors)
	require.NoError(t, err)
	resolver, err := NewResolver(&stubEmbedder{vec: axisQuery}, searcher, corpusIDs, nil)
	require.NoError(t, err)
	return resolver
}

func TestResolverCorrectIDAlreadyPresent(t *testing.T) {
	resolver := newTestResolver(t)

	ids, err := resolver.Resolve(context.Background(), "q", "d1", 2)
	require.NoError(t, err)

	// d1 is the nearest neighbor: exactly topK results, no duplicate.
	assert.Equal(t, []string{"d1", "d4"}, ids)
	assert.Equal(t, 1, occurrences(ids, "d1"))
}

func TestResolverInjectsMissingCorrectID(t *testing.T) {
	resolver := newTestResolver(t)

	ids, err := resolver.Resolve(context.Background(), "q", "d3", 2)
	require.NoError(t, err)

	// d3 is orthogonal to the query and misses the top-2, so it is appended:
	// topK+1 results with the correct id exactly once, at the tail.
	assert.Equal(t, []string{"d1", "d4", "d3"}, ids)
	assert.Equal(t, 1, occurrences(ids, "d3"))
}

func TestResolverUnknownCorrectID(t *testing.T) {
	resolver := newTestResolver(t)

	_, err := resolver.Resolve(context.Background(), "q", "nope", 2)
	require.ErrorIs(t, err, ErrUnknownDocument)
}

func TestResolverInvalidTopK(t *testing.T) {
	resolver := newTestResolver(t)

	_, err := resolver.Resolve(context.Background(), "q", "d1", 0)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestExactSearcherOrdersBySimilarity(t *testing.T) {
	searcher, err := NewExactSearcher(corpusIDs, corpusVectors)
	require.NoError(t, err)

	ids, err := searcher.Search(context.Background(), axisQuery, 4)
	require.NoError(t, err)

	// d1 (sim 1.0), d4 (~0.707), then d2 and d3 (both 0) in corpus order.
	assert.Equal(t, []string{"d1", "d4", "d2", "d3"}, ids)
}

func TestExactSearcherStableTieOrder(t *testing.T) {
	// All corpus vectors orthogonal to the query: every similarity is 0 and
	// the result must follow corpus iteration order.
	ids := []string{"a", "b", "c"}
	vectors := [][]float32{{0, 1}, {0, -1}, {0, 1}}
	searcher, err := NewExactSearcher(ids, vectors)
	require.NoError(t, err)

	got, err := searcher.Search(context.Background(), []float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestExactSearcherTopKClamped(t *testing.T) {
	searcher, err := NewExactSearcher(corpusIDs, corpusVectors)
	require.NoError(t, err)

	ids, err := searcher.Search(context.Background(), axisQuery, 100)
	require.NoError(t, err)
	assert.Len(t, ids, len(corpusIDs))
}

func TestExactSearcherDimensionMismatch(t *testing.T) {
	searcher, err := NewExactSearcher(corpusIDs, corpusVectors)
	require.NoError(t, err)

	_, err = searcher.Search(context.Background(), []float32{1, 0}, 2)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewExactSearcherValidation(t *testing.T) {
	_, err := NewExactSearcher(nil, nil)
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewExactSearcher([]string{"a"}, [][]float32{{1}, {0}})
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewExactSearcher([]string{"a", "b"}, [][]float32{{1, 0}, {1}})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func occurrences(ids []string, id string) int {
	n := 0
	for _, candidate := range ids {
		if candidate == id {
			n++
		}
	}
	return n
}
