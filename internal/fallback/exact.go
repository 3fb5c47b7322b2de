package fallback

import (
	"context"
	"fmt"
	"sort"
)

// ExactSearcher performs brute-force cosine similarity search over an
// in-memory matrix of precomputed, L2-normalized corpus vectors. With unit
// vectors, cosine similarity reduces to a dot product.
//
// Deterministic by construction: equal similarities keep corpus order
// (stable sort over corpus indices).
type ExactSearcher struct {
	ids     []string
	vectors [][]float32
}

// NewExactSearcher creates an exact searcher. ids and vectors are parallel;
// vectors must all share one dimension and be L2-normalized already.
func NewExactSearcher(ids []string, vectors [][]float32) (*ExactSearcher, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: empty corpus", ErrInvalidConfig)
	}
	if len(ids) != len(vectors) {
		return nil, fmt.Errorf("%w: %d ids but %d vectors", ErrInvalidConfig, len(ids), len(vectors))
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: zero-dimension vectors", ErrInvalidConfig)
	}
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, want %d", ErrInvalidConfig, i, len(v), dim)
		}
	}
	return &ExactSearcher{ids: ids, vectors: vectors}, nil
}

// Search implements Searcher.
func (s *ExactSearcher) Search(_ context.Context, queryVec []float32, topK int) ([]string, error) {
	if len(queryVec) != len(s.vectors[0]) {
		return nil, fmt.Errorf("%w: query dimension %d, corpus dimension %d",
			ErrInvalidConfig, len(queryVec), len(s.vectors[0]))
	}

	sims := make([]float32, len(s.vectors))
	for i, v := range s.vectors {
		sims[i] = dot(queryVec, v)
	}

	order := make([]int, len(s.vectors))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return sims[order[a]] > sims[order[b]]
	})

	if topK > len(order) {
		topK = len(order)
	}
	ids := make([]string, topK)
	for i := 0; i < topK; i++ {
		ids[i] = s.ids[order[i]]
	}
	return ids, nil
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Ensure ExactSearcher implements Searcher.
var _ Searcher = (*ExactSearcher)(nil)
