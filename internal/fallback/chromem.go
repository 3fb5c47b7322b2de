package fallback

import (
	"context"
	"errors"
	"fmt"

	chromem "github.com/philippgille/chromem-go"
)

// chromemCollection is the single collection name used by the searcher.
const chromemCollection = "corpus"

// ChromemSearcher backs neighbor search with an in-memory chromem-go
// collection holding the precomputed corpus vectors.
//
// chromem-go is an embeddable vector database with zero third-party
// dependencies; it brute-forces cosine similarity, so no index is built and
// nothing is persisted. Prefer it over ExactSearcher for larger corpora where
// its concurrent scan pays off. Note chromem does not define similarity-tie
// order, so ExactSearcher remains the default where byte-for-byte
// reproducibility of tie handling matters.
type ChromemSearcher struct {
	collection *chromem.Collection
}

// NewChromemSearcher loads ids and their precomputed vectors into a fresh
// in-memory collection.
func NewChromemSearcher(ctx context.Context, ids []string, vectors [][]float32) (*ChromemSearcher, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: empty corpus", ErrInvalidConfig)
	}
	if len(ids) != len(vectors) {
		return nil, fmt.Errorf("%w: %d ids but %d vectors", ErrInvalidConfig, len(ids), len(vectors))
	}

	db := chromem.NewDB()
	collection, err := db.CreateCollection(chromemCollection, nil, rejectEmbeddingFunc)
	if err != nil {
		return nil, fmt.Errorf("creating chromem collection: %w", err)
	}

	docs := make([]chromem.Document, len(ids))
	for i, id := range ids {
		docs[i] = chromem.Document{
			ID:        id,
			Embedding: vectors[i],
			Content:   id, // content is unused; chromem requires a non-empty document
		}
	}
	if err := collection.AddDocuments(ctx, docs, 1); err != nil {
		return nil, fmt.Errorf("loading corpus vectors: %w", err)
	}

	return &ChromemSearcher{collection: collection}, nil
}

// rejectEmbeddingFunc guards against accidental re-embedding: every document
// and every query carries a precomputed vector.
func rejectEmbeddingFunc(context.Context, string) ([]float32, error) {
	return nil, errors.New("embeddings are precomputed; no embedding function available")
}

// Search implements Searcher.
func (s *ChromemSearcher) Search(ctx context.Context, queryVec []float32, topK int) ([]string, error) {
	// chromem rejects nResults above the collection size.
	if count := s.collection.Count(); topK > count {
		topK = count
	}

	results, err := s.collection.QueryEmbedding(ctx, queryVec, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying chromem collection: %w", err)
	}

	ids := make([]string, len(results))
	for i, res := range results {
		ids[i] = res.ID
	}
	return ids, nil
}

// Ensure ChromemSearcher implements Searcher.
var _ Searcher = (*ChromemSearcher)(nil)
