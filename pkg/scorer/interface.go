// Package scorer provides pairwise query-document relevance scoring.
//
// A RelevanceScorer is a narrow capability boundary around an external
// relevance model. The core reranking logic depends only on this interface,
// so it stays fully testable with deterministic stub implementations.
package scorer

import "context"

// RelevanceScorer scores the relevance of documents to a query.
//
// Scores are real-valued with no fixed range; higher means more relevant.
// Normalization is the caller's responsibility, never the scorer's.
type RelevanceScorer interface {
	// ScorePair scores a single (query, document) pair. Repeated calls on
	// the same pair recompute; implementations must not cache.
	ScorePair(ctx context.Context, query, document string) (float64, error)

	// ScoreBatch scores a group of documents against the query in one model
	// invocation and returns a single aggregate score for the whole group.
	// Every document in the batch receives this identical score: the batch
	// is the unit of scoring, not the individual document.
	ScoreBatch(ctx context.Context, query string, documents []string) (float64, error)
}
