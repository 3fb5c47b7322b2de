// Package rerank re-orders candidate document lists by model relevance.
//
// Two strategies are provided. SinglePass scores every candidate in the
// window independently and sorts by score. Blended combines normalized batch
// scores with the candidates' original rank position, weighting learned
// relevance against upstream retrieval confidence.
//
// Both strategies treat the candidate order as input state only: lists are
// replaced, never mutated in place.
package rerank

import (
	"context"
	"errors"
)

// ErrEmptyCandidates indicates an empty candidate list was passed to a
// reranker. Reranking nothing is a contract violation, not an empty result.
var ErrEmptyCandidates = errors.New("empty candidate list")

// ErrUnknownCandidate indicates a candidate identifier with no corpus text.
var ErrUnknownCandidate = errors.New("candidate not present in corpus")

// ErrInvalidOptions indicates invalid reranker construction options.
var ErrInvalidOptions = errors.New("invalid reranker options")

// TextLookup resolves a document identifier to its text.
type TextLookup interface {
	// Text returns the document text for id and whether id is known.
	Text(id string) (string, bool)
}

// Reranker re-orders a candidate list for a query.
type Reranker interface {
	// Rerank returns at most the configured top-K candidate identifiers,
	// re-ordered by relevance to the query. candidates must be non-empty.
	Rerank(ctx context.Context, query string, candidates []string) ([]string, error)
}

// window returns the head of candidates actually considered for scoring.
// Candidates beyond topK are never scored: a hard cutoff.
func window(candidates []string, topK int) []string {
	if topK > 0 && len(candidates) > topK {
		return candidates[:topK]
	}
	return candidates
}
