// Package fallback repairs candidate lists that are missing the known-correct
// document.
//
// The resolver runs a semantic-similarity search over precomputed,
// L2-normalized corpus embeddings and guarantees the correct identifier is
// represented in the returned set, appending it when the search misses it.
// Neighbor search is a pluggable Searcher: a brute-force exact implementation
// is the default, with a chromem-go backed store as an alternative. Neither
// builds an index or persists anything.
package fallback

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("rerank.fallback")

var (
	// ErrUnknownDocument indicates a ground-truth identifier that is not a
	// valid corpus identifier. Caller error; the resolver never appends an
	// identifier it cannot vouch for.
	ErrUnknownDocument = errors.New("identifier not present in corpus")

	// ErrInvalidConfig indicates invalid resolver or searcher construction.
	ErrInvalidConfig = errors.New("invalid fallback configuration")
)

// QueryEmbedder embeds query text into a fixed-length, L2-normalized vector.
// Must be deterministic for fixed input and model weights.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Searcher returns the topK corpus document identifiers most similar to the
// query vector, descending. Similarity ties break by corpus iteration order.
type Searcher interface {
	Search(ctx context.Context, queryVec []float32, topK int) ([]string, error)
}

// Resolver produces a fixed-size fallback candidate set that always contains
// the known-correct identifier.
type Resolver struct {
	embedder QueryEmbedder
	searcher Searcher
	known    map[string]struct{}
	logger   *zap.Logger
}

// NewResolver creates a resolver over the given corpus identifiers.
// logger may be nil.
func NewResolver(embedder QueryEmbedder, searcher Searcher, corpusIDs []string, logger *zap.Logger) (*Resolver, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if searcher == nil {
		return nil, fmt.Errorf("%w: searcher is required", ErrInvalidConfig)
	}
	if len(corpusIDs) == 0 {
		return nil, fmt.Errorf("%w: corpus identifiers required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	known := make(map[string]struct{}, len(corpusIDs))
	for _, id := range corpusIDs {
		known[id] = struct{}{}
	}
	return &Resolver{embedder: embedder, searcher: searcher, known: known, logger: logger}, nil
}

// Resolve returns the topK nearest corpus identifiers to the query, with
// correctID appended when the search missed it. The result contains correctID
// exactly once: length topK when the search found it, topK+1 otherwise.
func (r *Resolver) Resolve(ctx context.Context, query, correctID string, topK int) ([]string, error) {
	ctx, span := tracer.Start(ctx, "fallback.Resolve")
	defer span.End()

	if topK <= 0 {
		return nil, fmt.Errorf("%w: top-K must be positive", ErrInvalidConfig)
	}
	if _, ok := r.known[correctID]; !ok {
		err := fmt.Errorf("%w: %q", ErrUnknownDocument, correctID)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	queryVec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	ids, err := r.searcher.Search(ctx, queryVec, topK)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("searching neighbors: %w", err)
	}

	injected := false
	if !contains(ids, correctID) {
		ids = append(ids, correctID)
		injected = true
	}

	span.SetAttributes(
		attribute.Int("fallback.result_size", len(ids)),
		attribute.Bool("fallback.injected", injected),
	)
	r.logger.Debug("fallback candidates resolved",
		zap.Int("top_k", topK),
		zap.Bool("injected", injected),
	)
	return ids, nil
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
