package rerank

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/rerank/pkg/scorer"
)

// normEpsilon guards min-max normalization against a zero-width score range.
// When every raw score in the window is equal, all normalized scores come out
// near 0 instead of dividing by zero.
const normEpsilon = 1e-8

// DefaultAlpha is the default weight on model scores in the blend.
const DefaultAlpha = 0.7

// Blended re-ranks the head of a candidate list by blending normalized model
// scores with a positional prior derived from the original candidate order.
//
// The window is scored in chunks of BatchSize, and each chunk receives one
// aggregate score broadcast to every candidate in it: scores are
// batch-uniform, not per-item. Within a chunk, ordering therefore falls back
// to the positional prior (and, on full ties, to the original order). This
// trades per-item model calls for one call per chunk and is deliberate; do
// not replace it with per-item scoring.
type Blended struct {
	scorer scorer.RelevanceScorer
	corpus TextLookup
	config BlendedConfig
	logger *zap.Logger
}

// BlendedConfig holds blended reranker settings.
type BlendedConfig struct {
	// TopK bounds the window of candidates considered and returned.
	TopK int
	// BatchSize is the chunk size for aggregate scoring. Defaults to 8.
	BatchSize int
	// Alpha in [0,1] weights normalized model scores against the positional
	// prior: final = alpha*norm + (1-alpha)*prior. Alpha 0 is pure prior,
	// 1 is pure model score; DefaultAlpha is the recommended setting.
	Alpha float64
}

// NewBlended creates a blended reranker. logger may be nil.
func NewBlended(sc scorer.RelevanceScorer, corpus TextLookup, config BlendedConfig, logger *zap.Logger) (*Blended, error) {
	if sc == nil {
		return nil, fmt.Errorf("%w: scorer is required", ErrInvalidOptions)
	}
	if corpus == nil {
		return nil, fmt.Errorf("%w: corpus lookup is required", ErrInvalidOptions)
	}
	if config.TopK <= 0 {
		return nil, fmt.Errorf("%w: top-K must be positive", ErrInvalidOptions)
	}
	if config.Alpha < 0 || config.Alpha > 1 {
		return nil, fmt.Errorf("%w: alpha must be in [0,1], got %v", ErrInvalidOptions, config.Alpha)
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 8
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Blended{scorer: sc, corpus: corpus, config: config, logger: logger}, nil
}

// Rerank implements Reranker.
func (r *Blended) Rerank(ctx context.Context, query string, candidates []string) ([]string, error) {
	if len(candidates) == 0 {
		return nil, ErrEmptyCandidates
	}

	considered := window(candidates, r.config.TopK)
	raw, err := r.scoreWindow(ctx, query, considered)
	if err != nil {
		return nil, err
	}

	norm := minMaxNormalize(raw)
	final := make([]float64, len(considered))
	for i := range considered {
		final[i] = r.config.Alpha*norm[i] + (1-r.config.Alpha)*positionalPrior(i, len(considered))
	}

	order := make([]int, len(considered))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return final[order[a]] > final[order[b]]
	})

	ranked := make([]string, len(considered))
	for i, idx := range order {
		ranked[i] = considered[idx]
	}

	r.logger.Debug("blended rerank complete",
		zap.Int("window", len(considered)),
		zap.Float64("alpha", r.config.Alpha),
	)
	return ranked, nil
}

// scoreWindow scores the window in chunks. One aggregate score per chunk,
// broadcast to every candidate in that chunk.
func (r *Blended) scoreWindow(ctx context.Context, query string, considered []string) ([]float64, error) {
	raw := make([]float64, len(considered))
	for start := 0; start < len(considered); start += r.config.BatchSize {
		end := min(start+r.config.BatchSize, len(considered))

		texts := make([]string, 0, end-start)
		for _, id := range considered[start:end] {
			text, ok := r.corpus.Text(id)
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrUnknownCandidate, id)
			}
			texts = append(texts, text)
		}

		score, err := r.scorer.ScoreBatch(ctx, query, texts)
		if err != nil {
			return nil, fmt.Errorf("scoring chunk starting at %q: %w", considered[start], err)
		}
		for i := start; i < end; i++ {
			raw[i] = score
		}
	}
	return raw, nil
}

// minMaxNormalize scales scores to [0,1] over the window. With all scores
// equal the epsilon guard yields values near 0 rather than NaN.
func minMaxNormalize(raw []float64) []float64 {
	lo, hi := raw[0], raw[0]
	for _, v := range raw[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	norm := make([]float64, len(raw))
	for i, v := range raw {
		norm[i] = (v - lo) / (hi - lo + normEpsilon)
	}
	return norm
}

// positionalPrior decays linearly from 1.0 at index 0 to 0.0 at the last
// window index. A single-element window has prior 1.0.
func positionalPrior(i, windowSize int) float64 {
	if windowSize == 1 {
		return 1.0
	}
	return 1.0 - float64(i)/float64(windowSize-1)
}

// Ensure Blended implements Reranker.
var _ Reranker = (*Blended)(nil)
