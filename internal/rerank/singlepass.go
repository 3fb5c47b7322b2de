package rerank

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/rerank/pkg/scorer"
)

// SinglePass re-ranks the head of a candidate list by scoring every
// candidate independently and sorting descending. Scoring calls are grouped
// in batches of BatchSize for the external model's benefit only: grouping
// never changes scores or the final order.
type SinglePass struct {
	scorer scorer.RelevanceScorer
	corpus TextLookup
	config SinglePassConfig
	logger *zap.Logger
}

// SinglePassConfig holds single-pass reranker settings.
type SinglePassConfig struct {
	// TopK bounds the window of candidates considered and returned.
	TopK int
	// BatchSize groups scoring calls. Defaults to 8.
	BatchSize int
}

// NewSinglePass creates a single-pass reranker. logger may be nil.
func NewSinglePass(sc scorer.RelevanceScorer, corpus TextLookup, config SinglePassConfig, logger *zap.Logger) (*SinglePass, error) {
	if sc == nil {
		return nil, fmt.Errorf("%w: scorer is required", ErrInvalidOptions)
	}
	if corpus == nil {
		return nil, fmt.Errorf("%w: corpus lookup is required", ErrInvalidOptions)
	}
	if config.TopK <= 0 {
		return nil, fmt.Errorf("%w: top-K must be positive", ErrInvalidOptions)
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 8
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SinglePass{scorer: sc, corpus: corpus, config: config, logger: logger}, nil
}

// Rerank implements Reranker.
func (r *SinglePass) Rerank(ctx context.Context, query string, candidates []string) ([]string, error) {
	if len(candidates) == 0 {
		return nil, ErrEmptyCandidates
	}

	considered := window(candidates, r.config.TopK)
	scores := make([]float64, len(considered))

	for start := 0; start < len(considered); start += r.config.BatchSize {
		end := min(start+r.config.BatchSize, len(considered))
		for i := start; i < end; i++ {
			text, ok := r.corpus.Text(considered[i])
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrUnknownCandidate, considered[i])
			}
			score, err := r.scorer.ScorePair(ctx, query, text)
			if err != nil {
				return nil, fmt.Errorf("scoring candidate %q: %w", considered[i], err)
			}
			scores[i] = score
		}
	}

	order := make([]int, len(considered))
	for i := range order {
		order[i] = i
	}
	// Stable: ties keep their original relative order.
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	ranked := make([]string, len(considered))
	for i, idx := range order {
		ranked[i] = considered[idx]
	}

	r.logger.Debug("single-pass rerank complete",
		zap.Int("window", len(considered)),
		zap.Int("dropped", len(candidates)-len(considered)),
	)
	return ranked, nil
}

// Ensure SinglePass implements Reranker.
var _ Reranker = (*SinglePass)(nil)
