// Package eval computes rank-based retrieval quality metrics.
//
// Metrics are computed from ranked prediction lists and ground-truth reference
// sets, one pair per query. The engine is a pure function of its inputs: no
// model calls, no I/O, no shared state.
package eval

import (
	"errors"
	"fmt"
)

// ErrLengthMismatch indicates that the ranked lists and reference sets do not
// pair up one-to-one. This is a caller contract violation, never truncated
// silently.
var ErrLengthMismatch = errors.New("ranked lists and references differ in length")

// ErrInvalidCutoff indicates a rank cutoff below 1.
var ErrInvalidCutoff = errors.New("rank cutoff must be >= 1")

// FirstHitRank returns the 1-based position of the first entry in ranked that
// is a member of refs. When no entry matches, it returns len(ranked)+1, a
// sentinel strictly greater than any cutoff within the list.
func FirstHitRank(ranked []string, refs []string) int {
	refSet := make(map[string]struct{}, len(refs))
	for _, id := range refs {
		refSet[id] = struct{}{}
	}
	for i, id := range ranked {
		if _, ok := refSet[id]; ok {
			return i + 1
		}
	}
	return len(ranked) + 1
}

// ComputeListMetrics computes MRR@K and Recall@K for every cutoff K in ks.
//
// ranked holds one ranked prediction list per query; references holds the
// parallel ground-truth sets (usually size 1, but any size is supported).
// The result maps metric names such as "MRR@5" to values in [0,1].
//
// A query contributes 1/rank to the MRR@K sum and 1 to the Recall@K sum when
// its first-hit rank is <= K, and 0 to both otherwise.
func ComputeListMetrics(ranked [][]string, references [][]string, ks []int) (map[string]float64, error) {
	if len(ranked) != len(references) {
		return nil, fmt.Errorf("%w: %d ranked lists, %d references", ErrLengthMismatch, len(ranked), len(references))
	}
	for _, k := range ks {
		if k < 1 {
			return nil, fmt.Errorf("%w: got %d", ErrInvalidCutoff, k)
		}
	}

	// A miss carries the sentinel rank len+1, which can fall within a cutoff
	// larger than the list; track hits explicitly so a miss never counts.
	ranks := make([]int, len(ranked))
	hits := make([]bool, len(ranked))
	for i := range ranked {
		ranks[i] = FirstHitRank(ranked[i], references[i])
		hits[i] = ranks[i] <= len(ranked[i])
	}

	metrics := make(map[string]float64, 2*len(ks))
	for _, k := range ks {
		var mrr, recall float64
		for i, r := range ranks {
			if hits[i] && r <= k {
				mrr += 1.0 / float64(r)
				recall += 1.0
			}
		}
		if n := float64(len(ranks)); n > 0 {
			mrr /= n
			recall /= n
		}
		metrics[fmt.Sprintf("MRR@%d", k)] = mrr
		metrics[fmt.Sprintf("Recall@%d", k)] = recall
	}
	return metrics, nil
}
