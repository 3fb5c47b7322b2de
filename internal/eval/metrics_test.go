package eval

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstHitRank(t *testing.T) {
	tests := []struct {
		name   string
		ranked []string
		refs   []string
		want   int
	}{
		{
			name:   "hit at first position",
			ranked: []string{"a", "b", "c"},
			refs:   []string{"a"},
			want:   1,
		},
		{
			name:   "hit at last position",
			ranked: []string{"a", "b", "c"},
			refs:   []string{"c"},
			want:   3,
		},
		{
			name:   "no hit returns sentinel",
			ranked: []string{"a", "b", "c"},
			refs:   []string{"z"},
			want:   4,
		},
		{
			name:   "first hit wins with multiple references",
			ranked: []string{"a", "b", "c"},
			refs:   []string{"c", "b"},
			want:   2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FirstHitRank(tt.ranked, tt.refs))
		})
	}
}

func TestComputeListMetrics(t *testing.T) {
	ranked := [][]string{
		{"1", "2", "3"},
		{"4", "5", "6"},
	}
	references := [][]string{
		{"2"},
		{"5"},
	}

	metrics, err := ComputeListMetrics(ranked, references, []int{1, 5})
	require.NoError(t, err)

	// Both queries have first-hit rank 2: neither counts at K=1, both at K=5.
	assert.InDelta(t, 0.0, metrics["MRR@1"], 1e-12)
	assert.InDelta(t, 0.0, metrics["Recall@1"], 1e-12)
	assert.InDelta(t, 0.5, metrics["MRR@5"], 1e-12)
	assert.InDelta(t, 1.0, metrics["Recall@5"], 1e-12)
}

func TestComputeListMetricsCutoffLargerThanList(t *testing.T) {
	// A hit within the returned list still counts even when K exceeds the
	// list length; an unmatched query contributes 0 at every cutoff.
	ranked := [][]string{
		{"a", "b"},
		{"c", "d"},
	}
	references := [][]string{
		{"b"},
		{"z"},
	}

	metrics, err := ComputeListMetrics(ranked, references, []int{10})
	require.NoError(t, err)

	assert.InDelta(t, 0.25, metrics["MRR@10"], 1e-12) // (1/2 + 0) / 2
	assert.InDelta(t, 0.5, metrics["Recall@10"], 1e-12)
}

func TestComputeListMetricsPerQueryContribution(t *testing.T) {
	// rank <= K contributes exactly 1/rank to the MRR sum and 1 to the
	// Recall sum; rank > K contributes 0 to both.
	for rank := 1; rank <= 6; rank++ {
		ranked := make([]string, 6)
		for i := range ranked {
			ranked[i] = string(rune('a' + i))
		}
		gold := ranked[rank-1]

		for _, k := range []int{1, 3, 5} {
			metrics, err := ComputeListMetrics([][]string{ranked}, [][]string{{gold}}, []int{k})
			require.NoError(t, err)

			if rank <= k {
				assert.InDelta(t, 1.0/float64(rank), metrics["MRR@"+strconv.Itoa(k)], 1e-12)
				assert.InDelta(t, 1.0, metrics["Recall@"+strconv.Itoa(k)], 1e-12)
			} else {
				assert.Zero(t, metrics["MRR@"+strconv.Itoa(k)])
				assert.Zero(t, metrics["Recall@"+strconv.Itoa(k)])
			}
		}
	}
}

func TestComputeListMetricsLengthMismatch(t *testing.T) {
	_, err := ComputeListMetrics([][]string{{"a"}}, [][]string{{"a"}, {"b"}}, []int{1})
	require.ErrorIs(t, err, ErrLengthMismatch)
}

func TestComputeListMetricsInvalidCutoff(t *testing.T) {
	_, err := ComputeListMetrics([][]string{{"a"}}, [][]string{{"a"}}, []int{0})
	require.ErrorIs(t, err, ErrInvalidCutoff)
}
