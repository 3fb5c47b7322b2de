package eval

import (
	"fmt"
	"sort"
	"strings"
)

// Report holds the metrics for one reranking strategy over one dataset split.
type Report struct {
	Split      string             `json:"split"`
	Strategy   string             `json:"strategy"`
	NumQueries int                `json:"num_queries"`
	Metrics    map[string]float64 `json:"metrics"`
}

// String renders the report as a single line with metrics in name order.
func (r Report) String() string {
	names := make([]string, 0, len(r.Metrics))
	for name := range r.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s/%s (%d queries):", r.Split, r.Strategy, r.NumQueries)
	for _, name := range names {
		fmt.Fprintf(&sb, " %s=%.4f", name, r.Metrics[name])
	}
	return sb.String()
}
