package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
)

// Candidates holds the first-stage retrieval output: an ordered candidate
// document list per query identifier. Order is a prior-confidence signal;
// index 0 is the most confident candidate.
type Candidates struct {
	byQuery map[string][]string
}

// LoadCandidates reads a tab-separated run file with rows of
// query-id, doc-id and an optional trailing rank column. Rows for one query
// must appear in rank order; file order is preserved. A header row starting
// with "query-id" is skipped.
func LoadCandidates(path string) (*Candidates, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening candidates: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1 // rank column is optional

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parsing candidates: %v", ErrMalformedData, err)
	}

	candidates := &Candidates{byQuery: make(map[string][]string)}
	for i, row := range rows {
		if i == 0 && len(row) > 0 && row[0] == "query-id" {
			continue
		}
		if len(row) < 2 {
			return nil, fmt.Errorf("%w: candidates row %d has %d fields, want >= 2", ErrMalformedData, i+1, len(row))
		}
		queryID, docID := row[0], row[1]
		if queryID == "" || docID == "" {
			return nil, fmt.Errorf("%w: candidates row %d has empty identifier", ErrMalformedData, i+1)
		}
		candidates.byQuery[queryID] = append(candidates.byQuery[queryID], docID)
	}
	return candidates, nil
}

// For returns the ordered candidate list for queryID, or nil when the query
// has none. Callers must treat the returned slice as read-only.
func (c *Candidates) For(queryID string) []string {
	return c.byQuery[queryID]
}

// NumQueries returns the number of queries with at least one candidate.
func (c *Candidates) NumQueries() int {
	return len(c.byQuery)
}
