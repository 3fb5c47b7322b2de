package dataset

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
)

// Item pairs one query with its ground-truth document identifiers. Gold is a
// set; in this domain it usually has exactly one member, but the metric
// contract supports more.
type Item struct {
	QueryID string
	Text    string
	Gold    []string
}

// Split is a named group of evaluation items, processed independently of
// other splits. Metrics are reported per split, never merged.
type Split struct {
	Name  string
	Items []Item
}

// queryEntry is one JSONL queries line.
type queryEntry struct {
	ID   string `json:"_id"`
	Text string `json:"text"`
}

// LoadSplit builds a split from a JSONL queries file and a tab-separated
// relevance-labels file with rows of query-id, doc-id and an optional score
// column (a header row starting with "query-id" is skipped). Only queries
// with at least one label become items; item order follows the labels file.
func LoadSplit(name, queriesPath, labelsPath string) (*Split, error) {
	queries, err := loadQueries(queriesPath)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(labelsPath)
	if err != nil {
		return nil, fmt.Errorf("opening labels: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parsing labels: %v", ErrMalformedData, err)
	}

	split := &Split{Name: name}
	index := make(map[string]int) // query id -> position in split.Items
	for i, row := range rows {
		if i == 0 && len(row) > 0 && row[0] == "query-id" {
			continue
		}
		if len(row) < 2 {
			return nil, fmt.Errorf("%w: labels row %d has %d fields, want >= 2", ErrMalformedData, i+1, len(row))
		}
		queryID, docID := row[0], row[1]
		text, ok := queries[queryID]
		if !ok {
			return nil, fmt.Errorf("%w: labels row %d references unknown query %q", ErrMalformedData, i+1, queryID)
		}
		pos, seen := index[queryID]
		if !seen {
			index[queryID] = len(split.Items)
			split.Items = append(split.Items, Item{QueryID: queryID, Text: text, Gold: []string{docID}})
			continue
		}
		split.Items[pos].Gold = append(split.Items[pos].Gold, docID)
	}
	if len(split.Items) == 0 {
		return nil, fmt.Errorf("%w: split %q has no labeled queries", ErrMalformedData, name)
	}
	return split, nil
}

// loadQueries reads a JSONL queries file into an id-to-text map.
func loadQueries(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening queries: %w", err)
	}
	defer f.Close()

	queries := make(map[string]string)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), scanBufferSize)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var entry queryEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, fmt.Errorf("%w: queries line %d: %v", ErrMalformedData, line, err)
		}
		if entry.ID == "" {
			return nil, fmt.Errorf("%w: queries line %d: missing _id", ErrMalformedData, line)
		}
		queries[entry.ID] = entry.Text
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading queries: %w", err)
	}
	return queries, nil
}
