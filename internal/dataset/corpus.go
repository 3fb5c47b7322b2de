// Package dataset loads evaluation data: the document corpus, per-query
// initial candidate lists, and dataset splits pairing queries with their
// ground-truth documents.
//
// Formats follow the common retrieval-benchmark layout: JSONL for corpus and
// queries, tab-separated values for candidate runs and relevance labels.
package dataset

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrMalformedData indicates unparseable or inconsistent input data. Loading
// is all-or-nothing: a corpus is never partially populated.
var ErrMalformedData = errors.New("malformed dataset")

// scanBufferSize bounds a single corpus line (long documents).
const scanBufferSize = 4 * 1024 * 1024

// corpusEntry is one JSONL corpus line.
type corpusEntry struct {
	ID    string `json:"_id"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Corpus is the immutable identifier-to-text mapping plus a fixed iteration
// order over all document identifiers.
type Corpus struct {
	texts map[string]string
	ids   []string
}

// LoadCorpus reads a JSONL corpus file, one document object per line. The
// mapping is fully built before returning; any malformed line fails the load.
func LoadCorpus(path string) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus: %w", err)
	}
	defer f.Close()

	corpus := &Corpus{texts: make(map[string]string)}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), scanBufferSize)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var entry corpusEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, fmt.Errorf("%w: corpus line %d: %v", ErrMalformedData, line, err)
		}
		if entry.ID == "" {
			return nil, fmt.Errorf("%w: corpus line %d: missing _id", ErrMalformedData, line)
		}
		if _, exists := corpus.texts[entry.ID]; exists {
			return nil, fmt.Errorf("%w: corpus line %d: duplicate id %q", ErrMalformedData, line, entry.ID)
		}
		text := entry.Text
		if entry.Title != "" {
			text = entry.Title + "\n" + entry.Text
		}
		corpus.texts[entry.ID] = text
		corpus.ids = append(corpus.ids, entry.ID)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading corpus: %w", err)
	}
	if len(corpus.ids) == 0 {
		return nil, fmt.Errorf("%w: corpus is empty", ErrMalformedData)
	}
	return corpus, nil
}

// Text returns the document text for id and whether id is known.
func (c *Corpus) Text(id string) (string, bool) {
	text, ok := c.texts[id]
	return text, ok
}

// IDs returns all document identifiers in load order. Callers must not
// mutate the returned slice.
func (c *Corpus) IDs() []string {
	return c.ids
}

// Len returns the number of documents.
func (c *Corpus) Len() int {
	return len(c.ids)
}
