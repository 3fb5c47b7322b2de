package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadCorpus(t *testing.T) {
	path := writeFile(t, t.TempDir(), "corpus.jsonl",
		`{"_id":"d1","title":"First","text":"first document"}
{"_id":"d2","title":"","text":"second document"}

{"_id":"d3","title":"Third","text":"third document"}
`)

	corpus, err := LoadCorpus(path)
	require.NoError(t, err)

	assert.Equal(t, 3, corpus.Len())
	assert.Equal(t, []string{"d1", "d2", "d3"}, corpus.IDs())

	text, ok := corpus.Text("d1")
	require.True(t, ok)
	assert.Equal(t, "First\nfirst document", text)

	text, ok = corpus.Text("d2")
	require.True(t, ok)
	assert.Equal(t, "second document", text)

	_, ok = corpus.Text("missing")
	assert.False(t, ok)
}

func TestLoadCorpusDuplicateID(t *testing.T) {
	path := writeFile(t, t.TempDir(), "corpus.jsonl",
		`{"_id":"d1","text":"one"}
{"_id":"d1","text":"again"}
`)

	_, err := LoadCorpus(path)
	require.ErrorIs(t, err, ErrMalformedData)
}

func TestLoadCorpusMalformedLine(t *testing.T) {
	path := writeFile(t, t.TempDir(), "corpus.jsonl", "{not json}\n")

	_, err := LoadCorpus(path)
	require.ErrorIs(t, err, ErrMalformedData)
}

func TestLoadCorpusEmpty(t *testing.T) {
	path := writeFile(t, t.TempDir(), "corpus.jsonl", "")

	_, err := LoadCorpus(path)
	require.ErrorIs(t, err, ErrMalformedData)
}

func TestLoadCandidates(t *testing.T) {
	path := writeFile(t, t.TempDir(), "run.tsv",
		"query-id\tcorpus-id\trank\nq1\td3\t1\nq1\td1\t2\nq2\td2\t1\n")

	candidates, err := LoadCandidates(path)
	require.NoError(t, err)

	assert.Equal(t, 2, candidates.NumQueries())
	assert.Equal(t, []string{"d3", "d1"}, candidates.For("q1"))
	assert.Equal(t, []string{"d2"}, candidates.For("q2"))
	assert.Nil(t, candidates.For("q9"))
}

func TestLoadCandidatesWithoutHeaderOrRank(t *testing.T) {
	path := writeFile(t, t.TempDir(), "run.tsv", "q1\td2\nq1\td1\n")

	candidates, err := LoadCandidates(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"d2", "d1"}, candidates.For("q1"))
}

func TestLoadCandidatesShortRow(t *testing.T) {
	path := writeFile(t, t.TempDir(), "run.tsv", "q1\n")

	_, err := LoadCandidates(path)
	require.ErrorIs(t, err, ErrMalformedData)
}

func TestLoadSplit(t *testing.T) {
	dir := t.TempDir()
	queries := writeFile(t, dir, "queries.jsonl",
		`{"_id":"q1","text":"first query"}
{"_id":"q2","text":"second query"}
`)
	labels := writeFile(t, dir, "test.tsv",
		"query-id\tcorpus-id\tscore\nq1\td1\t1\nq2\td2\t1\nq2\td5\t1\n")

	split, err := LoadSplit("test", queries, labels)
	require.NoError(t, err)

	assert.Equal(t, "test", split.Name)
	require.Len(t, split.Items, 2)
	assert.Equal(t, Item{QueryID: "q1", Text: "first query", Gold: []string{"d1"}}, split.Items[0])
	assert.Equal(t, Item{QueryID: "q2", Text: "second query", Gold: []string{"d2", "d5"}}, split.Items[1])
}

func TestLoadSplitUnknownQuery(t *testing.T) {
	dir := t.TempDir()
	queries := writeFile(t, dir, "queries.jsonl", `{"_id":"q1","text":"only query"}`+"\n")
	labels := writeFile(t, dir, "test.tsv", "q9\td1\n")

	_, err := LoadSplit("test", queries, labels)
	require.ErrorIs(t, err, ErrMalformedData)
}

func TestLoadSplitEmptyLabels(t *testing.T) {
	dir := t.TempDir()
	queries := writeFile(t, dir, "queries.jsonl", `{"_id":"q1","text":"q"}`+"\n")
	labels := writeFile(t, dir, "test.tsv", "query-id\tcorpus-id\n")

	_, err := LoadSplit("test", queries, labels)
	require.ErrorIs(t, err, ErrMalformedData)
}
