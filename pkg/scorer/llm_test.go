package scorer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// completionHandler returns a handler that echoes back fixed logprobs and
// records the requests it served.
func completionHandler(t *testing.T, logprob float64, requests *[]completionRequest) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/completions", r.URL.Path)

		var req completionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		*requests = append(*requests, req)

		first := (*float64)(nil) // first prompt token has no conditioning context
		resp := map[string]any{
			"choices": []map[string]any{{
				"logprobs": map[string]any{
					"tokens":         []string{"Judge", "...", " true"},
					"token_logprobs": []*float64{first, ptr(-1.2), ptr(logprob)},
				},
			}},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}
}

func ptr(f float64) *float64 { return &f }

func TestLLMScorerScorePair(t *testing.T) {
	var requests []completionRequest
	srv := httptest.NewServer(completionHandler(t, -0.25, &requests))
	defer srv.Close()

	s, err := NewLLMScorer(Config{BaseURL: srv.URL, Model: "relevance-1", Seed: 42}, nil)
	require.NoError(t, err)

	score, err := s.ScorePair(context.Background(), "what is go", "go is a language")
	require.NoError(t, err)

	// Score is the log-likelihood of the trailing target token.
	assert.InDelta(t, -0.25, score, 1e-12)

	require.Len(t, requests, 1)
	req := requests[0]
	assert.Equal(t, "relevance-1", req.Model)
	assert.Equal(t, 0, req.MaxTokens)
	assert.True(t, req.Echo)
	assert.Zero(t, req.Temperature)
	assert.Equal(t, 42, req.Seed)
	assert.Contains(t, req.Prompt, "what is go")
	assert.Contains(t, req.Prompt, "go is a language")
	assert.True(t, strings.HasSuffix(req.Prompt, relevanceTarget))
}

func TestLLMScorerScoreBatchSingleInvocation(t *testing.T) {
	var requests []completionRequest
	srv := httptest.NewServer(completionHandler(t, -2.5, &requests))
	defer srv.Close()

	s, err := NewLLMScorer(Config{BaseURL: srv.URL, Model: "relevance-1"}, nil)
	require.NoError(t, err)

	score, err := s.ScoreBatch(context.Background(), "q", []string{"doc one", "doc two", "doc three"})
	require.NoError(t, err)
	assert.InDelta(t, -2.5, score, 1e-12)

	// The whole batch is one model invocation.
	require.Len(t, requests, 1)
	assert.Contains(t, requests[0].Prompt, "doc one")
	assert.Contains(t, requests[0].Prompt, "doc three")
}

func TestLLMScorerTruncatesDocumentPrefix(t *testing.T) {
	var requests []completionRequest
	srv := httptest.NewServer(completionHandler(t, -0.5, &requests))
	defer srv.Close()

	s, err := NewLLMScorer(Config{BaseURL: srv.URL, Model: "relevance-1", MaxDocumentChars: 10}, nil)
	require.NoError(t, err)

	_, err = s.ScorePair(context.Background(), "q", "0123456789OVERFLOW")
	require.NoError(t, err)

	require.Len(t, requests, 1)
	assert.Contains(t, requests[0].Prompt, "0123456789")
	assert.NotContains(t, requests[0].Prompt, "OVERFLOW")
}

func TestLLMScorerUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s, err := NewLLMScorer(Config{BaseURL: srv.URL, Model: "relevance-1"}, nil)
	require.NoError(t, err)

	_, err = s.ScorePair(context.Background(), "q", "d")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestLLMScorerMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	s, err := NewLLMScorer(Config{BaseURL: srv.URL, Model: "relevance-1"}, nil)
	require.NoError(t, err)

	_, err = s.ScorePair(context.Background(), "q", "d")
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestNewLLMScorerInvalidConfig(t *testing.T) {
	_, err := NewLLMScorer(Config{Model: "m"}, nil)
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewLLMScorer(Config{BaseURL: "http://localhost"}, nil)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestTruncateDocument(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxChars int
		want     string
	}{
		{name: "under limit", text: "short", maxChars: 10, want: "short"},
		{name: "at limit", text: "exact", maxChars: 5, want: "exact"},
		{name: "over limit keeps prefix", text: "abcdefgh", maxChars: 3, want: "abc"},
		{name: "disabled", text: "anything", maxChars: 0, want: "anything"},
		{name: "multibyte safe", text: "héllo wörld", maxChars: 4, want: "héll"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TruncateDocument(tt.text, tt.maxChars))
		})
	}
}
