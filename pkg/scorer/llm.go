package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("rerank.scorer")

var (
	// ErrInvalidConfig indicates invalid scorer configuration.
	ErrInvalidConfig = errors.New("invalid scorer configuration")

	// ErrMalformedResponse indicates the model endpoint returned a response
	// the client cannot extract a score from.
	ErrMalformedResponse = errors.New("malformed completion response")
)

// Config holds configuration for the LLM-backed relevance scorer.
type Config struct {
	// BaseURL is the OpenAI-compatible API root, e.g. http://localhost:8000/v1.
	// The endpoint must support echoed prompt logprobs on /completions
	// (vLLM and llama.cpp do; see their completions API docs).
	BaseURL string

	// Model is the relevance model name.
	Model string

	// APIKey is the bearer token, optional for local endpoints.
	APIKey string

	// MaxDocumentChars truncates document text before prompt assembly,
	// keeping the prefix. <= 0 disables truncation.
	MaxDocumentChars int

	// Seed is forwarded to the endpoint for reproducible sampling paths.
	Seed int

	// RequestsPerSecond caps the request rate against the endpoint.
	// <= 0 disables rate limiting.
	RequestsPerSecond float64

	// Timeout bounds each HTTP request. Defaults to 60s.
	Timeout time.Duration
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	return nil
}

// LLMScorer scores (query, document) relevance through an OpenAI-compatible
// completions endpoint.
//
// The prompt asks for a binary relevance judgment and ends with the "true"
// target token. The request echoes prompt logprobs, so the log-likelihood the
// model assigns to that trailing token comes back directly; that value (the
// negative of the model's loss for the target) is the relevance score.
// Higher means more relevant. Scores are never cached.
type LLMScorer struct {
	config  Config
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewLLMScorer creates a scorer from config. logger may be nil.
func NewLLMScorer(config Config, logger *zap.Logger) (*LLMScorer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if config.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1)
	}

	return &LLMScorer{
		config:  config,
		client:  &http.Client{Timeout: config.Timeout},
		limiter: limiter,
		logger:  logger,
	}, nil
}

// ScorePair implements RelevanceScorer.
func (s *LLMScorer) ScorePair(ctx context.Context, query, document string) (float64, error) {
	ctx, span := tracer.Start(ctx, "scorer.ScorePair")
	defer span.End()

	document = TruncateDocument(document, s.config.MaxDocumentChars)
	score, err := s.complete(ctx, buildPairPrompt(query, document))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("scoring pair: %w", err)
	}
	span.SetAttributes(attribute.Float64("scorer.score", score))
	return score, nil
}

// ScoreBatch implements RelevanceScorer. The whole batch is judged in one
// model invocation, producing a single aggregate score.
func (s *LLMScorer) ScoreBatch(ctx context.Context, query string, documents []string) (float64, error) {
	ctx, span := tracer.Start(ctx, "scorer.ScoreBatch",
		trace.WithAttributes(attribute.Int("scorer.batch_size", len(documents))))
	defer span.End()

	if len(documents) == 0 {
		return 0, fmt.Errorf("%w: empty batch", ErrInvalidConfig)
	}

	truncated := make([]string, len(documents))
	for i, doc := range documents {
		truncated[i] = TruncateDocument(doc, s.config.MaxDocumentChars)
	}

	score, err := s.complete(ctx, buildBatchPrompt(query, truncated))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("scoring batch of %d: %w", len(documents), err)
	}
	span.SetAttributes(attribute.Float64("scorer.score", score))
	return score, nil
}

// completionRequest is the OpenAI legacy completions request shape. max_tokens
// 0 with echo and logprobs returns prompt token logprobs without generation.
type completionRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Echo        bool    `json:"echo"`
	Logprobs    int     `json:"logprobs"`
	Temperature float64 `json:"temperature"`
	Seed        int     `json:"seed,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Logprobs struct {
			Tokens        []string   `json:"tokens"`
			TokenLogprobs []*float64 `json:"token_logprobs"`
		} `json:"logprobs"`
	} `json:"choices"`
}

// complete submits the prompt and returns the log-likelihood of its final
// token, which is always the relevance target token.
func (s *LLMScorer) complete(ctx context.Context, prompt string) (float64, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	body, err := json.Marshal(completionRequest{
		Model:       s.config.Model,
		Prompt:      prompt,
		MaxTokens:   0,
		Echo:        true,
		Logprobs:    0,
		Temperature: 0,
		Seed:        s.config.Seed,
	})
	if err != nil {
		return 0, fmt.Errorf("marshaling request: %w", err)
	}

	url := strings.TrimRight(s.config.BaseURL, "/") + "/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(parsed.Choices) == 0 {
		return 0, fmt.Errorf("%w: no choices", ErrMalformedResponse)
	}

	logprobs := parsed.Choices[0].Logprobs.TokenLogprobs
	if len(logprobs) == 0 {
		return 0, fmt.Errorf("%w: no token logprobs", ErrMalformedResponse)
	}
	last := logprobs[len(logprobs)-1]
	if last == nil {
		return 0, fmt.Errorf("%w: missing logprob for target token", ErrMalformedResponse)
	}

	s.logger.Debug("completion scored",
		zap.Int("prompt_chars", len(prompt)),
		zap.Float64("score", *last),
	)
	return *last, nil
}

// Ensure LLMScorer implements RelevanceScorer.
var _ RelevanceScorer = (*LLMScorer)(nil)
