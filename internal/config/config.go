// Package config provides configuration loading for the rerank pipeline.
//
// Configuration is loaded from a YAML file and overridden by environment
// variables, with hardcoded defaults underneath.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/knadh/koanf/v2"

	"github.com/fyrsmithlabs/rerank/internal/rerank"
)

// ErrInvalidConfig indicates configuration that fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the complete pipeline configuration.
type Config struct {
	Data       DataConfig       `koanf:"data"`
	Scorer     ScorerConfig     `koanf:"scorer"`
	Embeddings EmbeddingsConfig `koanf:"embeddings"`
	Rerank     RerankConfig     `koanf:"rerank"`
	Fallback   FallbackConfig   `koanf:"fallback"`
	Logging    LoggingConfig    `koanf:"logging"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
}

// DataConfig locates the evaluation data files.
type DataConfig struct {
	// CorpusPath is the JSONL document corpus.
	CorpusPath string `koanf:"corpus_path"`
	// CandidatesPath is the TSV first-stage retrieval run.
	CandidatesPath string `koanf:"candidates_path"`
	// QueriesPath is the JSONL queries file.
	QueriesPath string `koanf:"queries_path"`
	// LabelsPath is the TSV ground-truth labels file.
	LabelsPath string `koanf:"labels_path"`
	// Split names the evaluation split in reports.
	Split string `koanf:"split"`
}

// ScorerConfig configures the pairwise relevance model endpoint.
type ScorerConfig struct {
	BaseURL           string   `koanf:"base_url"`
	Model             string   `koanf:"model"`
	APIKey            Secret   `koanf:"api_key"`
	MaxDocumentChars  int      `koanf:"max_document_chars"`
	Seed              int      `koanf:"seed"`
	RequestsPerSecond float64  `koanf:"requests_per_second"`
	Timeout           Duration `koanf:"timeout"`
}

// EmbeddingsConfig configures the embedding model endpoint used by the
// fallback resolver.
type EmbeddingsConfig struct {
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
	APIKey  Secret `koanf:"api_key"`
	// BatchSize groups corpus texts per embedding request.
	BatchSize int `koanf:"batch_size"`
}

// RerankConfig holds shared reranker settings.
type RerankConfig struct {
	TopK      int     `koanf:"top_k"`
	BatchSize int     `koanf:"batch_size"`
	Alpha     float64 `koanf:"alpha"`
	// Cutoffs are the rank cutoffs K for MRR@K and Recall@K.
	Cutoffs []int `koanf:"cutoffs"`
}

// FallbackConfig holds fallback resolver settings.
type FallbackConfig struct {
	// Store selects the neighbor searcher: "exact" or "chromem".
	Store string `koanf:"store"`
	// TopK is the neighbor count requested per repair.
	TopK int `koanf:"top_k"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// TelemetryConfig holds OpenTelemetry trace export settings.
type TelemetryConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// applyDefaults fills settings absent from both the file and the
// environment. Numeric fields key off key presence in k rather than the zero
// value: zero is meaningful for several of them (alpha 0 is pure prior,
// max_document_chars 0 disables truncation, sample_rate 0 never samples) and
// must survive loading.
func applyDefaults(cfg *Config, k *koanf.Koanf) {
	if cfg.Data.Split == "" {
		cfg.Data.Split = "test"
	}
	if !k.Exists("scorer.max_document_chars") {
		cfg.Scorer.MaxDocumentChars = 4000
	}
	if !k.Exists("scorer.timeout") {
		cfg.Scorer.Timeout = Duration(60 * time.Second)
	}
	if !k.Exists("embeddings.batch_size") {
		cfg.Embeddings.BatchSize = 32
	}
	if !k.Exists("rerank.top_k") {
		cfg.Rerank.TopK = 10
	}
	if !k.Exists("rerank.batch_size") {
		cfg.Rerank.BatchSize = 8
	}
	if !k.Exists("rerank.alpha") {
		cfg.Rerank.Alpha = rerank.DefaultAlpha
	}
	if len(cfg.Rerank.Cutoffs) == 0 {
		cfg.Rerank.Cutoffs = []int{1, 5}
	}
	if cfg.Fallback.Store == "" {
		cfg.Fallback.Store = "exact"
	}
	if !k.Exists("fallback.top_k") {
		// Sized so a repaired list (top_k neighbors plus a possibly
		// appended gold document) fills the scoring window exactly.
		cfg.Fallback.TopK = cfg.Rerank.TopK - 1
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "rerank"
	}
	if !k.Exists("telemetry.sample_rate") {
		cfg.Telemetry.SampleRate = 1.0
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Rerank.Alpha < 0 || c.Rerank.Alpha > 1 {
		return fmt.Errorf("%w: rerank.alpha must be in [0,1], got %v", ErrInvalidConfig, c.Rerank.Alpha)
	}
	if c.Rerank.TopK <= 0 {
		return fmt.Errorf("%w: rerank.top_k must be positive", ErrInvalidConfig)
	}
	if c.Rerank.BatchSize <= 0 {
		return fmt.Errorf("%w: rerank.batch_size must be positive", ErrInvalidConfig)
	}
	for _, k := range c.Rerank.Cutoffs {
		if k < 1 {
			return fmt.Errorf("%w: rerank cutoff %d must be >= 1", ErrInvalidConfig, k)
		}
	}
	if c.Fallback.Store != "exact" && c.Fallback.Store != "chromem" {
		return fmt.Errorf("%w: fallback.store must be \"exact\" or \"chromem\", got %q", ErrInvalidConfig, c.Fallback.Store)
	}
	if c.Fallback.TopK <= 0 {
		return fmt.Errorf("%w: fallback.top_k must be positive", ErrInvalidConfig)
	}
	if c.Fallback.TopK >= c.Rerank.TopK {
		// The resolver may append the gold document after top_k neighbors;
		// the reranker only scores its first rerank.top_k candidates, so a
		// repaired list must fit inside that window.
		return fmt.Errorf("%w: fallback.top_k (%d) must be below rerank.top_k (%d) so repaired candidates stay inside the scoring window",
			ErrInvalidConfig, c.Fallback.TopK, c.Rerank.TopK)
	}
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return fmt.Errorf("%w: telemetry.endpoint required when telemetry is enabled", ErrInvalidConfig)
	}
	return nil
}
