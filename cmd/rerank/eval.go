package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/rerank/internal/config"
	"github.com/fyrsmithlabs/rerank/internal/dataset"
	"github.com/fyrsmithlabs/rerank/internal/eval"
	"github.com/fyrsmithlabs/rerank/internal/fallback"
	"github.com/fyrsmithlabs/rerank/internal/logging"
	"github.com/fyrsmithlabs/rerank/internal/pipeline"
	"github.com/fyrsmithlabs/rerank/internal/rerank"
	"github.com/fyrsmithlabs/rerank/internal/telemetry"
	"github.com/fyrsmithlabs/rerank/pkg/embeddings"
	"github.com/fyrsmithlabs/rerank/pkg/scorer"
)

var (
	evalConfigPath string
	evalSplit      string
	evalAlpha      float64
	evalTopK       int
	evalBatchSize  int
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate reranking strategies over a dataset split",
	Long: `Evaluate runs the single-pass and blended reranking strategies over the
configured split and prints MRR@K and Recall@K for each.

Examples:
  # Evaluate the split named in the config
  rerank eval --config config.yaml

  # Evaluate the dev split with a different blend weight
  rerank eval --config config.yaml --split dev --alpha 0.5`,
	RunE: runEval,
}

func init() {
	evalCmd.Flags().StringVar(&evalConfigPath, "config", "", "path to YAML config file")
	evalCmd.Flags().StringVar(&evalSplit, "split", "", "dataset split to evaluate (overrides config)")
	evalCmd.Flags().Float64Var(&evalAlpha, "alpha", 0, "blend weight for model scores vs rank prior (overrides config)")
	evalCmd.Flags().IntVar(&evalTopK, "top-k", 0, "number of candidates to rerank (overrides config)")
	evalCmd.Flags().IntVar(&evalBatchSize, "batch-size", 0, "scoring batch size (overrides config)")
}

func runEval(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(evalConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applyFlagOverrides(cmd, cfg)

	logger, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Fields: map[string]string{"service": cfg.Telemetry.ServiceName},
	})
	if err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Insecure:    cfg.Telemetry.Insecure,
		SampleRate:  cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	reports, err := evaluate(ctx, cfg, logger)
	if err != nil {
		return err
	}
	for _, report := range reports {
		fmt.Fprintln(os.Stdout, report.String())
	}
	return nil
}

// applyFlagOverrides copies explicitly set flags over the loaded config so
// flag > env > file precedence holds.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("split") {
		cfg.Data.Split = evalSplit
	}
	if cmd.Flags().Changed("alpha") {
		cfg.Rerank.Alpha = evalAlpha
	}
	if cmd.Flags().Changed("top-k") {
		cfg.Rerank.TopK = evalTopK
	}
	if cmd.Flags().Changed("batch-size") {
		cfg.Rerank.BatchSize = evalBatchSize
	}
}

func evaluate(ctx context.Context, cfg *config.Config, logger *zap.Logger) ([]eval.Report, error) {
	corpus, err := dataset.LoadCorpus(cfg.Data.CorpusPath)
	if err != nil {
		return nil, fmt.Errorf("loading corpus: %w", err)
	}
	candidates, err := dataset.LoadCandidates(cfg.Data.CandidatesPath)
	if err != nil {
		return nil, fmt.Errorf("loading candidates: %w", err)
	}
	split, err := dataset.LoadSplit(cfg.Data.Split, cfg.Data.QueriesPath, cfg.Data.LabelsPath)
	if err != nil {
		return nil, fmt.Errorf("loading split %q: %w", cfg.Data.Split, err)
	}
	logger.Info("dataset loaded",
		zap.String("split", split.Name),
		zap.Int("corpus_docs", corpus.Len()),
		zap.Int("queries", len(split.Items)))

	embedService, err := embeddings.NewService(embeddings.Config{
		BaseURL: cfg.Embeddings.BaseURL,
		Model:   cfg.Embeddings.Model,
		APIKey:  cfg.Embeddings.APIKey.Value(),
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedding service: %w", err)
	}

	vectors, err := pipeline.EmbedCorpus(ctx, embedService, corpus, cfg.Embeddings.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("embedding corpus: %w", err)
	}
	logger.Info("corpus embedded", zap.Int("vectors", len(vectors)))

	searcher, err := newSearcher(ctx, cfg.Fallback.Store, corpus.IDs(), vectors)
	if err != nil {
		return nil, fmt.Errorf("creating %s searcher: %w", cfg.Fallback.Store, err)
	}
	resolver, err := fallback.NewResolver(embedService, searcher, corpus.IDs(), logger)
	if err != nil {
		return nil, fmt.Errorf("creating fallback resolver: %w", err)
	}

	llm, err := scorer.NewLLMScorer(scorer.Config{
		BaseURL:           cfg.Scorer.BaseURL,
		Model:             cfg.Scorer.Model,
		APIKey:            cfg.Scorer.APIKey.Value(),
		MaxDocumentChars:  cfg.Scorer.MaxDocumentChars,
		Seed:              cfg.Scorer.Seed,
		RequestsPerSecond: cfg.Scorer.RequestsPerSecond,
		Timeout:           cfg.Scorer.Timeout.Duration(),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating scorer: %w", err)
	}

	singlePass, err := rerank.NewSinglePass(llm, corpus, rerank.SinglePassConfig{
		TopK:      cfg.Rerank.TopK,
		BatchSize: cfg.Rerank.BatchSize,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating single-pass reranker: %w", err)
	}
	blended, err := rerank.NewBlended(llm, corpus, rerank.BlendedConfig{
		TopK:      cfg.Rerank.TopK,
		BatchSize: cfg.Rerank.BatchSize,
		Alpha:     cfg.Rerank.Alpha,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating blended reranker: %w", err)
	}

	pipe, err := pipeline.New(candidates, resolver, []pipeline.Strategy{
		{Name: "single_pass", Reranker: singlePass},
		{Name: "blended", Reranker: blended, Repair: true},
	}, pipeline.Config{
		Cutoffs:    cfg.Rerank.Cutoffs,
		RepairTopK: cfg.Fallback.TopK,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline: %w", err)
	}

	return pipe.EvaluateSplit(ctx, split)
}

// newSearcher builds the nearest-neighbor backend for fallback repair.
func newSearcher(ctx context.Context, store string, ids []string, vectors [][]float32) (fallback.Searcher, error) {
	switch store {
	case "chromem":
		return fallback.NewChromemSearcher(ctx, ids, vectors)
	default:
		return fallback.NewExactSearcher(ids, vectors)
	}
}
