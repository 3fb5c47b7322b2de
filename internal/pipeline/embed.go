package pipeline

import (
	"context"
	"fmt"
	"math"

	"github.com/fyrsmithlabs/rerank/internal/dataset"
)

// DocumentEmbedder embeds batches of document texts.
type DocumentEmbedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedCorpus computes one L2-normalized vector per corpus document, in
// corpus iteration order, batching embedder calls. Vectors live in memory
// only; nothing is persisted.
func EmbedCorpus(ctx context.Context, embedder DocumentEmbedder, corpus *dataset.Corpus, batchSize int) ([][]float32, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if corpus == nil || corpus.Len() == 0 {
		return nil, fmt.Errorf("%w: corpus is required", ErrInvalidConfig)
	}
	if batchSize <= 0 {
		batchSize = 32
	}

	ids := corpus.IDs()
	vectors := make([][]float32, 0, len(ids))
	for start := 0; start < len(ids); start += batchSize {
		end := min(start+batchSize, len(ids))

		texts := make([]string, 0, end-start)
		for _, id := range ids[start:end] {
			text, _ := corpus.Text(id)
			texts = append(texts, text)
		}

		batch, err := embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embedding corpus batch starting at %q: %w", ids[start], err)
		}
		if len(batch) != len(texts) {
			return nil, fmt.Errorf("%w: embedder returned %d vectors for %d texts", ErrInvalidConfig, len(batch), len(texts))
		}
		for _, vec := range batch {
			vectors = append(vectors, l2Normalize(vec))
		}
	}
	return vectors, nil
}

// l2Normalize scales vec to unit length. Zero vectors pass through
// unchanged.
func l2Normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	norm := float32(math.Sqrt(sum))
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = v / norm
	}
	return out
}
