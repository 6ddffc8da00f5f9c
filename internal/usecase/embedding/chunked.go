// Package embedding holds embedder decorators that sit between the provider
// and the indexer.
package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/nearby/internal/domain"
	"github.com/kailas-cloud/nearby/internal/logger"
)

// DefaultMaxAPIBatchSize is the largest number of texts sent in one provider call.
const DefaultMaxAPIBatchSize = 256

// ChunkedEmbedder splits large batches into provider-sized calls and logs
// each completed request.
type ChunkedEmbedder struct {
	inner    domain.Embedder
	model    string
	maxBatch int
}

// NewChunkedEmbedder wraps inner. maxBatch <= 0 uses DefaultMaxAPIBatchSize.
func NewChunkedEmbedder(inner domain.Embedder, model string, maxBatch int) *ChunkedEmbedder {
	if maxBatch <= 0 {
		maxBatch = DefaultMaxAPIBatchSize
	}
	return &ChunkedEmbedder{inner: inner, model: model, maxBatch: maxBatch}
}

// Embed delegates to the inner embedder.
func (c *ChunkedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()
	res, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	logger.FromContext(ctx).Debug("embedding request completed",
		zap.String("model", c.model),
		zap.Duration("duration", time.Since(start)),
		zap.Int("dimensions", len(res.Embedding)),
		zap.Int("total_tokens", res.TotalTokens),
	)
	return res, nil
}

// BatchEmbed embeds texts in chunks of at most maxBatch, preserving order.
func (c *ChunkedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	start := time.Now()
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, 0, len(texts))}
	for offset := 0; offset < len(texts); offset += c.maxBatch {
		if err := ctx.Err(); err != nil {
			return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed (chunk %d): %w", offset, err)
		}
		end := min(offset+c.maxBatch, len(texts))

		res, err := domain.EmbedAll(ctx, c.inner, texts[offset:end])
		if err != nil {
			return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed (chunk %d): %w", offset, err)
		}
		if len(res.Embeddings) != end-offset {
			return domain.BatchEmbeddingResult{}, fmt.Errorf(
				"batch embed (chunk %d): got %d embeddings for %d texts", offset, len(res.Embeddings), end-offset)
		}
		out.Embeddings = append(out.Embeddings, res.Embeddings...)
		out.PromptTokens += res.PromptTokens
		out.TotalTokens += res.TotalTokens
	}

	logger.FromContext(ctx).Debug("batch embedding completed",
		zap.String("model", c.model),
		zap.Duration("duration", time.Since(start)),
		zap.Int("batch_size", len(texts)),
		zap.Int("total_tokens", out.TotalTokens),
	)
	return out, nil
}
