package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/nearby/internal/domain/entity"
	"github.com/kailas-cloud/nearby/internal/metrics"
	"github.com/kailas-cloud/nearby/internal/usecase/indexer"
)

func newReindexCmd(e *env) *cobra.Command {
	var workers, batchSize int
	var recreate bool
	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Embed every entity and write it to the vector indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if workers > 0 {
				e.cfg.Indexer.Workers = workers
			}
			if batchSize > 0 {
				e.cfg.Indexer.BatchSize = batchSize
			}
			return e.reindex(cmd.Context(), recreate)
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent embedding batches (default from config)")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "records per embedding batch (default from config)")
	cmd.Flags().BoolVar(&recreate, "recreate", false, "drop the vector indexes first, e.g. after changing dimensions")
	return cmd
}

func (e *env) reindex(ctx context.Context, recreate bool) error {
	metrics.Register()

	s, err := e.openStores(ctx, true)
	if err != nil {
		return err
	}
	defer s.Close()

	emb := e.embedder(s.redis)
	if emb == nil {
		return errors.New("embedding provider api key is required")
	}

	vectors := e.vectorRepo(s.redis, emb)
	if recreate {
		if err := vectors.DropIndexes(ctx); err != nil {
			return fmt.Errorf("drop vector indexes: %w", err)
		}
		e.logger.Info("vector indexes dropped")
	}

	svc := indexer.New(e.entityRepo(s), emb, vectors, indexer.Config{
		Workers:   e.cfg.Indexer.Workers,
		BatchSize: e.cfg.Indexer.BatchSize,
	})

	report, err := svc.Reindex(ctx)
	for _, d := range entity.All {
		e.logger.Info("domain reindexed",
			zap.String("domain", string(d)),
			zap.Int("indexed", report.Indexed[d]),
			zap.Int("failed", report.Failed[d]),
		)
	}
	if err != nil {
		return fmt.Errorf("reindex: %w", err)
	}
	return nil
}
