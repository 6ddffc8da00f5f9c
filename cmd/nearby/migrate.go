package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/nearby/internal/db/sqlstore"
)

func newMigrateCmd(e *env) *cobra.Command {
	var seedPath string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the SQLite schema and the per-domain vector indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.migrate(cmd.Context(), seedPath)
		},
	}
	cmd.Flags().StringVar(&seedPath, "seed", "", "YAML file of shops, providers, services, products and ratings to load")
	return cmd
}

func (e *env) migrate(ctx context.Context, seedPath string) error {
	s, err := e.openStores(ctx, false)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	e.logger.Info("database schema ready", zap.String("path", e.cfg.Database.Path))

	if seedPath != "" {
		seed, err := sqlstore.LoadSeed(seedPath)
		if err != nil {
			return fmt.Errorf("load seed: %w", err)
		}
		if err := s.db.ApplySeed(ctx, seed); err != nil {
			return fmt.Errorf("apply seed: %w", err)
		}
		e.logger.Info("seed applied",
			zap.String("path", seedPath),
			zap.Int("shops", len(seed.Shops)),
			zap.Int("providers", len(seed.Providers)),
			zap.Int("services", len(seed.Services)),
			zap.Int("products", len(seed.Products)),
		)
	}

	if s.redis == nil {
		return nil
	}
	if err := e.vectorRepo(s.redis, nil).EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("create vector indexes: %w", err)
	}
	e.logger.Info("vector indexes ready")
	return nil
}
