package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/nearby/internal/metrics"
	chiTransport "github.com/kailas-cloud/nearby/internal/transport/chi"
	"github.com/kailas-cloud/nearby/internal/transport/ws"
	"github.com/kailas-cloud/nearby/internal/usecase/classify"
	"github.com/kailas-cloud/nearby/internal/usecase/conversation"
	healthuc "github.com/kailas-cloud/nearby/internal/usecase/health"
	"github.com/kailas-cloud/nearby/internal/usecase/normalize"
	searchuc "github.com/kailas-cloud/nearby/internal/usecase/search"
	"github.com/kailas-cloud/nearby/internal/version"
)

func newServeCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the websocket and HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return e.serve(ctx)
		},
	}
}

func (e *env) serve(ctx context.Context) error {
	cfg := e.cfg
	log := e.logger

	log.Info("Starting nearby server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", e.name),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_path", cfg.Database.Path),
		zap.Strings("redis_addrs", cfg.Redis.Addrs),
	)

	metrics.Register()

	s, err := e.openStores(ctx, false)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	classifierLLM := e.completer("classifier", cfg.LLM.Classifier)
	if classifierLLM == nil {
		return errors.New("classifier provider api key is required")
	}
	classifier := classify.New(classifierLLM, classify.Config{
		MaxResponseChars: cfg.LLM.Classifier.MaxResponseChars,
		FallbackReply:    cfg.Conversation.FallbackReply,
	})

	// Pass nil interfaces, not typed nil pointers, for the optional parts.
	var transformer normalize.Transformer
	if c := e.completer("transformer", cfg.LLM.Transformer); c != nil {
		transformer = c
	}
	normalizer := normalize.New(transformer, normalize.Config{
		Timeout:          cfg.LLM.Transformer.Timeout(),
		MaxResponseChars: cfg.LLM.Transformer.MaxResponseChars,
	})

	var semantic searchuc.SemanticSearcher
	var redisPinger healthuc.DBPinger
	if s.redis != nil {
		redisPinger = s.redis
		if emb := e.embedder(s.redis); emb != nil {
			semantic = e.vectorRepo(s.redis, emb)
		}
	}
	orchestrator := searchuc.New(e.entityRepo(s), semantic, searchuc.Config{
		SemanticLimit: cfg.Search.SemanticLimit,
		FallbackLimit: cfg.Search.FallbackLimit,
		LegacyLimit:   cfg.Search.LegacyLimit,
		Concurrency:   cfg.Search.Concurrency,
		RadiusKm:      cfg.Search.RadiusKm,
	})

	snapshots := e.snapshots(s)
	controller := conversation.New(classifier, orchestrator, normalizer, snapshots, conversation.Config{
		MaxIterations:   cfg.Conversation.MaxIterations,
		ClassifyTimeout: time.Duration(cfg.Conversation.ClassifyTimeoutSec) * time.Second,
	})

	sessions := ws.NewServer(controller, ws.Config{
		LocationTimeout: time.Duration(cfg.Search.LocationTimeoutSec) * time.Second,
		HistoryLimit:    cfg.Conversation.HistoryLimit,
	})
	defer sessions.Close()

	health := healthuc.New(s.db, redisPinger, classifierLLM)
	api := chiTransport.NewServer(snapshots, health, log)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           chiTransport.NewRouter(api, sessions, cfg.Auth.APIKeys, log),
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info("Received shutdown signal")
	}

	// Hijacked websocket connections are not tracked by Shutdown.
	sessions.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Error during shutdown", zap.Error(err))
	}

	log.Info("Server stopped gracefully")
	return nil
}
