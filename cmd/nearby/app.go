package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/nearby/internal/config"
	dbRedis "github.com/kailas-cloud/nearby/internal/db/redis"
	"github.com/kailas-cloud/nearby/internal/db/sqlstore"
	"github.com/kailas-cloud/nearby/internal/domain"
	"github.com/kailas-cloud/nearby/internal/metrics"
	"github.com/kailas-cloud/nearby/internal/repository/embcache"
	entityrepo "github.com/kailas-cloud/nearby/internal/repository/entity"
	searchcacherepo "github.com/kailas-cloud/nearby/internal/repository/searchcache"
	"github.com/kailas-cloud/nearby/internal/repository/snapshotcache"
	"github.com/kailas-cloud/nearby/internal/repository/vector"
	openaiTransport "github.com/kailas-cloud/nearby/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/nearby/internal/usecase/embedding"
	"github.com/kailas-cloud/nearby/internal/usecase/searchcache"
)

// stores are the opened backends. redis is nil when it is not configured or
// not reachable; semantic search and the read caches are then disabled.
type stores struct {
	db    *sqlstore.DB
	redis *dbRedis.Store
}

func (s *stores) Close() {
	if s.redis != nil {
		s.redis.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}

// openStores opens SQLite and, when configured, Redis. A Redis failure is
// fatal only when requireRedis is set.
func (e *env) openStores(ctx context.Context, requireRedis bool) (*stores, error) {
	db, err := sqlstore.Open(ctx, e.cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	s := &stores{db: db}

	rc := e.cfg.Redis
	if len(rc.Addrs) == 0 {
		if requireRedis {
			s.Close()
			return nil, fmt.Errorf("redis.addrs is required")
		}
		e.logger.Warn("redis not configured, semantic search disabled")
		return s, nil
	}

	r, err := dbRedis.NewStore(dbRedis.Config{Addrs: rc.Addrs, Password: rc.Password})
	if err == nil {
		err = r.WaitForReady(ctx, time.Duration(rc.ReadinessTimeout)*time.Second)
		if err != nil {
			r.Close()
		}
	}
	if err != nil {
		if requireRedis {
			s.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		e.logger.Warn("redis unavailable, semantic search disabled", zap.Error(err))
		return s, nil
	}

	e.logger.Info("connected to redis", zap.Strings("addrs", rc.Addrs))
	s.redis = r
	return s, nil
}

// completer builds a chat completer for a model role, or nil when its
// provider has no API key.
func (e *env) completer(role string, m config.ModelConfig) *openaiTransport.Completer {
	prov := e.cfg.LLM.Providers[m.Provider]
	if prov.APIKey == "" {
		e.logger.Warn("llm provider has no api key", zap.String("llm_role", role), zap.String("provider", m.Provider))
		return nil
	}
	return openaiTransport.NewCompleter(&openaiTransport.CompleterConfig{
		APIKey:      prov.APIKey,
		BaseURL:     prov.BaseURL,
		Role:        role,
		Model:       m.Model,
		MaxTokens:   m.MaxTokens,
		Temperature: m.Temperature,
		JSONMode:    true,
		Timeout:     m.Timeout(),
		Logger:      e.logger,
	})
}

// embedder assembles the decorator chain: OpenAI -> Cached -> Chunked, or
// returns nil when the embedding provider has no API key.
func (e *env) embedder(redis *dbRedis.Store) domain.Embedder {
	ec := e.cfg.LLM.Embedding
	prov := e.cfg.LLM.Providers[ec.Provider]
	if prov.APIKey == "" {
		e.logger.Warn("embedding provider has no api key", zap.String("provider", ec.Provider))
		return nil
	}

	var emb domain.Embedder = openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     prov.APIKey,
		BaseURL:    prov.BaseURL,
		Model:      ec.Model,
		Dimensions: ec.Dimensions,
		Provider:   ec.Provider,
		Logger:     e.logger,
	})
	if redis != nil {
		prefix := e.cfg.Redis.KeyPrefix + "emb:" + ec.Model + ":"
		emb = embcache.New(emb, redis, prefix, metrics.EmbeddingCacheTotal, e.logger)
	}
	return embeddinguc.NewChunkedEmbedder(emb, ec.Model, 0)
}

// vectorRepo returns the per-domain FT index repository. queryEmbedder gets
// the query instruction prefix when one is configured.
func (e *env) vectorRepo(redis *dbRedis.Store, emb domain.Embedder) *vector.Repo {
	query := emb
	if in := e.cfg.LLM.Embedding.QueryInstruction; in != "" {
		query = domain.NewInstructionEmbedder(emb, in)
	}
	return vector.New(redis, query, vector.Config{
		KeyPrefix:       e.cfg.Redis.KeyPrefix,
		Dimensions:      e.cfg.LLM.Embedding.Dimensions,
		HNSWM:           e.cfg.Redis.HNSWM,
		HNSWEFConstruct: e.cfg.Redis.HNSWEFConstruct,
	})
}

func (e *env) entityRepo(s *stores) *entityrepo.Repo {
	return entityrepo.New(s.db.DB)
}

// snapshots builds the cache manager, with the Redis read cache when available.
func (e *env) snapshots(s *stores) *searchcache.Manager {
	var cache searchcache.ReadCache
	if s.redis != nil {
		cache = snapshotcache.New(s.redis, e.cfg.Redis.KeyPrefix+"snap:",
			time.Duration(e.cfg.Cache.SnapshotTTLSec)*time.Second, e.logger)
	}
	return searchcache.New(searchcacherepo.New(s.db.DB), cache, searchcache.Config{
		ShareBaseURL:    e.cfg.Cache.ShareBaseURL,
		MaxSlugAttempts: e.cfg.Cache.MaxSlugAttempts,
	})
}
