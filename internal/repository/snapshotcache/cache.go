// Package snapshotcache keeps hot shared snapshots in the key-value store.
package snapshotcache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/nearby/internal/db"
	"github.com/kailas-cloud/nearby/internal/domain/snapshot"
)

// store is the consumer interface for the snapshot cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Cache is a best-effort TTL cache: every failure degrades to a miss.
type Cache struct {
	store  store
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// New creates a snapshot cache. Keys are prefix + "slug:<slug>" or prefix + "id:<id>".
func New(s store, prefix string, ttl time.Duration, logger *zap.Logger) *Cache {
	return &Cache{store: s, prefix: prefix, ttl: ttl, logger: logger}
}

// BySlug returns the cached entry for slug.
func (c *Cache) BySlug(ctx context.Context, slug string) (*snapshot.Entry, bool) {
	return c.get(ctx, c.prefix+"slug:"+slug)
}

// ByID returns the cached entry for id.
func (c *Cache) ByID(ctx context.Context, id string) (*snapshot.Entry, bool) {
	return c.get(ctx, c.prefix+"id:"+id)
}

// Put caches e under both its slug and its id.
func (c *Cache) Put(ctx context.Context, e *snapshot.Entry) {
	data, err := json.Marshal(e)
	if err != nil {
		c.logger.Warn("failed to encode snapshot", zap.String("id", e.ID), zap.Error(err))
		return
	}
	for _, key := range []string{c.prefix + "slug:" + e.Slug, c.prefix + "id:" + e.ID} {
		if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
			c.logger.Warn("failed to cache snapshot", zap.String("key", key), zap.Error(err))
		}
	}
}

func (c *Cache) get(ctx context.Context, key string) (*snapshot.Entry, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("failed to read cached snapshot", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var e snapshot.Entry
	if err := json.Unmarshal(data, &e); err != nil {
		c.logger.Warn("failed to decode cached snapshot", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &e, true
}
