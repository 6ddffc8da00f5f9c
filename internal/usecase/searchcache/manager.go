// Package searchcache stores shareable search snapshots under unique slugs.
package searchcache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/nearby/internal/domain/geo"
	"github.com/kailas-cloud/nearby/internal/domain/result"
	"github.com/kailas-cloud/nearby/internal/domain/slug"
	"github.com/kailas-cloud/nearby/internal/domain/snapshot"
	"github.com/kailas-cloud/nearby/internal/logger"
	"github.com/kailas-cloud/nearby/internal/metrics"
)

// uniqueAttempts is the number of timestamp slugs tried after the suffixes.
const uniqueAttempts = 2

// Config holds cache manager settings.
type Config struct {
	ShareBaseURL    string
	MaxSlugAttempts int
}

// SaveRequest is one completed search.
type SaveRequest struct {
	Query      string
	Set        result.Set
	Location   *geo.Point
	RadiusKm   float64
	SearchType string
	SearchedAt time.Time
}

// Saved identifies a stored snapshot.
type Saved struct {
	ID       string `json:"id"`
	Slug     string `json:"slug"`
	ShareURL string `json:"shareUrl"`
}

// Manager allocates slugs, stores snapshots and serves them back.
type Manager struct {
	store  Store
	cache  ReadCache
	cfg    Config
	now    func() time.Time
	random func() string
	newID  func() string
}

// New creates a manager. cache may be nil.
func New(store Store, cache ReadCache, cfg Config) *Manager {
	if cfg.MaxSlugAttempts <= 0 {
		cfg.MaxSlugAttempts = 5
	}
	cfg.ShareBaseURL = strings.TrimRight(cfg.ShareBaseURL, "/")
	return &Manager{
		store:  store,
		cache:  cache,
		cfg:    cfg,
		now:    time.Now,
		random: randomToken,
		newID:  uuid.NewString,
	}
}

// Save stores the snapshot under the query's slug, a numbered variant of it,
// or a timestamp-based slug, in that order.
func (m *Manager) Save(ctx context.Context, req SaveRequest) (Saved, error) {
	base := slug.From(req.Query)
	entry := &snapshot.Entry{
		ID:          m.newID(),
		Query:       req.Query,
		Description: describe(req.Set.Summary.Total, req.Query),
		Payload: snapshot.Payload{
			Results:    req.Set.Results,
			Facets:     req.Set.Facets,
			Summary:    req.Set.Summary,
			Location:   req.Location,
			RadiusKm:   req.RadiusKm,
			SearchType: req.SearchType,
			SearchedAt: req.SearchedAt.UTC(),
		},
		CreatedAt: m.now().UTC(),
	}

	outcome, err := m.insert(ctx, entry, base)
	metrics.CacheWritesTotal.WithLabelValues(outcome).Inc()
	if err != nil {
		return Saved{}, err
	}

	logger.FromContext(ctx).Info("search snapshot saved",
		zap.String("snapshot_id", entry.ID),
		zap.String("slug", entry.Slug),
		zap.String("slug_outcome", outcome),
	)
	return Saved{ID: entry.ID, Slug: entry.Slug, ShareURL: m.ShareURL(entry.Slug)}, nil
}

// ShareURL returns the public link for slug.
func (m *Manager) ShareURL(s string) string {
	return m.cfg.ShareBaseURL + "/s/" + s
}

// insert tries the candidate slugs and reports which stage succeeded.
func (m *Manager) insert(ctx context.Context, e *snapshot.Entry, base string) (string, error) {
	candidates := make([]string, 0, m.cfg.MaxSlugAttempts+1)
	candidates = append(candidates, base)
	for n := 1; n <= m.cfg.MaxSlugAttempts; n++ {
		candidates = append(candidates, slug.WithSuffix(base, n))
	}

	for i, c := range candidates {
		taken, err := m.store.Exists(ctx, c)
		if err != nil {
			return "error", fmt.Errorf("check slug: %w", err)
		}
		if taken {
			continue
		}
		e.Slug = c
		err = m.store.Insert(ctx, e)
		if err == nil {
			if i == 0 {
				return "base", nil
			}
			return "suffixed", nil
		}
		if !errors.Is(err, snapshot.ErrSlugTaken) {
			return "error", fmt.Errorf("save snapshot: %w", err)
		}
		// Lost an insert race; the timestamp slug avoids further contention.
		break
	}

	for range uniqueAttempts {
		e.Slug = slug.Unique(base, m.now().UnixMilli(), m.random())
		err := m.store.Insert(ctx, e)
		if err == nil {
			return "unique", nil
		}
		if !errors.Is(err, snapshot.ErrSlugTaken) {
			return "error", fmt.Errorf("save snapshot: %w", err)
		}
	}
	return "exhausted", fmt.Errorf("%w: base %q", ErrSlugExhausted, base)
}

// GetBySlug returns the snapshot for slug and counts the view.
func (m *Manager) GetBySlug(ctx context.Context, s string) (*snapshot.Entry, error) {
	return m.get(ctx, s, m.cacheBySlug, m.store.FindBySlug)
}

// GetByID returns the snapshot with id and counts the view.
func (m *Manager) GetByID(ctx context.Context, id string) (*snapshot.Entry, error) {
	return m.get(ctx, id, m.cacheByID, m.store.FindByID)
}

func (m *Manager) cacheBySlug(ctx context.Context, s string) (*snapshot.Entry, bool) {
	if m.cache == nil {
		return nil, false
	}
	return m.cache.BySlug(ctx, s)
}

func (m *Manager) cacheByID(ctx context.Context, id string) (*snapshot.Entry, bool) {
	if m.cache == nil {
		return nil, false
	}
	return m.cache.ByID(ctx, id)
}

func (m *Manager) get(
	ctx context.Context,
	key string,
	cached func(context.Context, string) (*snapshot.Entry, bool),
	find func(context.Context, string) (*snapshot.Entry, error),
) (*snapshot.Entry, error) {
	e, ok := cached(ctx, key)
	if !ok {
		var err error
		e, err = find(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("find snapshot: %w", err)
		}
		if m.cache != nil {
			m.cache.Put(ctx, e)
		}
	}

	views, err := m.store.IncrementViews(ctx, e.ID)
	if err != nil {
		logger.FromContext(ctx).Warn("failed to count snapshot view", zap.String("snapshot_id", e.ID), zap.Error(err))
		return e, nil
	}
	e.ViewCount = views
	return e, nil
}

func describe(total int, query string) string {
	return fmt.Sprintf("%d results for %q", total, query)
}

func randomToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
