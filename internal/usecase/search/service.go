// Package search fans a search intent out over the entity domains.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/nearby/internal/domain/entity"
	"github.com/kailas-cloud/nearby/internal/domain/geo"
	"github.com/kailas-cloud/nearby/internal/domain/intent"
	"github.com/kailas-cloud/nearby/internal/logger"
	"github.com/kailas-cloud/nearby/internal/metrics"
)

// Config holds orchestrator limits.
type Config struct {
	SemanticLimit int
	FallbackLimit int
	LegacyLimit   int
	// Concurrency bounds the per-domain goroutines. Zero means one per domain.
	Concurrency int
	RadiusKm    float64
}

// Orchestrator runs per-domain searches concurrently: semantic ids resolved
// against the store, with keyword search as the fallback.
type Orchestrator struct {
	store    EntityStore
	semantic SemanticSearcher
	cfg      Config
	now      func() time.Time
}

// New creates an orchestrator. semantic may be nil when the vector index is
// not configured; every domain then uses keyword search.
func New(store EntityStore, semantic SemanticSearcher, cfg Config) *Orchestrator {
	if cfg.SemanticLimit <= 0 {
		cfg.SemanticLimit = 20
	}
	if cfg.FallbackLimit <= 0 {
		cfg.FallbackLimit = 10
	}
	if cfg.LegacyLimit <= 0 {
		cfg.LegacyLimit = 10
	}
	return &Orchestrator{store: store, semantic: semantic, cfg: cfg, now: time.Now}
}

// Search executes a multi-domain search. Per-domain failures leave that
// domain empty; Search itself only fails when ctx is done.
func (o *Orchestrator) Search(ctx context.Context, in intent.Search, loc Locator) (*Bundle, error) {
	log := logger.FromContext(ctx)

	origin, err := o.location(ctx, in.LocationRequired, loc)
	if err != nil {
		return nil, err
	}

	entities := in.Prepared()
	domains := entities.Enabled()

	var ranked map[entity.Domain][]string
	batch, isBatch := o.semantic.(BatchSemanticSearcher)
	if isBatch {
		qs := make([]entity.SemanticQuery, 0, len(domains))
		for _, d := range domains {
			qs = append(qs, o.semanticQuery(d, entities[d]))
		}
		ranked, err = batch.SemanticSearchAll(ctx, qs)
		if err != nil {
			log.Warn("semantic search partially failed", zap.Error(err))
		}
	}

	results := make([][]entity.Record, len(domains))
	var g errgroup.Group
	limit := len(domains)
	if o.cfg.Concurrency > 0 && o.cfg.Concurrency < limit {
		limit = o.cfg.Concurrency
	}
	g.SetLimit(limit)
	for i, d := range domains {
		g.Go(func() error {
			ids := ranked[d]
			if !isBatch && o.semantic != nil {
				var err error
				ids, err = o.semantic.SemanticSearch(ctx, o.semanticQuery(d, entities[d]))
				if err != nil {
					log.Warn("semantic search failed", zap.String("domain", string(d)), zap.Error(err))
				}
			}
			results[i] = o.searchDomain(ctx, d, entities[d], ids, origin)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	bundle := &Bundle{
		Results: make(map[entity.Domain][]entity.Record, len(domains)),
		Meta: Meta{
			SearchType: in.SearchType,
			Query:      in.SearchText,
			Location:   origin,
			RadiusKm:   o.cfg.RadiusKm,
			Timestamp:  o.now().UTC(),
		},
	}
	for i, d := range domains {
		bundle.Results[d] = results[i]
	}

	log.Info("search completed",
		zap.Int("domains", len(domains)),
		zap.Int("total", bundle.Total()),
		zap.Bool("has_location", origin != nil),
	)
	return bundle, nil
}

// SearchLegacy runs the services-only keyword search of the legacy intent.
func (o *Orchestrator) SearchLegacy(ctx context.Context, in intent.Legacy, loc Locator) (*Bundle, error) {
	var origin *geo.Point
	if loc != nil {
		origin = loc.Known()
	}

	limit := in.Limit
	if limit <= 0 {
		limit = o.cfg.LegacyLimit
	}
	recs, err := o.store.SearchText(ctx, entity.Services, entity.KeywordQuery{
		Text:  in.Query,
		City:  in.City,
		Limit: limit,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("legacy search: %w", ctxErr)
		}
		metrics.DomainSearchTotal.WithLabelValues(string(entity.Services), "keyword", "error").Inc()
		logger.FromContext(ctx).Warn("legacy search failed", zap.Error(err))
		recs = nil
	} else {
		metrics.DomainSearchTotal.WithLabelValues(string(entity.Services), "keyword", "ok").Inc()
	}
	prepare(recs, entity.Services, origin)

	return &Bundle{
		Results: map[entity.Domain][]entity.Record{entity.Services: recs},
		Meta: Meta{
			SearchType: intent.SearchTypeService,
			Query:      in.Query,
			Location:   origin,
			RadiusKm:   o.cfg.RadiusKm,
			Timestamp:  o.now().UTC(),
		},
	}, nil
}

// location returns the origin for distance computation. A failed or timed-out
// request is not an error: the search proceeds without coordinates.
func (o *Orchestrator) location(ctx context.Context, required bool, loc Locator) (*geo.Point, error) {
	if loc == nil {
		return nil, nil
	}
	if p := loc.Known(); p != nil || !required {
		return p, nil
	}
	p, err := loc.Resolve(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("resolve location: %w", ctxErr)
		}
		logger.FromContext(ctx).Info("proceeding without location", zap.Error(err))
		return nil, nil
	}
	return p, nil
}

func (o *Orchestrator) semanticQuery(d entity.Domain, req intent.EntityRequest) entity.SemanticQuery {
	return entity.SemanticQuery{Domain: d, Text: req.Query, Role: req.RoleFilter, Limit: o.cfg.SemanticLimit}
}

// searchDomain resolves semantic ids against the store, falling back to
// keyword search when none resolve. Errors yield an empty domain.
func (o *Orchestrator) searchDomain(
	ctx context.Context, d entity.Domain, req intent.EntityRequest, ids []string, origin *geo.Point,
) []entity.Record {
	log := logger.FromContext(ctx).With(zap.String("domain", string(d)))

	var recs []entity.Record
	if len(ids) > 0 {
		found, err := o.store.FindByIDs(ctx, d, ids)
		if err != nil {
			o.domainFailed(ctx, d, "semantic", err)
			return nil
		}
		recs = found
	}

	source := "semantic"
	if len(recs) == 0 {
		source = "keyword"
		found, err := o.store.SearchText(ctx, d, entity.KeywordQuery{
			Text:  req.Query,
			Role:  req.RoleFilter,
			Limit: o.cfg.FallbackLimit,
		})
		if err != nil {
			o.domainFailed(ctx, d, source, err)
			return nil
		}
		recs = found
	}

	metrics.DomainSearchTotal.WithLabelValues(string(d), source, "ok").Inc()
	log.Debug("domain searched", zap.String("source", source), zap.Int("count", len(recs)))

	prepare(recs, d, origin)
	return recs
}

func (o *Orchestrator) domainFailed(ctx context.Context, d entity.Domain, source string, err error) {
	status := "error"
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		status = "canceled"
	}
	metrics.DomainSearchTotal.WithLabelValues(string(d), source, status).Inc()
	logger.FromContext(ctx).Warn("domain search failed",
		zap.String("domain", string(d)),
		zap.String("source", source),
		zap.Error(err),
	)
}

// prepare tags records with their domain and fills derived fields.
func prepare(recs []entity.Record, d entity.Domain, origin *geo.Point) {
	for i := range recs {
		recs[i].Domain = d
		recs[i].ApplyRatings()
		recs[i].ApplyDistance(origin)
	}
}
