package search

import (
	"context"

	"github.com/kailas-cloud/nearby/internal/domain/entity"
	"github.com/kailas-cloud/nearby/internal/domain/geo"
)

// EntityStore reads domain records from the relational store.
type EntityStore interface {
	FindByIDs(ctx context.Context, d entity.Domain, ids []string) ([]entity.Record, error)
	SearchText(ctx context.Context, d entity.Domain, q entity.KeywordQuery) ([]entity.Record, error)
}

// SemanticSearcher returns entity ids ranked by semantic similarity.
type SemanticSearcher interface {
	SemanticSearch(ctx context.Context, q entity.SemanticQuery) ([]string, error)
}

// BatchSemanticSearcher answers several domains with one call. Domains that
// failed are absent from the returned map.
type BatchSemanticSearcher interface {
	SemanticSearcher
	SemanticSearchAll(ctx context.Context, qs []entity.SemanticQuery) (map[entity.Domain][]string, error)
}

// Locator provides the session's location.
type Locator interface {
	Known() *geo.Point
	Resolve(ctx context.Context) (*geo.Point, error)
}
