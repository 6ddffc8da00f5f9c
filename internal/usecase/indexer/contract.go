package indexer

import (
	"context"

	"github.com/kailas-cloud/nearby/internal/domain/entity"
)

// EntityLister reads every record of a domain.
type EntityLister interface {
	ListAll(ctx context.Context, d entity.Domain) ([]entity.Record, error)
}

// IndexWriter maintains the per-domain vector indexes.
type IndexWriter interface {
	EnsureIndexes(ctx context.Context) error
	Upsert(ctx context.Context, d entity.Domain, docs []entity.IndexDocument) error
}
