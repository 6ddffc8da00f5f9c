package searchcache

import (
	"context"

	"github.com/kailas-cloud/nearby/internal/domain/snapshot"
)

// Store persists snapshots. Insert returns snapshot.ErrSlugTaken on a slug collision.
type Store interface {
	Exists(ctx context.Context, slug string) (bool, error)
	Insert(ctx context.Context, e *snapshot.Entry) error
	FindBySlug(ctx context.Context, slug string) (*snapshot.Entry, error)
	FindByID(ctx context.Context, id string) (*snapshot.Entry, error)
	IncrementViews(ctx context.Context, id string) (int64, error)
}

// ReadCache serves hot snapshots. Misses and failures are reported as false.
type ReadCache interface {
	BySlug(ctx context.Context, slug string) (*snapshot.Entry, bool)
	ByID(ctx context.Context, id string) (*snapshot.Entry, bool)
	Put(ctx context.Context, e *snapshot.Entry)
}
