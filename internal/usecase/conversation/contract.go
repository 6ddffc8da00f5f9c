package conversation

import (
	"context"

	domconv "github.com/kailas-cloud/nearby/internal/domain/conversation"
	"github.com/kailas-cloud/nearby/internal/domain/entity"
	"github.com/kailas-cloud/nearby/internal/domain/intent"
	"github.com/kailas-cloud/nearby/internal/domain/result"
	"github.com/kailas-cloud/nearby/internal/usecase/search"
	"github.com/kailas-cloud/nearby/internal/usecase/searchcache"
)

// Classifier maps the conversation so far to one intent.
type Classifier interface {
	Classify(ctx context.Context, history []domconv.Turn) (intent.Result, error)
}

// Searcher runs searches for the two search intents.
type Searcher interface {
	Search(ctx context.Context, in intent.Search, loc search.Locator) (*search.Bundle, error)
	SearchLegacy(ctx context.Context, in intent.Legacy, loc search.Locator) (*search.Bundle, error)
}

// Normalizer maps raw records to the unified schema.
type Normalizer interface {
	Normalize(ctx context.Context, recs []entity.Record, query string, searchType intent.SearchType) result.Set
}

// SnapshotSaver persists shareable results.
type SnapshotSaver interface {
	Save(ctx context.Context, req searchcache.SaveRequest) (searchcache.Saved, error)
}

// Session is the caller's side of one conversation.
type Session interface {
	ID() string
	History() *domconv.History
	Locator() search.Locator
	Reply(ctx context.Context, text string) error
	Results(ctx context.Context, r Results) error
	Notice(ctx context.Context, n Notice) error
}
