// Package vector maintains and queries the per-domain FT vector indexes.
package vector

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/nearby/internal/db"
	"github.com/kailas-cloud/nearby/internal/domain"
	"github.com/kailas-cloud/nearby/internal/domain/entity"
)

// Hash fields of an indexed entity.
const (
	fieldEntityID = "entity_id"
	fieldRole     = "role"
	fieldCity     = "city"
	fieldName     = "name"
	fieldVector   = "vector"
)

// store is the consumer interface for the vector index (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	DropIndex(ctx context.Context, name string) error
}

// Config holds index layout settings.
type Config struct {
	KeyPrefix       string // e.g. "nearby:"
	Dimensions      int
	HNSWM           int
	HNSWEFConstruct int
}

// Repo implements the semantic search service over Redis/Valkey FT indexes.
type Repo struct {
	store    store
	embedder domain.Embedder
	cfg      Config
}

// New creates a vector repository. embedder produces query-side vectors.
func New(s store, embedder domain.Embedder, cfg Config) *Repo {
	return &Repo{store: s, embedder: embedder, cfg: cfg}
}

// IndexName returns the FT index of a domain.
func (r *Repo) IndexName(d entity.Domain) string {
	return r.cfg.KeyPrefix + "idx:" + string(d)
}

func (r *Repo) keyPrefix(d entity.Domain) string {
	return r.cfg.KeyPrefix + "vec:" + string(d) + ":"
}

// EnsureIndexes creates every missing domain index.
func (r *Repo) EnsureIndexes(ctx context.Context) error {
	for _, d := range entity.All {
		name := r.IndexName(d)
		exists, err := r.store.IndexExists(ctx, name)
		if err != nil {
			return fmt.Errorf("check index %s: %w", name, err)
		}
		if exists {
			continue
		}

		def, err := db.NewIndex(name).
			Prefix(r.keyPrefix(d)).
			Tag(fieldEntityID).
			Tag(fieldRole).
			Tag(fieldCity, ",").
			Text(fieldName).
			Vector(fieldVector, r.cfg.Dimensions, db.DistanceCosine, r.cfg.HNSWM, r.cfg.HNSWEFConstruct).
			Build()
		if err != nil {
			return fmt.Errorf("build index %s: %w", name, err)
		}
		if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
			return fmt.Errorf("create index %s: %w", name, err)
		}
	}
	return nil
}

// DropIndexes removes every domain index; missing ones are skipped.
// Hashes stay in place and are picked up again by EnsureIndexes.
func (r *Repo) DropIndexes(ctx context.Context) error {
	for _, d := range entity.All {
		name := r.IndexName(d)
		if err := r.store.DropIndex(ctx, name); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
			return fmt.Errorf("drop index %s: %w", name, err)
		}
	}
	return nil
}

// Upsert writes docs of one domain in a single round trip.
func (r *Repo) Upsert(ctx context.Context, d entity.Domain, docs []entity.IndexDocument) error {
	items := make([]db.HashSetItem, 0, len(docs))
	for _, doc := range docs {
		items = append(items, db.HashSetItem{
			Key: r.keyPrefix(d) + doc.Record.ID,
			Fields: map[string]string{
				fieldEntityID: doc.Record.ID,
				fieldRole:     strings.ToLower(doc.Record.Role),
				fieldCity:     strings.ToLower(doc.Record.City),
				fieldName:     doc.Record.Name,
				fieldVector:   string(db.EncodeVector(doc.Vector)),
			},
		})
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert %d %s: %w", len(items), d, err)
	}
	return nil
}

// SemanticSearch embeds q.Text and returns entity ids of q.Domain, nearest first.
func (r *Repo) SemanticSearch(ctx context.Context, q entity.SemanticQuery) ([]string, error) {
	res, err := r.embedder.Embed(ctx, q.Text)
	if err != nil {
		return nil, fmt.Errorf("embed %s query: %w", q.Domain, errors.Join(domain.ErrSemanticUnavailable, err))
	}
	return r.knn(ctx, q, res.Embedding)
}

// SemanticSearchAll embeds every query in one call, then runs one KNN per domain.
// A failing domain is reported in the joined error; the other domains still return ids.
func (r *Repo) SemanticSearchAll(ctx context.Context, qs []entity.SemanticQuery) (map[entity.Domain][]string, error) {
	out := make(map[entity.Domain][]string, len(qs))
	if len(qs) == 0 {
		return out, nil
	}

	texts := make([]string, len(qs))
	for i, q := range qs {
		texts[i] = q.Text
	}
	vecs, err := domain.EmbedAll(ctx, r.embedder, texts)
	if err != nil {
		return nil, fmt.Errorf("embed %d queries: %w", len(texts), errors.Join(domain.ErrSemanticUnavailable, err))
	}

	var errs []error
	for i, q := range qs {
		ids, err := r.knn(ctx, q, vecs.Embeddings[i])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[q.Domain] = ids
	}
	return out, errors.Join(errs...)
}

func (r *Repo) knn(ctx context.Context, q entity.SemanticQuery, vec []float32) ([]string, error) {
	k := q.Limit
	if k <= 0 {
		k = 20
	}
	knn := &db.KNNQuery{
		IndexName:    r.IndexName(q.Domain),
		Vector:       vec,
		K:            k,
		ReturnFields: []string{fieldEntityID, "__vector_score"},
	}
	if q.Role != "" {
		knn.Tags = []db.TagFilter{{Field: fieldRole, Values: []string{q.Role}}}
	}

	sr, err := r.store.SearchKNN(ctx, knn)
	if err != nil {
		return nil, fmt.Errorf("knn %s: %w", q.Domain, err)
	}

	ids := make([]string, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		id := e.Fields[fieldEntityID]
		if id == "" {
			id = strings.TrimPrefix(e.Key, r.keyPrefix(q.Domain))
		}
		ids = append(ids, id)
	}
	return ids, nil
}
