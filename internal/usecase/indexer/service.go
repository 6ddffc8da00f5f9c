// Package indexer embeds relational entities into the vector indexes.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/nearby/internal/domain"
	"github.com/kailas-cloud/nearby/internal/domain/entity"
	"github.com/kailas-cloud/nearby/internal/logger"
)

const releaseTimeout = 10 * time.Second

// Config holds worker pool settings.
type Config struct {
	Workers   int
	BatchSize int
}

// Report counts indexed and failed records per domain.
type Report struct {
	Indexed map[entity.Domain]int
	Failed  map[entity.Domain]int
}

// Service rebuilds the vector indexes from the relational store.
type Service struct {
	lister   EntityLister
	embedder domain.Embedder
	writer   IndexWriter
	cfg      Config
}

// New creates an indexer.
func New(lister EntityLister, embedder domain.Embedder, writer IndexWriter, cfg Config) *Service {
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Service{lister: lister, embedder: embedder, writer: writer, cfg: cfg}
}

// Reindex creates missing indexes and upserts every entity. Batches are
// embedded and written concurrently; failed batches are counted and joined
// into the returned error.
func (s *Service) Reindex(ctx context.Context) (Report, error) {
	log := logger.FromContext(ctx)

	if err := s.writer.EnsureIndexes(ctx); err != nil {
		return Report{}, fmt.Errorf("ensure indexes: %w", err)
	}

	pool, err := ants.NewPool(s.cfg.Workers)
	if err != nil {
		return Report{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer func() {
		if err := pool.ReleaseTimeout(releaseTimeout); err != nil {
			log.Warn("worker pool release timed out", zap.Error(err))
		}
	}()

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		errs []error
	)
	report := Report{Indexed: map[entity.Domain]int{}, Failed: map[entity.Domain]int{}}
	record := func(d entity.Domain, n int, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			report.Failed[d] += n
			errs = append(errs, err)
			return
		}
		report.Indexed[d] += n
	}

	for _, d := range entity.All {
		recs, err := s.lister.ListAll(ctx, d)
		if err != nil {
			wg.Wait()
			return report, fmt.Errorf("list %s: %w", d, err)
		}
		log.Info("indexing domain", zap.String("domain", string(d)), zap.Int("records", len(recs)))

		for start := 0; start < len(recs); start += s.cfg.BatchSize {
			batch := recs[start:min(start+s.cfg.BatchSize, len(recs))]
			wg.Add(1)
			submitErr := pool.Submit(func() {
				defer wg.Done()
				record(d, len(batch), s.indexBatch(ctx, d, batch))
			})
			if submitErr != nil {
				wg.Done()
				record(d, len(batch), fmt.Errorf("submit %s batch: %w", d, submitErr))
			}
		}
	}
	wg.Wait()

	for _, d := range entity.All {
		log.Info("domain indexed",
			zap.String("domain", string(d)),
			zap.Int("indexed", report.Indexed[d]),
			zap.Int("failed", report.Failed[d]),
		)
	}
	return report, errors.Join(errs...)
}

func (s *Service) indexBatch(ctx context.Context, d entity.Domain, recs []entity.Record) error {
	texts := make([]string, len(recs))
	for i := range recs {
		texts[i] = EmbeddingText(&recs[i])
	}

	res, err := domain.EmbedAll(ctx, s.embedder, texts)
	if err != nil {
		return fmt.Errorf("embed %s batch: %w", d, err)
	}
	if len(res.Embeddings) != len(recs) {
		return fmt.Errorf("embed %s batch: got %d vectors for %d records", d, len(res.Embeddings), len(recs))
	}

	docs := make([]entity.IndexDocument, len(recs))
	for i := range recs {
		docs[i] = entity.IndexDocument{Record: recs[i], Vector: res.Embeddings[i]}
	}
	if err := s.writer.Upsert(ctx, d, docs); err != nil {
		return fmt.Errorf("write %s batch: %w", d, err)
	}
	return nil
}

// EmbeddingText is the text a record is indexed under.
func EmbeddingText(r *entity.Record) string {
	desc := r.Description
	if desc == "" {
		desc = r.Biography
	}
	parts := make([]string, 0, 5)
	for _, p := range []string{r.Name, r.NameAr, desc, r.Role, r.City} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}
