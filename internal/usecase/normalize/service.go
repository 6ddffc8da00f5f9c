// Package normalize maps raw search records to the unified result schema.
package normalize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/nearby/internal/domain"
	"github.com/kailas-cloud/nearby/internal/domain/entity"
	"github.com/kailas-cloud/nearby/internal/domain/intent"
	"github.com/kailas-cloud/nearby/internal/domain/result"
	"github.com/kailas-cloud/nearby/internal/llmjson"
	"github.com/kailas-cloud/nearby/internal/logger"
	"github.com/kailas-cloud/nearby/internal/metrics"
)

// Config holds normalizer settings.
type Config struct {
	// Timeout bounds the transformer call. Zero means no extra bound.
	Timeout time.Duration
	// MaxResponseChars caps the transformer output before parsing.
	MaxResponseChars int
}

// Service normalizes records with the transformation model and falls back
// to a deterministic mapping when the model is unavailable or its output is
// unusable.
type Service struct {
	transformer Transformer
	cfg         Config
}

// New creates a normalizer. transformer may be nil; every call then uses
// the deterministic mapping.
func New(transformer Transformer, cfg Config) *Service {
	return &Service{transformer: transformer, cfg: cfg}
}

// Normalize never fails: the result is always a reconciled set.
func (s *Service) Normalize(
	ctx context.Context, recs []entity.Record, query string, searchType intent.SearchType,
) result.Set {
	if s.transformer == nil || len(recs) == 0 {
		metrics.NormalizerPathTotal.WithLabelValues("fallback").Inc()
		return Fallback(recs, query, searchType)
	}

	set, err := s.primary(ctx, recs, query, searchType)
	if err != nil {
		logger.FromContext(ctx).Warn("normalizer fell back to deterministic mapping",
			zap.Int("records", len(recs)),
			zap.Error(err),
		)
		metrics.NormalizerPathTotal.WithLabelValues("fallback").Inc()
		return Fallback(recs, query, searchType)
	}
	metrics.NormalizerPathTotal.WithLabelValues("primary").Inc()
	return set
}

func (s *Service) primary(
	ctx context.Context, recs []entity.Record, query string, searchType intent.SearchType,
) (result.Set, error) {
	payload, err := json.Marshal(project(recs))
	if err != nil {
		return result.Set{}, fmt.Errorf("encode projection: %w", err)
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	raw, err := s.transformer.Complete(ctx, []domain.ChatMessage{
		{Role: domain.ChatRoleSystem, Content: systemPrompt},
		{Role: domain.ChatRoleUser, Content: "query: " + clean(query) + "\nrecords: " + string(payload)},
	})
	if err != nil {
		return result.Set{}, fmt.Errorf("transform: %w", err)
	}

	out, err := parseOutput(llmjson.Truncate(raw, s.cfg.MaxResponseChars))
	if err != nil {
		return result.Set{}, err
	}

	return result.Reconcile(result.Set{
		Results: repair(out.results, recs),
		Facets:  out.facets,
		Summary: result.Summary{Query: query, SearchType: string(searchType)},
	}), nil
}

type wireResult struct {
	ID         string           `json:"id"`
	FilterTags []string         `json:"filterTags"`
	Priority   float64          `json:"priority"`
	Category   result.Bilingual `json:"category"`
}

type output struct {
	results []wireResult
	facets  []result.Facet
}

// parseOutput requires both results and facets to be JSON arrays.
func parseOutput(raw string) (output, error) {
	var envelope struct {
		Results json.RawMessage `json:"results"`
		Facets  json.RawMessage `json:"facets"`
	}
	text := llmjson.Sanitize(llmjson.StripFences(raw))
	if err := json.Unmarshal([]byte(text), &envelope); err != nil {
		return output{}, fmt.Errorf("%w: %w", ErrInvalidSchema, err)
	}
	if !isArray(envelope.Results) || !isArray(envelope.Facets) {
		return output{}, fmt.Errorf("%w: results and facets must be arrays", ErrInvalidSchema)
	}

	var out output
	if err := json.Unmarshal(envelope.Results, &out.results); err != nil {
		return output{}, fmt.Errorf("%w: results: %w", ErrInvalidSchema, err)
	}
	if err := json.Unmarshal(envelope.Facets, &out.facets); err != nil {
		return output{}, fmt.Errorf("%w: facets: %w", ErrInvalidSchema, err)
	}
	return out, nil
}

func isArray(raw json.RawMessage) bool {
	return bytes.HasPrefix(bytes.TrimSpace(raw), []byte("["))
}

// repair joins model output with the source records. Unknown and duplicate
// ids are dropped; domain, name, location, contact and rating always come
// from the record. Records the model left out are appended with the
// deterministic mapping.
func repair(in []wireResult, recs []entity.Record) []result.Normalized {
	byID := make(map[string]*entity.Record, len(recs))
	for i := range recs {
		byID[recs[i].ID] = &recs[i]
	}

	used := make(map[string]bool, len(in))
	out := make([]result.Normalized, 0, len(recs))
	for _, w := range in {
		r, ok := byID[w.ID]
		if !ok || used[w.ID] {
			continue
		}
		used[w.ID] = true

		d := r.InferDomain()
		n := base(r, d)
		n.FilterTags = result.EnforceTags(lowerTags(w.FilterTags), d)
		n.Priority = result.ClampPriority(int(math.Round(w.Priority)))
		n.Category = w.Category
		if n.Category.En == "" && n.Category.Ar == "" {
			n.Category = categorize(r, d)
		}
		out = append(out, n)
	}

	for i := range recs {
		if !used[recs[i].ID] {
			used[recs[i].ID] = true
			out = append(out, fallbackResult(&recs[i]))
		}
	}
	return out
}

func lowerTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, strings.ToLower(strings.TrimSpace(t)))
	}
	return out
}
