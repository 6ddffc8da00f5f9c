package search

import (
	"time"

	"github.com/kailas-cloud/nearby/internal/domain/entity"
	"github.com/kailas-cloud/nearby/internal/domain/geo"
	"github.com/kailas-cloud/nearby/internal/domain/intent"
)

// Meta describes how a bundle was produced.
type Meta struct {
	SearchType intent.SearchType `json:"searchType"`
	Query      string            `json:"query"`
	Location   *geo.Point        `json:"location,omitempty"`
	RadiusKm   float64           `json:"radiusKm"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Bundle holds raw records per domain.
type Bundle struct {
	Results map[entity.Domain][]entity.Record `json:"results"`
	Meta    Meta                              `json:"meta"`
}

// Records flattens the bundle in canonical domain order.
func (b *Bundle) Records() []entity.Record {
	out := make([]entity.Record, 0, b.Total())
	for _, d := range entity.All {
		out = append(out, b.Results[d]...)
	}
	return out
}

// Total returns the number of records across all domains.
func (b *Bundle) Total() int {
	n := 0
	for _, recs := range b.Results {
		n += len(recs)
	}
	return n
}
