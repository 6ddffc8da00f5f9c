// Package snapshot describes a persisted, shareable search result.
package snapshot

import (
	"errors"
	"time"

	"github.com/kailas-cloud/nearby/internal/domain/geo"
	"github.com/kailas-cloud/nearby/internal/domain/result"
)

// ErrSlugTaken is returned by stores when the slug already exists.
var ErrSlugTaken = errors.New("slug already taken")

// Payload is the complete normalized bundle stored with an entry.
type Payload struct {
	Results    []result.Normalized `json:"results"`
	Facets     []result.Facet      `json:"facets"`
	Summary    result.Summary      `json:"summary"`
	Location   *geo.Point          `json:"geolocation,omitempty"`
	RadiusKm   float64             `json:"radiusKm,omitempty"`
	SearchType string              `json:"searchType"`
	SearchedAt time.Time           `json:"searchedAt"`
}

// Entry is an immutable snapshot; only ViewCount changes after creation.
type Entry struct {
	ID          string    `json:"id"`
	Query       string    `json:"query"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	Payload     Payload   `json:"payload"`
	CreatedAt   time.Time `json:"createdAt"`
	ViewCount   int64     `json:"viewCount"`
}
