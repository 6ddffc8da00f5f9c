// Package result defines the unified, filterable search result schema.
package result

import (
	"slices"
	"sort"

	"github.com/kailas-cloud/nearby/internal/domain/entity"
	"github.com/kailas-cloud/nearby/internal/domain/geo"
)

// Filter tags shared by every result set.
const (
	TagAll         = "all"
	TagRecommended = "recommended"
	TagVerified    = "verified"
	TagTopRated    = "top_rated"
)

// Priority bounds.
const (
	MinPriority = 1
	MaxPriority = 10
)

// Bilingual is an English/Arabic label pair.
type Bilingual struct {
	En string `json:"en"`
	Ar string `json:"ar"`
}

// Location of a result.
type Location struct {
	City    string     `json:"city,omitempty"`
	Address string     `json:"address,omitempty"`
	Coords  *geo.Point `json:"coords,omitempty"`
}

// Contact details of a result.
type Contact struct {
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Website string `json:"website,omitempty"`
}

// Rating summary of a result.
type Rating struct {
	Avg   float64 `json:"avg"`
	Count int     `json:"count"`
	Stars int     `json:"stars"`
}

// Normalized is one result in the unified schema.
type Normalized struct {
	ID          string            `json:"id"`
	DomainType  entity.Domain     `json:"domainType"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Location    Location          `json:"location"`
	Contact     Contact           `json:"contact"`
	Rating      Rating            `json:"rating"`
	FilterTags  []string          `json:"filterTags"`
	Priority    int               `json:"priority"`
	Category    Bilingual         `json:"category"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Facet is a named, counted filter bucket.
type Facet struct {
	ID    string    `json:"id"`
	Name  Bilingual `json:"name"`
	Count int       `json:"count"`
	Icon  string    `json:"icon,omitempty"`
	Order int       `json:"order"`
}

// Summary describes a result set.
type Summary struct {
	Total      int                   `json:"total"`
	Counts     map[entity.Domain]int `json:"counts"`
	Query      string                `json:"query"`
	SearchType string                `json:"searchType"`
	Message    string                `json:"message,omitempty"`
}

// Set is the full normalized output of one search.
type Set struct {
	Results []Normalized `json:"results"`
	Facets  []Facet      `json:"facets"`
	Summary Summary      `json:"summary"`
}

// IsDomainTag reports whether tag names a domain.
func IsDomainTag(tag string) bool {
	_, ok := entity.Parse(tag)
	return ok
}

// EnforceTags rewrites tags so they contain "all" and exactly one domain tag
// (d), keeping other tags in their original order without duplicates.
func EnforceTags(tags []string, d entity.Domain) []string {
	out := []string{TagAll, string(d)}
	for _, t := range tags {
		if t == "" || t == TagAll || IsDomainTag(t) || slices.Contains(out, t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// ClampPriority bounds p to [MinPriority, MaxPriority].
func ClampPriority(p int) int {
	return min(max(p, MinPriority), MaxPriority)
}

// Stars converts an average rating to a whole star count in [0,5].
func Stars(avg float64) int {
	s := int(avg + 0.5)
	return min(max(s, 0), 5)
}

// Reconcile makes a set self-consistent regardless of where it came from:
// tags and priorities are repaired, results sorted by priority descending,
// every facet count recomputed from the results, "all" forced to the total,
// missing catalog facets added, empty non-"all" facets dropped and facets
// sorted by order. Summary counts are recomputed.
func Reconcile(s Set) Set {
	results := make([]Normalized, len(s.Results))
	for i, r := range s.Results {
		r.FilterTags = EnforceTags(r.FilterTags, r.DomainType)
		r.Priority = ClampPriority(r.Priority)
		results[i] = r
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Priority > results[j].Priority
	})

	counts := make(map[string]int)
	domainCounts := make(map[entity.Domain]int)
	for _, r := range results {
		for _, t := range r.FilterTags {
			counts[t]++
		}
		domainCounts[r.DomainType]++
	}
	counts[TagAll] = len(results)

	seen := make(map[string]bool)
	facets := make([]Facet, 0, len(s.Facets)+len(catalog))
	for _, f := range s.Facets {
		if f.ID == "" || seen[f.ID] {
			continue
		}
		seen[f.ID] = true
		if def, ok := CatalogFacet(f.ID); ok {
			if f.Name.En == "" && f.Name.Ar == "" {
				f.Name = def.Name
			}
			if f.Icon == "" {
				f.Icon = def.Icon
			}
		}
		if f.Name.En == "" {
			f.Name.En = f.ID
		}
		facets = append(facets, f)
	}
	if !seen[TagAll] {
		seen[TagAll] = true
		def, _ := CatalogFacet(TagAll)
		facets = append(facets, def)
	}
	tags := make([]string, 0, len(counts))
	for t := range counts {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	for _, t := range tags {
		if seen[t] {
			continue
		}
		if def, ok := CatalogFacet(t); ok {
			seen[t] = true
			facets = append(facets, def)
		}
	}

	kept := facets[:0]
	for _, f := range facets {
		f.Count = counts[f.ID]
		if f.Count == 0 && f.ID != TagAll {
			continue
		}
		kept = append(kept, f)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Order != kept[j].Order {
			return kept[i].Order < kept[j].Order
		}
		return kept[i].ID < kept[j].ID
	})

	summary := s.Summary
	summary.Total = len(results)
	summary.Counts = domainCounts

	return Set{Results: results, Facets: kept, Summary: summary}
}
