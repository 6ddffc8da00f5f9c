// Package intent defines the classification result: a closed set of intents
// the conversation loop can act on.
package intent

import (
	"strings"

	"github.com/kailas-cloud/nearby/internal/domain/entity"
)

// Kind names an intent variant for logging and metrics.
type Kind string

const (
	// KindReply answers the user directly.
	KindReply Kind = "reply"
	// KindSearch runs a multi-domain search.
	KindSearch Kind = "search"
	// KindLegacy runs a services-only keyword search.
	KindLegacy Kind = "legacy"
	// KindUnknown is a well-formed result with an unrecognized function name.
	KindUnknown Kind = "unknown"
)

// Result is one of Reply, Search, Legacy or Unknown.
type Result interface {
	Kind() Kind
	sealed()
}

// Reply is a direct answer to the user.
type Reply struct {
	Message string
	// Fallback marks a reply synthesized because the model output was unusable.
	Fallback bool
}

// Search asks for a multi-domain search.
type Search struct {
	SearchType       SearchType
	SearchText       string
	LocationRequired bool
	Entities         Entities
}

// Legacy is the single-domain query shape kept for older prompts.
type Legacy struct {
	Query string
	City  string
	Limit int
}

// Unknown carries a function name the loop does not handle.
type Unknown struct {
	Function string
}

func (Reply) Kind() Kind   { return KindReply }
func (Search) Kind() Kind  { return KindSearch }
func (Legacy) Kind() Kind  { return KindLegacy }
func (Unknown) Kind() Kind { return KindUnknown }

func (Reply) sealed()   {}
func (Search) sealed()  {}
func (Legacy) sealed()  {}
func (Unknown) sealed() {}

// SearchType is the model's coarse label for what the user is after.
type SearchType string

// Known search types.
const (
	SearchTypeProvider SearchType = "PROVIDER"
	SearchTypeService  SearchType = "SERVICE"
	SearchTypeShop     SearchType = "SHOP"
	SearchTypeProduct  SearchType = "PRODUCT"
	SearchTypeMixed    SearchType = "MIXED"
)

// ParseSearchType normalizes s; unknown or empty values map to MIXED.
func ParseSearchType(s string) SearchType {
	switch st := SearchType(strings.ToUpper(strings.TrimSpace(s))); st {
	case SearchTypeProvider, SearchTypeService, SearchTypeShop, SearchTypeProduct, SearchTypeMixed:
		return st
	default:
		return SearchTypeMixed
	}
}

// EntityRequest is the per-domain part of a search.
type EntityRequest struct {
	Enabled    bool
	Query      string
	RoleFilter string
}

// Entities holds one request per domain.
type Entities map[entity.Domain]EntityRequest

// Enabled returns the enabled domains in canonical order.
func (e Entities) Enabled() []entity.Domain {
	var out []entity.Domain
	for _, d := range entity.All {
		if e[d].Enabled {
			out = append(out, d)
		}
	}
	return out
}

// Prepared returns a copy where at least one domain is enabled and every
// enabled domain has a query. With nothing enabled, services is enabled with
// the search text.
func (s Search) Prepared() Entities {
	out := make(Entities, len(entity.All))
	for d, req := range s.Entities {
		if d.Valid() {
			out[d] = req
		}
	}
	if len(out.Enabled()) == 0 {
		out[entity.Services] = EntityRequest{Enabled: true, Query: s.SearchText}
	}
	for d, req := range out {
		if req.Enabled && strings.TrimSpace(req.Query) == "" {
			req.Query = s.SearchText
			out[d] = req
		}
	}
	return out
}
