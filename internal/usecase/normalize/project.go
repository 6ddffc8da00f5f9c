package normalize

import (
	"strings"
	"unicode"

	"github.com/kailas-cloud/nearby/internal/domain/entity"
)

// maxFieldRunes caps free-text fields sent to the transformer.
const maxFieldRunes = 150

// projected is the compact record shape sent to the transformer.
type projected struct {
	ID          string   `json:"id"`
	Domain      string   `json:"domain"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Role        string   `json:"role,omitempty"`
	City        string   `json:"city,omitempty"`
	Shop        string   `json:"shop,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Rating      float64  `json:"rating,omitempty"`
	Reviews     int      `json:"reviews,omitempty"`
	Recommended bool     `json:"recommended,omitempty"`
	Verified    bool     `json:"verified,omitempty"`
	DistanceKm  *float64 `json:"distance_km,omitempty"`
}

func project(recs []entity.Record) []projected {
	out := make([]projected, 0, len(recs))
	for i := range recs {
		r := &recs[i]
		desc := r.Description
		if desc == "" {
			desc = r.Biography
		}
		out = append(out, projected{
			ID:          r.ID,
			Domain:      string(r.InferDomain()),
			Name:        clean(r.Name),
			Description: clean(desc),
			Role:        clean(r.Role),
			City:        clean(r.City),
			Shop:        clean(r.DisplayShopName()),
			Price:       r.Price,
			Rating:      r.AvgRating,
			Reviews:     r.ReviewsCount,
			Recommended: r.Recommended,
			Verified:    r.Verified,
			DistanceKm:  r.DistanceKm,
		})
	}
	return out
}

// clean drops control characters, collapses whitespace and caps s at
// maxFieldRunes. Quoting is left to the JSON encoder.
func clean(s string) string {
	var b strings.Builder
	n := 0
	space := false
	for _, r := range s {
		if n >= maxFieldRunes {
			break
		}
		switch {
		case unicode.IsSpace(r):
			space = b.Len() > 0
			continue
		case unicode.IsControl(r):
			continue
		}
		if space {
			if n+1 >= maxFieldRunes {
				break
			}
			b.WriteByte(' ')
			n++
			space = false
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}
