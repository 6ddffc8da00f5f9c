// Package entity describes the four searchable domains and their raw records.
package entity

import (
	"github.com/kailas-cloud/nearby/internal/domain/geo"
)

// Domain is one of the four searchable entity kinds.
type Domain string

const (
	// Providers are individual professionals (doctors, mechanics, ...).
	Providers Domain = "providers"
	// Services are offerings sold by a shop.
	Services Domain = "services"
	// Shops are physical businesses.
	Shops Domain = "shops"
	// Products are stocked goods sold by a shop.
	Products Domain = "products"
)

// All lists every domain in canonical order.
var All = []Domain{Providers, Services, Shops, Products}

// Parse converts a wire string to a Domain.
func Parse(s string) (Domain, bool) {
	for _, d := range All {
		if string(d) == s {
			return d, true
		}
	}
	return "", false
}

// Valid reports whether d is a known domain.
func (d Domain) Valid() bool {
	_, ok := Parse(string(d))
	return ok
}

// ShopRef is the owning shop of a service or product.
type ShopRef struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	City    string `json:"city,omitempty"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// Record is a raw heterogeneous store row. Domain may be empty for rows that
// arrive untagged; the normalizer then infers it from the record's shape.
type Record struct {
	Domain      Domain     `json:"domain,omitempty"`
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	NameAr      string     `json:"name_ar,omitempty"`
	Description string     `json:"description,omitempty"`
	Biography   string     `json:"biography,omitempty"`
	Role        string     `json:"role,omitempty"`
	City        string     `json:"city,omitempty"`
	Address     string     `json:"address,omitempty"`
	Coords      *geo.Point `json:"coords,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Email       string     `json:"email,omitempty"`
	Website     string     `json:"website,omitempty"`
	Shop        *ShopRef   `json:"shop,omitempty"`
	ShopName    string     `json:"shop_name,omitempty"`
	Price       *float64   `json:"price,omitempty"`
	Stock       *int       `json:"stock,omitempty"`
	SKU         string     `json:"sku,omitempty"`
	Recommended bool       `json:"recommended,omitempty"`
	Verified    bool       `json:"verified,omitempty"`

	ServicesCount int `json:"services_count,omitempty"`
	ProductsCount int `json:"products_count,omitempty"`

	Ratings      []float64 `json:"-"`
	AvgRating    float64   `json:"avg_rating"`
	ReviewsCount int       `json:"reviews_count"`
	DistanceKm   *float64  `json:"distance_km,omitempty"`
}

// AggregateRatings returns the mean rounded to one decimal and the count.
// Both are zero when there are no ratings.
func AggregateRatings(scores []float64) (avg float64, count int) {
	if len(scores) == 0 {
		return 0, 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return geo.Round1(sum / float64(len(scores))), len(scores)
}

// ApplyRatings fills AvgRating and ReviewsCount from Ratings.
func (r *Record) ApplyRatings() {
	r.AvgRating, r.ReviewsCount = AggregateRatings(r.Ratings)
}

// ApplyDistance sets DistanceKm from origin when both points are known.
func (r *Record) ApplyDistance(origin *geo.Point) {
	if origin == nil || r.Coords == nil {
		return
	}
	d := geo.Round1(origin.DistanceKm(*r.Coords))
	r.DistanceKm = &d
}

// InferDomain returns the tagged domain, or derives one from the record shape:
// owning-shop link => service, price with stock or sku => product,
// biography without shop link => provider, otherwise shop.
func (r *Record) InferDomain() Domain {
	if r.Domain.Valid() {
		return r.Domain
	}
	switch {
	case r.Shop != nil:
		return Services
	case r.Price != nil && (r.Stock != nil || r.SKU != ""):
		return Products
	case r.Biography != "":
		return Providers
	default:
		return Shops
	}
}

// DisplayShopName returns the owning shop's name or the record's own shop name.
func (r *Record) DisplayShopName() string {
	if r.Shop != nil && r.Shop.Name != "" {
		return r.Shop.Name
	}
	return r.ShopName
}
