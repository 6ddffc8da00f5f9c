package normalize

import (
	"strconv"
	"strings"

	"github.com/kailas-cloud/nearby/internal/domain/entity"
	"github.com/kailas-cloud/nearby/internal/domain/intent"
	"github.com/kailas-cloud/nearby/internal/domain/result"
)

const (
	priorityRecommended = 8
	priorityTopRated    = 7
	priorityDefault     = 5

	// topRatedAbove is exclusive: a 4.0 average is not top rated.
	topRatedAbove = 4.0
)

type category struct {
	keywords []string
	label    result.Bilingual
}

// categories is matched in order; the first keyword hit wins.
var categories = []category{
	{[]string{"doctor", "physician", "dentist", "طبيب", "دكتور"}, result.Bilingual{En: "Doctor", Ar: "طبيب"}},
	{[]string{"clinic", "عيادة"}, result.Bilingual{En: "Clinic", Ar: "عيادة"}},
	{[]string{"hospital", "مستشفى"}, result.Bilingual{En: "Hospital", Ar: "مستشفى"}},
	{[]string{"pharmacy", "صيدلية"}, result.Bilingual{En: "Pharmacy", Ar: "صيدلية"}},
	{[]string{"restaurant", "مطعم"}, result.Bilingual{En: "Restaurant", Ar: "مطعم"}},
	{[]string{"cafe", "café", "coffee", "مقهى", "كافيه", "قهوة"}, result.Bilingual{En: "Cafe", Ar: "مقهى"}},
	{[]string{"bakery", "مخبز"}, result.Bilingual{En: "Bakery", Ar: "مخبز"}},
	{[]string{"mechanic", "ميكانيكي"}, result.Bilingual{En: "Mechanic", Ar: "ميكانيكي"}},
	{[]string{"garage", "workshop", "ورشة", "كراج"}, result.Bilingual{En: "Garage", Ar: "ورشة"}},
	{[]string{"barber", "حلاق"}, result.Bilingual{En: "Barber", Ar: "حلاق"}},
	{[]string{"salon", "صالون"}, result.Bilingual{En: "Salon", Ar: "صالون"}},
}

var genericCategory = map[entity.Domain]result.Bilingual{
	entity.Providers: {En: "Service provider", Ar: "مقدم خدمة"},
	entity.Services:  {En: "Service", Ar: "خدمة"},
	entity.Shops:     {En: "Shop", Ar: "متجر"},
	entity.Products:  {En: "Product", Ar: "منتج"},
}

// Fallback maps records to the unified schema without a model. The output
// depends only on the input.
func Fallback(recs []entity.Record, query string, searchType intent.SearchType) result.Set {
	results := make([]result.Normalized, 0, len(recs))
	for i := range recs {
		results = append(results, fallbackResult(&recs[i]))
	}
	return result.Reconcile(result.Set{
		Results: results,
		Summary: result.Summary{Query: query, SearchType: string(searchType)},
	})
}

func fallbackResult(r *entity.Record) result.Normalized {
	d := r.InferDomain()
	n := base(r, d)
	n.Category = categorize(r, d)

	topRated := r.AvgRating > topRatedAbove

	var tags []string
	switch {
	case r.Recommended:
		n.Priority = priorityRecommended
	case topRated:
		n.Priority = priorityTopRated
	default:
		n.Priority = priorityDefault
	}
	if r.Recommended || topRated {
		tags = append(tags, result.TagRecommended)
	}
	if r.Verified {
		tags = append(tags, result.TagVerified)
	}
	if topRated {
		tags = append(tags, result.TagTopRated)
	}
	n.FilterTags = result.EnforceTags(tags, d)
	return n
}

func categorize(r *entity.Record, d entity.Domain) result.Bilingual {
	text := strings.ToLower(strings.Join([]string{r.Name, r.NameAr, r.Role, r.Description, r.DisplayShopName()}, " "))
	for _, c := range categories {
		for _, kw := range c.keywords {
			if strings.Contains(text, kw) {
				return c.label
			}
		}
	}
	return genericCategory[d]
}

// base fills the fields that always come from the source record.
func base(r *entity.Record, d entity.Domain) result.Normalized {
	desc := r.Description
	if desc == "" {
		desc = r.Biography
	}
	n := result.Normalized{
		ID:          r.ID,
		DomainType:  d,
		Name:        r.Name,
		Description: desc,
		Location: result.Location{
			City:    r.City,
			Address: r.Address,
			Coords:  r.Coords,
		},
		Contact: result.Contact{
			Phone:   r.Phone,
			Email:   r.Email,
			Website: r.Website,
		},
		Rating: result.Rating{
			Avg:   r.AvgRating,
			Count: r.ReviewsCount,
			Stars: result.Stars(r.AvgRating),
		},
		Metadata: metadata(r),
	}
	if r.Shop != nil {
		if n.Location.City == "" {
			n.Location.City = r.Shop.City
		}
		if n.Location.Address == "" {
			n.Location.Address = r.Shop.Address
		}
		if n.Contact.Phone == "" {
			n.Contact.Phone = r.Shop.Phone
		}
	}
	return n
}

func metadata(r *entity.Record) map[string]string {
	m := make(map[string]string)
	set := func(k, v string) {
		if v != "" {
			m[k] = v
		}
	}
	set("name_ar", r.NameAr)
	set("role", r.Role)
	set("sku", r.SKU)
	if r.Shop != nil {
		set("shop_id", r.Shop.ID)
	}
	set("shop_name", r.DisplayShopName())
	if r.Price != nil {
		m["price"] = strconv.FormatFloat(*r.Price, 'f', -1, 64)
	}
	if r.Stock != nil {
		m["stock"] = strconv.Itoa(*r.Stock)
	}
	if r.DistanceKm != nil {
		m["distance_km"] = strconv.FormatFloat(*r.DistanceKm, 'f', -1, 64)
	}
	if r.ServicesCount > 0 {
		m["services_count"] = strconv.Itoa(r.ServicesCount)
	}
	if r.ProductsCount > 0 {
		m["products_count"] = strconv.Itoa(r.ProductsCount)
	}
	if len(m) == 0 {
		return nil
	}
	return m
}
