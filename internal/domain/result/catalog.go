package result

import "github.com/kailas-cloud/nearby/internal/domain/entity"

var catalog = []Facet{
	{ID: TagAll, Name: Bilingual{En: "All", Ar: "الكل"}, Icon: "grid", Order: 0},
	{ID: string(entity.Providers), Name: Bilingual{En: "Providers", Ar: "مقدمو الخدمات"}, Icon: "user", Order: 1},
	{ID: string(entity.Services), Name: Bilingual{En: "Services", Ar: "الخدمات"}, Icon: "briefcase", Order: 2},
	{ID: string(entity.Shops), Name: Bilingual{En: "Shops", Ar: "المتاجر"}, Icon: "store", Order: 3},
	{ID: string(entity.Products), Name: Bilingual{En: "Products", Ar: "المنتجات"}, Icon: "package", Order: 4},
	{ID: TagRecommended, Name: Bilingual{En: "Recommended", Ar: "موصى به"}, Icon: "thumbs-up", Order: 5},
	{ID: TagVerified, Name: Bilingual{En: "Verified", Ar: "موثق"}, Icon: "check", Order: 6},
	{ID: TagTopRated, Name: Bilingual{En: "Top rated", Ar: "الأعلى تقييماً"}, Icon: "star", Order: 7},
}

// CatalogFacet returns the built-in facet definition for a tag, with zero count.
func CatalogFacet(id string) (Facet, bool) {
	for _, f := range catalog {
		if f.ID == id {
			return f, true
		}
	}
	return Facet{}, false
}
