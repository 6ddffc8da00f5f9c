package entity

import (
	"fmt"

	"github.com/kailas-cloud/nearby/internal/domain/entity"
)

// Every domain projects onto the same column list so rows scan uniformly:
// id, name, name_ar, description, biography, role, city, address, lat, lon,
// phone, email, website, shop_id, shop_name, shop_city, shop_address, shop_phone,
// price, stock, sku, recommended, verified, services_count, products_count.
var selects = map[entity.Domain]string{
	entity.Providers: `SELECT p.id, p.name, p.name_ar, p.description, p.biography, p.role, p.city, p.address,
		p.lat, p.lon, p.phone, p.email, p.website,
		NULL, NULL, NULL, NULL, NULL,
		NULL, NULL, '', p.recommended, p.verified, 0, 0
		FROM providers p`,

	entity.Shops: `SELECT s.id, s.name, s.name_ar, s.description, '', s.role, s.city, s.address,
		s.lat, s.lon, s.phone, s.email, s.website,
		NULL, NULL, NULL, NULL, NULL,
		NULL, NULL, '', s.recommended, s.verified,
		(SELECT COUNT(*) FROM services x WHERE x.shop_id = s.id),
		(SELECT COUNT(*) FROM products y WHERE y.shop_id = s.id)
		FROM shops s`,

	entity.Services: `SELECT v.id, v.name, v.name_ar, v.description, '', v.role, s.city, s.address,
		s.lat, s.lon, s.phone, s.email, s.website,
		s.id, s.name, s.city, s.address, s.phone,
		v.price, NULL, '', v.recommended, v.verified, 0, 0
		FROM services v JOIN shops s ON s.id = v.shop_id`,

	entity.Products: `SELECT v.id, v.name, v.name_ar, v.description, '', v.role, s.city, s.address,
		s.lat, s.lon, s.phone, s.email, s.website,
		s.id, s.name, s.city, s.address, s.phone,
		v.price, v.stock, v.sku, v.recommended, v.verified, 0, 0
		FROM products v JOIN shops s ON s.id = v.shop_id`,
}

// alias is the table alias holding the domain's own columns in selects.
var alias = map[entity.Domain]string{
	entity.Providers: "p",
	entity.Shops:     "s",
	entity.Services:  "v",
	entity.Products:  "v",
}

func selectFor(d entity.Domain) (string, string, error) {
	q, ok := selects[d]
	if !ok {
		return "", "", fmt.Errorf("unknown domain %q", d)
	}
	return q, alias[d], nil
}
