package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Seed is a YAML fixture of store rows, loaded by `nearby migrate --seed`.
type Seed struct {
	Shops     []ShopRow     `yaml:"shops"`
	Providers []ProviderRow `yaml:"providers"`
	Services  []ServiceRow  `yaml:"services"`
	Products  []ProductRow  `yaml:"products"`
	Ratings   []RatingRow   `yaml:"ratings"`
}

// Place holds the shared location and contact columns.
type Place struct {
	City    string   `yaml:"city"`
	Address string   `yaml:"address"`
	Lat     *float64 `yaml:"lat"`
	Lon     *float64 `yaml:"lon"`
	Phone   string   `yaml:"phone"`
	Email   string   `yaml:"email"`
	Website string   `yaml:"website"`
}

// Flags holds the curation flags shared by every table.
type Flags struct {
	Recommended bool `yaml:"recommended"`
	Verified    bool `yaml:"verified"`
}

// ShopRow is a row of the shops table.
type ShopRow struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	NameAr      string `yaml:"name_ar"`
	Description string `yaml:"description"`
	Role        string `yaml:"role"`
	Place       `yaml:",inline"`
	Flags       `yaml:",inline"`
}

// ProviderRow is a row of the providers table.
type ProviderRow struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	NameAr      string `yaml:"name_ar"`
	Description string `yaml:"description"`
	Biography   string `yaml:"biography"`
	Role        string `yaml:"role"`
	Place       `yaml:",inline"`
	Flags       `yaml:",inline"`
}

// ServiceRow is a row of the services table.
type ServiceRow struct {
	ID          string   `yaml:"id"`
	ShopID      string   `yaml:"shop_id"`
	Name        string   `yaml:"name"`
	NameAr      string   `yaml:"name_ar"`
	Description string   `yaml:"description"`
	Role        string   `yaml:"role"`
	Price       *float64 `yaml:"price"`
	Flags       `yaml:",inline"`
}

// ProductRow is a row of the products table.
type ProductRow struct {
	ID          string   `yaml:"id"`
	ShopID      string   `yaml:"shop_id"`
	Name        string   `yaml:"name"`
	NameAr      string   `yaml:"name_ar"`
	Description string   `yaml:"description"`
	Role        string   `yaml:"role"`
	Price       *float64 `yaml:"price"`
	Stock       *int     `yaml:"stock"`
	SKU         string   `yaml:"sku"`
	Flags       `yaml:",inline"`
}

// RatingRow is a single review score for an entity.
type RatingRow struct {
	Domain   string  `yaml:"domain"`
	EntityID string  `yaml:"entity_id"`
	Score    float64 `yaml:"score"`
}

// LoadSeed reads a YAML seed file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}
	return &s, nil
}

// ApplySeed upserts every row of s in a single transaction.
// Shops go first so services and products satisfy their foreign key.
func (d *DB) ApplySeed(ctx context.Context, s *Seed) (err error) {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, r := range s.Shops {
		if _, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO shops
			(id, name, name_ar, description, role, city, address, lat, lon, phone, email, website, recommended, verified)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.Name, r.NameAr, r.Description, r.Role, r.City, r.Address, nullFloat(r.Lat), nullFloat(r.Lon),
			r.Phone, r.Email, r.Website, r.Recommended, r.Verified); err != nil {
			return fmt.Errorf("seed shop %s: %w", r.ID, err)
		}
	}
	for _, r := range s.Providers {
		if _, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO providers
			(id, name, name_ar, description, biography, role, city, address, lat, lon, phone, email, website, recommended, verified)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.Name, r.NameAr, r.Description, r.Biography, r.Role, r.City, r.Address, nullFloat(r.Lat), nullFloat(r.Lon),
			r.Phone, r.Email, r.Website, r.Recommended, r.Verified); err != nil {
			return fmt.Errorf("seed provider %s: %w", r.ID, err)
		}
	}
	for _, r := range s.Services {
		if _, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO services
			(id, shop_id, name, name_ar, description, role, price, recommended, verified)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.ShopID, r.Name, r.NameAr, r.Description, r.Role, nullFloat(r.Price), r.Recommended, r.Verified); err != nil {
			return fmt.Errorf("seed service %s: %w", r.ID, err)
		}
	}
	for _, r := range s.Products {
		if _, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO products
			(id, shop_id, name, name_ar, description, role, price, stock, sku, recommended, verified)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.ShopID, r.Name, r.NameAr, r.Description, r.Role, nullFloat(r.Price), nullInt(r.Stock), r.SKU,
			r.Recommended, r.Verified); err != nil {
			return fmt.Errorf("seed product %s: %w", r.ID, err)
		}
	}
	for _, r := range s.Ratings {
		if _, err = tx.ExecContext(ctx, `INSERT INTO ratings (domain, entity_id, score) VALUES (?, ?, ?)`,
			r.Domain, r.EntityID, r.Score); err != nil {
			return fmt.Errorf("seed rating %s/%s: %w", r.Domain, r.EntityID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}
