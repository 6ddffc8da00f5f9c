// Package entity reads the four searchable domains from the relational store.
package entity

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/kailas-cloud/nearby/internal/domain/entity"
	"github.com/kailas-cloud/nearby/internal/domain/geo"
)

// Repo implements the orchestrator's and indexer's entity store over SQLite.
type Repo struct {
	db *sql.DB
}

// New creates an entity repository.
func New(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// FindByIDs loads records by id in a single query and returns them in the
// order of ids. Unknown ids are skipped.
func (r *Repo) FindByIDs(ctx context.Context, d entity.Domain, ids []string) ([]entity.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	base, a, err := selectFor(d)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("%s WHERE %s.id IN (%s)", base, a, placeholders(len(ids)))
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	found, err := r.query(ctx, d, query, args...)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]entity.Record, len(found))
	for _, rec := range found {
		byID[rec.ID] = rec
	}
	out := make([]entity.Record, 0, len(found))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if rec, ok := byID[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, rec)
		}
	}
	return out, nil
}

// SearchText matches q.Text as a case-insensitive substring of name, description
// or city (OR), optionally narrowed by role and city. Results are capped at q.Limit.
func (r *Repo) SearchText(ctx context.Context, d entity.Domain, q entity.KeywordQuery) ([]entity.Record, error) {
	base, a, err := selectFor(d)
	if err != nil {
		return nil, err
	}

	cityCol := a + ".city"
	if d == entity.Services || d == entity.Products {
		cityCol = "s.city"
	}

	var where []string
	var args []any
	if text := strings.TrimSpace(q.Text); text != "" {
		like := "%" + escapeLike(strings.ToLower(text)) + "%"
		where = append(where, fmt.Sprintf(
			`(LOWER(%[1]s.name) LIKE ? ESCAPE '\' OR LOWER(%[1]s.description) LIKE ? ESCAPE '\' OR LOWER(%[2]s) LIKE ? ESCAPE '\')`,
			a, cityCol))
		args = append(args, like, like, like)
	}
	if role := strings.TrimSpace(q.Role); role != "" {
		where = append(where, fmt.Sprintf(`LOWER(%s.role) LIKE ? ESCAPE '\'`, a))
		args = append(args, "%"+escapeLike(strings.ToLower(role))+"%")
	}
	if city := strings.TrimSpace(q.City); city != "" {
		where = append(where, fmt.Sprintf(`LOWER(%s) = ?`, cityCol))
		args = append(args, strings.ToLower(city))
	}

	query := base
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY %s.recommended DESC, %s.name", a, a)
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	return r.query(ctx, d, query, args...)
}

// ListAll returns every record of a domain, ratings included. Used by the indexer.
func (r *Repo) ListAll(ctx context.Context, d entity.Domain) ([]entity.Record, error) {
	base, a, err := selectFor(d)
	if err != nil {
		return nil, err
	}
	return r.query(ctx, d, base+" ORDER BY "+a+".id")
}

func (r *Repo) query(ctx context.Context, d entity.Domain, query string, args ...any) ([]entity.Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", d, err)
	}
	defer rows.Close()

	var out []entity.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", d, err)
		}
		rec.Domain = d
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", d, err)
	}

	if err := r.attachRatings(ctx, d, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) attachRatings(ctx context.Context, d entity.Domain, recs []entity.Record) error {
	if len(recs) == 0 {
		return nil
	}
	idx := make(map[string]int, len(recs))
	args := make([]any, 0, len(recs)+1)
	args = append(args, string(d))
	for i, rec := range recs {
		idx[rec.ID] = i
		args = append(args, rec.ID)
	}

	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT entity_id, score FROM ratings WHERE domain = ? AND entity_id IN (%s) ORDER BY id`,
			placeholders(len(recs))),
		args...)
	if err != nil {
		return fmt.Errorf("query ratings %s: %w", d, err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var score float64
		if err := rows.Scan(&id, &score); err != nil {
			return fmt.Errorf("scan rating: %w", err)
		}
		if i, ok := idx[id]; ok {
			recs[i].Ratings = append(recs[i].Ratings, score)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate ratings: %w", err)
	}
	return nil
}

func scanRecord(rows *sql.Rows) (entity.Record, error) {
	var (
		rec                                     entity.Record
		lat, lon, price                         sql.NullFloat64
		stock                                   sql.NullInt64
		shopID, shopName, shopCity, shopAddress sql.NullString
		shopPhone                               sql.NullString
	)
	err := rows.Scan(
		&rec.ID, &rec.Name, &rec.NameAr, &rec.Description, &rec.Biography, &rec.Role, &rec.City, &rec.Address,
		&lat, &lon, &rec.Phone, &rec.Email, &rec.Website,
		&shopID, &shopName, &shopCity, &shopAddress, &shopPhone,
		&price, &stock, &rec.SKU, &rec.Recommended, &rec.Verified, &rec.ServicesCount, &rec.ProductsCount,
	)
	if err != nil {
		return entity.Record{}, err //nolint:wrapcheck // wrapped by caller
	}

	if lat.Valid && lon.Valid {
		rec.Coords = &geo.Point{Lat: lat.Float64, Lon: lon.Float64}
	}
	if shopID.Valid {
		rec.Shop = &entity.ShopRef{
			ID:      shopID.String,
			Name:    shopName.String,
			City:    shopCity.String,
			Address: shopAddress.String,
			Phone:   shopPhone.String,
		}
		rec.ShopName = shopName.String
	}
	if price.Valid {
		p := price.Float64
		rec.Price = &p
	}
	if stock.Valid {
		s := int(stock.Int64)
		rec.Stock = &s
	}
	return rec, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
