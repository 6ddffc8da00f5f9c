// Package searchcache persists shareable search snapshots in the relational store.
package searchcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/nearby/internal/db/sqlstore"
	"github.com/kailas-cloud/nearby/internal/domain"
	"github.com/kailas-cloud/nearby/internal/domain/snapshot"
)

// Repo implements usecase/searchcache.Store over SQLite.
type Repo struct {
	db *sql.DB
}

// New creates a search cache repository.
func New(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// Exists reports whether slug is already used.
func (r *Repo) Exists(ctx context.Context, slug string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM search_cache WHERE slug = ?`, slug).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check slug %q: %w", slug, err)
	}
	return true, nil
}

// Insert stores e. A slug collision returns snapshot.ErrSlugTaken.
func (r *Repo) Insert(ctx context.Context, e *snapshot.Entry) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO search_cache (id, query, slug, description, payload, created_at, view_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Query, e.Slug, e.Description, string(payload),
		e.CreatedAt.UTC().Format(time.RFC3339Nano), e.ViewCount)
	if sqlstore.IsUniqueViolation(err) {
		return fmt.Errorf("insert %q: %w", e.Slug, snapshot.ErrSlugTaken)
	}
	if err != nil {
		return fmt.Errorf("insert %q: %w", e.Slug, err)
	}
	return nil
}

// FindBySlug loads an entry without touching its view count.
func (r *Repo) FindBySlug(ctx context.Context, slug string) (*snapshot.Entry, error) {
	return r.find(ctx, "slug", slug)
}

// FindByID loads an entry without touching its view count.
func (r *Repo) FindByID(ctx context.Context, id string) (*snapshot.Entry, error) {
	return r.find(ctx, "id", id)
}

// IncrementViews bumps the view count of id and returns the new value.
func (r *Repo) IncrementViews(ctx context.Context, id string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`UPDATE search_cache SET view_count = view_count + 1 WHERE id = ? RETURNING view_count`, id).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("snapshot %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("increment views %s: %w", id, err)
	}
	return n, nil
}

func (r *Repo) find(ctx context.Context, column, value string) (*snapshot.Entry, error) {
	var (
		e         snapshot.Entry
		payload   string
		createdAt string
	)
	// column is one of two literals above, never caller input.
	err := r.db.QueryRowContext(ctx,
		`SELECT id, query, slug, description, payload, created_at, view_count
		 FROM search_cache WHERE `+column+` = ?`, value).
		Scan(&e.ID, &e.Query, &e.Slug, &e.Description, &payload, &createdAt, &e.ViewCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot %s=%q: %w", column, value, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s=%q: %w", column, value, err)
	}

	if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
		return nil, fmt.Errorf("decode payload %s: %w", e.ID, err)
	}
	if e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at %s: %w", e.ID, err)
	}
	return &e, nil
}
