// Package sqlstore opens the SQLite relational store and owns its schema.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DB is the relational store handle shared by the SQL repositories.
type DB struct {
	*sql.DB
}

// Open opens (creating if needed) the SQLite database at path in WAL mode.
// ":memory:" is accepted for tests.
func Open(ctx context.Context, path string) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would get its own empty in-memory database.
		conn.SetMaxOpenConns(1)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	return &DB{DB: conn}, nil
}

// Migrate creates the schema if it does not exist. Safe to run repeatedly.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Ping implements health.DBPinger.
func (d *DB) Ping(ctx context.Context) error {
	if err := d.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite ping: %w", err)
	}
	return nil
}

// IsUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY constraint failure.
func IsUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

const schema = `
CREATE TABLE IF NOT EXISTS shops (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	name_ar     TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	role        TEXT NOT NULL DEFAULT '',
	city        TEXT NOT NULL DEFAULT '',
	address     TEXT NOT NULL DEFAULT '',
	lat         REAL,
	lon         REAL,
	phone       TEXT NOT NULL DEFAULT '',
	email       TEXT NOT NULL DEFAULT '',
	website     TEXT NOT NULL DEFAULT '',
	recommended INTEGER NOT NULL DEFAULT 0,
	verified    INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS providers (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	name_ar     TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	biography   TEXT NOT NULL DEFAULT '',
	role        TEXT NOT NULL DEFAULT '',
	city        TEXT NOT NULL DEFAULT '',
	address     TEXT NOT NULL DEFAULT '',
	lat         REAL,
	lon         REAL,
	phone       TEXT NOT NULL DEFAULT '',
	email       TEXT NOT NULL DEFAULT '',
	website     TEXT NOT NULL DEFAULT '',
	recommended INTEGER NOT NULL DEFAULT 0,
	verified    INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS services (
	id          TEXT PRIMARY KEY,
	shop_id     TEXT NOT NULL REFERENCES shops(id),
	name        TEXT NOT NULL,
	name_ar     TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	role        TEXT NOT NULL DEFAULT '',
	price       REAL,
	recommended INTEGER NOT NULL DEFAULT 0,
	verified    INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS products (
	id          TEXT PRIMARY KEY,
	shop_id     TEXT NOT NULL REFERENCES shops(id),
	name        TEXT NOT NULL,
	name_ar     TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	role        TEXT NOT NULL DEFAULT '',
	price       REAL,
	stock       INTEGER,
	sku         TEXT NOT NULL DEFAULT '',
	recommended INTEGER NOT NULL DEFAULT 0,
	verified    INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS ratings (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	domain     TEXT NOT NULL,
	entity_id  TEXT NOT NULL,
	score      REAL NOT NULL CHECK (score >= 0 AND score <= 5),
	created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
);

CREATE TABLE IF NOT EXISTS search_cache (
	id          TEXT PRIMARY KEY,
	query       TEXT NOT NULL,
	slug        TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	payload     TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	view_count  INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_services_shop ON services(shop_id);
CREATE INDEX IF NOT EXISTS idx_products_shop ON products(shop_id);
CREATE INDEX IF NOT EXISTS idx_ratings_entity ON ratings(domain, entity_id);
`
