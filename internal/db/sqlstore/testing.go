package sqlstore

import (
	"context"
	"path/filepath"
	"testing"
)

// OpenForTest opens a migrated database in t.TempDir and closes it on cleanup.
func OpenForTest(t testing.TB) *DB {
	t.Helper()
	ctx := context.Background()
	d, err := Open(ctx, filepath.Join(t.TempDir(), "nearby.db"))
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	if err := d.Migrate(ctx); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return d
}
