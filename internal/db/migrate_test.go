package db_test

import (
	"context"
	"testing"
	"testing/fstest"

	dbfs "github.com/garnizeh/recruit/db"
	"github.com/garnizeh/recruit/internal/db"
)

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()

	d, err := db.New(ctx, ":memory:", nil)
	if err != nil {
		t.Fatalf("failed to open in-memory db: %v", err)
	}
	defer d.Close()

	if err := db.Migrate(ctx, d, dbfs.Migrations); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	if err := db.Migrate(ctx, d, dbfs.Migrations); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}

	var count int
	row := d.QueryRow(ctx, `SELECT COUNT(1) FROM schema_migrations`)
	if err := row.Scan(&count); err != nil {
		t.Fatalf("scan schema_migrations count: %v", err)
	}
	if count < 1 {
		t.Fatalf("expected at least 1 migration recorded, got %d", count)
	}

	for _, table := range []string{"accounts", "candidates", "interviews"} {
		var name string
		r := d.QueryRow(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table)
		if err := r.Scan(&name); err != nil {
			t.Fatalf("expected %s table exists: %v", table, err)
		}
	}
}

func TestMigrate_FailingFileIsNotRecorded(t *testing.T) {
	ctx := context.Background()

	d, err := db.New(ctx, ":memory:", nil)
	if err != nil {
		t.Fatalf("failed to open in-memory db: %v", err)
	}
	defer d.Close()

	fsys := fstest.MapFS{
		"migrations/0001_ok.sql":  {Data: []byte(`CREATE TABLE ok_table (id INTEGER);`)},
		"migrations/0002_bad.sql": {Data: []byte(`CREATE TABLE half (id INTEGER); THIS IS NOT SQL;`)},
	}

	if err := db.Migrate(ctx, d, fsys); err == nil {
		t.Fatalf("expected migrate to fail on bad file")
	}

	var count int
	if err := d.QueryRow(ctx, `SELECT COUNT(1) FROM schema_migrations WHERE version = '0002_bad'`).Scan(&count); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if count != 0 {
		t.Fatalf("failed migration must not be recorded")
	}

	var tables int
	if err := d.QueryRow(ctx, `SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='half'`).Scan(&tables); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if tables != 0 {
		t.Fatalf("partial migration must be rolled back")
	}
}
