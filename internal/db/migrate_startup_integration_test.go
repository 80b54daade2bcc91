package db_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	dbfs "github.com/garnizeh/recruit/db"
	"github.com/garnizeh/recruit/internal/config"
	"github.com/garnizeh/recruit/internal/db"
)

// TestMigrateOnStart_TempWorkdir runs the embedded migrations against a file
// database configured through a YAML file in a temporary directory.
func TestMigrateOnStart_TempWorkdir(t *testing.T) {
	ctx := context.Background()
	tmpDir := t.TempDir()

	dbPath := filepath.Join(tmpDir, "test.db")

	cfgY := "addr: \":0\"\n" +
		"database_path: '" + dbPath + "'\n" +
		"migrate_on_start: true\n"

	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(cfgY), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	// allow insecure default JWTSecret for this test
	t.Setenv("RECRUIT_ENV", "development")

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate config: %v", err)
	}
	if !cfg.MigrateOnStart {
		t.Fatalf("expected migrate_on_start to be read from file")
	}

	dbCtx, dbCancel := context.WithTimeout(ctx, cfg.APITimeout)
	defer dbCancel()

	d, err := db.New(dbCtx, cfg.DatabasePath, nil)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer d.Close()

	if err := db.Migrate(dbCtx, d, dbfs.Migrations); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	var count int
	row := d.QueryRow(ctx, `SELECT COUNT(1) FROM schema_migrations`)
	if err := row.Scan(&count); err != nil {
		t.Fatalf("scan schema_migrations count: %v", err)
	}
	if count == 0 {
		t.Fatalf("expected migrations recorded, got 0")
	}
}
