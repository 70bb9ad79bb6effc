package db

import (
	"path/filepath"
	"testing"
	"testing/fstest"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPragmasApplied(t *testing.T) {
	db := newTestDB(t)

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("Failed to query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("Expected journal_mode=wal, got %s", journalMode)
	}

	var busyTimeout int
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout); err != nil {
		t.Fatalf("Failed to query busy_timeout: %v", err)
	}
	if busyTimeout != 5000 {
		t.Errorf("Expected busy_timeout=5000, got %d", busyTimeout)
	}

	var foreignKeys int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys); err != nil {
		t.Fatalf("Failed to query foreign_keys: %v", err)
	}
	if foreignKeys != 1 {
		t.Errorf("Expected foreign_keys=1, got %d", foreignKeys)
	}
}

func TestMigrateUpCreatesSchema(t *testing.T) {
	db := newTestDB(t)

	for _, table := range []string{"runs", "iterations", "schema_migrations"} {
		var count int
		err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&count)
		if err != nil {
			t.Fatalf("Failed to query sqlite_master: %v", err)
		}
		if count != 1 {
			t.Errorf("expected table %s to exist", table)
		}
	}

	version, dirty, err := db.MigrateVersion(MigrationsFS())
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if version != 1 || dirty {
		t.Errorf("version = %d dirty = %v, want 1 false", version, dirty)
	}

	// Running again is a no-op.
	if err := db.MigrateUp(MigrationsFS()); err != nil {
		t.Errorf("second MigrateUp failed: %v", err)
	}
}

func TestMigrateDown(t *testing.T) {
	db := newTestDB(t)

	if err := db.MigrateDown(MigrationsFS()); err != nil {
		t.Fatalf("MigrateDown failed: %v", err)
	}
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='runs'`).Scan(&count); err != nil {
		t.Fatalf("Failed to query sqlite_master: %v", err)
	}
	if count != 0 {
		t.Error("runs table should be dropped")
	}
	version, _, err := db.MigrateVersion(MigrationsFS())
	if err != nil || version != 0 {
		t.Errorf("MigrateVersion = %d, %v", version, err)
	}
}

func TestOpenDBLeavesSchemaAlone(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "bare.db"))
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	defer db.Close()

	version, dirty, err := db.MigrateVersion(MigrationsFS())
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if version != 0 || dirty {
		t.Errorf("fresh database reports version %d dirty %v", version, dirty)
	}
}

func TestMigrateUpBadMigration(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "bad.db"))
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	defer db.Close()

	bad := fstest.MapFS{
		"000001_broken.up.sql":   {Data: []byte("CREATE TABLE (;")},
		"000001_broken.down.sql": {Data: []byte("")},
	}
	if err := db.MigrateUp(bad); err == nil {
		t.Error("expected migration error")
	}
}

func TestMigrationsFSContainsBothDirections(t *testing.T) {
	for _, name := range []string{"000001_create_runs.up.sql", "000001_create_runs.down.sql"} {
		if _, err := MigrationsFS().Open(name); err != nil {
			t.Errorf("missing embedded migration %s: %v", name, err)
		}
	}
}
