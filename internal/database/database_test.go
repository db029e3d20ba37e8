package database

import (
	"context"
	"database/sql"
	"testing"

	"github.com/rs/zerolog"
)

func openMemory(t *testing.T) *sql.DB {
	t.Helper()

	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

// TestMigrate tests the embedded schema migrations.
//
// WHY: The binary ships its own schema; both tables must exist after Migrate
// and a second run must be a no-op on an up-to-date database.
func TestMigrate(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()

	if err := Migrate(ctx, db, zerolog.Nop()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	for _, table := range []string{"ledger_transaction", "tax_record"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("Expected table %s to exist: %v", table, err)
		}
	}

	if err := Migrate(ctx, db, zerolog.Nop()); err != nil {
		t.Errorf("Second Migrate() error = %v", err)
	}

	version, err := SchemaVersion(ctx, db)
	if err != nil {
		t.Fatalf("SchemaVersion() error = %v", err)
	}
	if version != 2 {
		t.Errorf("Expected schema version 2, got %d", version)
	}
}

func TestHealthCheck(t *testing.T) {
	db := openMemory(t)
	if err := HealthCheck(db); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}
