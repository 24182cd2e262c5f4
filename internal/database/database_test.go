package database_test

import (
	"path/filepath"
	"testing"

	"github.com/robalobadob/minesweeper/apps/go-server/internal/database"
)

func TestMigrateIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "app.db")
	db, err := database.OpenMigrated(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	var applied int
	if err := db.QueryRow(`SELECT COUNT(1) FROM _migrations`).Scan(&applied); err != nil {
		t.Fatalf("count: %v", err)
	}
	if applied != 1 {
		t.Fatalf("applied = %d, want 1", applied)
	}
	for _, table := range []string{"users", "results"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			t.Fatalf("table %s missing: %v", table, err)
		}
	}
}
