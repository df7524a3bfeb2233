package database

import (
	"context"
	"path/filepath"
	"testing"
)

func TestOpenMigrated(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "artists.db")
	db, err := OpenMigrated(ctx, path)
	if err != nil {
		t.Fatalf("OpenMigrated: %v", err)
	}
	defer db.Close()

	for _, table := range []string{"artists", "artist_genres", "artist_subgenres"} {
		var n int
		err := db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n)
		if err != nil {
			t.Fatal(err)
		}
		if n != 1 {
			t.Errorf("table %s missing", table)
		}
	}

	// Running migrations again is a no-op.
	if err := Migrate(ctx, db); err != nil {
		t.Errorf("second Migrate: %v", err)
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	ctx := context.Background()
	db, err := OpenMigrated(ctx, ":memory:")
	if err != nil {
		t.Fatalf("OpenMigrated: %v", err)
	}
	defer db.Close()

	_, err = db.ExecContext(ctx, `INSERT INTO artist_genres (artist_key, genre) VALUES ('ghost', 'techno')`)
	if err == nil {
		t.Error("expected a foreign key violation for a genre row without an artist")
	}
}
