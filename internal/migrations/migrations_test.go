package migrations_test

import (
	"context"
	"testing"

	"github.com/flightkoy/questboard/internal/database"
	"github.com/flightkoy/questboard/internal/migrations"
)

func TestMigrations(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	if err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	for _, table := range []string{"sessions", "players", "attempts"} {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found: %v", table, err)
		}
	}

	var index string
	err = db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name='attempts_completion'",
	).Scan(&index)
	if err != nil {
		t.Errorf("completion index not found: %v", err)
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	if err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("second run (should be no-op): %v", err)
	}
}
