// Package storetest provides migrated in-memory stores for tests.
package storetest

import (
	"context"
	"log/slog"
	"testing"

	"github.com/JaimeStill/moltblock/internal/store"
	"github.com/JaimeStill/moltblock/pkg/database"
)

// Database opens a migrated in-memory SQLite database that is closed when the
// test ends.
func Database(tb testing.TB) database.System {
	tb.Helper()

	cfg := &database.Config{Driver: database.DriverSQLite, Path: database.MemoryPath}
	if err := cfg.Finalize(nil); err != nil {
		tb.Fatalf("database config: %v", err)
	}

	logger := slog.New(slog.DiscardHandler)
	db, err := database.New(cfg, logger)
	if err != nil {
		tb.Fatalf("open database: %v", err)
	}
	tb.Cleanup(func() { db.Close() })

	if err := store.Migrate(context.Background(), db, logger); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return db
}

// New returns a Store for entityID over a fresh migrated in-memory database.
func New(tb testing.TB, entityID string) *store.Store {
	tb.Helper()
	return store.New(Database(tb), entityID, slog.New(slog.DiscardHandler))
}
