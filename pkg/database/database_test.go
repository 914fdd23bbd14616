package database_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/JaimeStill/moltblock/pkg/database"
	"github.com/JaimeStill/moltblock/pkg/repository"
)

func TestFinalizeDefaults(t *testing.T) {
	cfg := &database.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if cfg.Driver != database.DriverSQLite {
		t.Errorf("Driver = %q, want sqlite", cfg.Driver)
	}
	if cfg.Path == "" {
		t.Error("Path should default")
	}
	if cfg.ConnTimeoutDuration() == 0 {
		t.Error("ConnTimeout should default")
	}
}

func TestFinalizeEnvOverride(t *testing.T) {
	t.Setenv("TEST_DB_DRIVER", "postgres")
	t.Setenv("TEST_DB_NAME", "moltblock")
	t.Setenv("TEST_DB_USER", "molt")
	t.Setenv("TEST_DB_PORT", "6543")

	cfg := &database.Config{}
	env := &database.Env{
		Driver: "TEST_DB_DRIVER",
		Name:   "TEST_DB_NAME",
		User:   "TEST_DB_USER",
		Port:   "TEST_DB_PORT",
	}
	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if cfg.Driver != database.DriverPostgres || cfg.Port != 6543 || cfg.Host != "localhost" {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestFinalizeValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  database.Config
	}{
		{"unknown driver", database.Config{Driver: "oracle"}},
		{"postgres without name", database.Config{Driver: "postgres", User: "u"}},
		{"postgres without user", database.Config{Driver: "postgres", Name: "n"}},
		{"bad timeout", database.Config{ConnTimeout: "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Finalize(nil); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestMerge(t *testing.T) {
	base := &database.Config{Driver: "sqlite", Path: "a.db", BusyTimeout: "1s"}
	base.Merge(&database.Config{Path: "b.db"})

	if base.Path != "b.db" || base.Driver != "sqlite" || base.BusyTimeout != "1s" {
		t.Errorf("Merge result %+v", base)
	}
}

func TestInMemory(t *testing.T) {
	cfg := &database.Config{Driver: "sqlite", Path: database.MemoryPath}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	db, err := database.New(cfg, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer db.Close()

	if db.Dialect() != repository.SQLite {
		t.Errorf("Dialect = %v, want sqlite", db.Dialect())
	}
	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	conn := db.Connection()
	if _, err := conn.Exec("CREATE TABLE t (v TEXT)"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := conn.Exec("INSERT INTO t (v) VALUES ('x')"); err != nil {
		t.Fatalf("insert: %v", err)
	}

	var n int
	if err := conn.QueryRow("SELECT COUNT(*) FROM t").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestFileModePermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "state", "store.db")

	cfg := &database.Config{Driver: "sqlite", Path: path}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	db, err := database.New(cfg, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer db.Close()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file perm = %o, want 600", perm)
	}

	dirInfo, err := os.Stat(filepath.Dir(path))
	if err != nil {
		t.Fatalf("stat dir: %v", err)
	}
	if perm := dirInfo.Mode().Perm(); perm&0o077 != 0 {
		t.Errorf("dir perm = %o, want owner-only", perm)
	}
}
