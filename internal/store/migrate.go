package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	mdb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/JaimeStill/moltblock/pkg/database"
	"github.com/JaimeStill/moltblock/pkg/repository"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

// Migrator applies the embedded schema migrations for the connection's dialect.
// It borrows the shared connection pool and never closes it.
type Migrator struct {
	m      *migrate.Migrate
	src    source.Driver
	conn   *sql.Conn
	logger *slog.Logger
}

// NewMigrator prepares a migrator over db.
func NewMigrator(ctx context.Context, db database.System, logger *slog.Logger) (*Migrator, error) {
	dir := "migrations/sqlite"
	if db.Dialect() == repository.Postgres {
		dir = "migrations/postgres"
	}

	sub, err := fs.Sub(migrations, dir)
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}
	src, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}

	mg := &Migrator{
		src:    src,
		logger: logger.With("system", "migrate", "dialect", db.Dialect().String()),
	}

	var driver mdb.Driver
	switch db.Dialect() {
	case repository.Postgres:
		conn, err := db.Connection().Conn(ctx)
		if err != nil {
			src.Close()
			return nil, fmt.Errorf("migration connection: %w", err)
		}
		mg.conn = conn
		driver, err = postgres.WithConnection(ctx, conn, &postgres.Config{})
		if err != nil {
			mg.Close()
			return nil, fmt.Errorf("migration driver: %w", err)
		}
	default:
		driver, err = sqlite.WithInstance(db.Connection(), &sqlite.Config{})
		if err != nil {
			src.Close()
			return nil, fmt.Errorf("migration driver: %w", err)
		}
	}

	m, err := migrate.NewWithInstance("iofs", src, db.Dialect().String(), driver)
	if err != nil {
		mg.Close()
		return nil, fmt.Errorf("migrator: %w", err)
	}
	mg.m = m
	return mg, nil
}

// Up applies all pending migrations.
func (mg *Migrator) Up() error {
	if err := mg.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	mg.logger.Info("migrations applied")
	return nil
}

// Down reverts all migrations.
func (mg *Migrator) Down() error {
	if err := mg.m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	mg.logger.Info("migrations reverted")
	return nil
}

// Steps applies n migrations; negative n reverts.
func (mg *Migrator) Steps(n int) error {
	if err := mg.m.Steps(n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate steps: %w", err)
	}
	return nil
}

// Version reports the current schema version.
func (mg *Migrator) Version() (uint, bool, error) {
	v, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

// Force sets the schema version without running migrations.
func (mg *Migrator) Force(version int) error {
	return mg.m.Force(version)
}

// Close releases the migration source and any dedicated connection. The
// shared pool stays open.
func (mg *Migrator) Close() error {
	var errs []error
	if mg.src != nil {
		errs = append(errs, mg.src.Close())
	}
	if mg.conn != nil {
		errs = append(errs, mg.conn.Close())
	}
	return errors.Join(errs...)
}

// Migrate applies all pending migrations to db.
func Migrate(ctx context.Context, db database.System, logger *slog.Logger) error {
	mg, err := NewMigrator(ctx, db, logger)
	if err != nil {
		return err
	}
	defer mg.Close()

	return mg.Up()
}
