// Package store is the durable, entity-scoped state of moltblock: verified
// memory, checkpoints, outcomes, versioned strategies, governance state, the
// audit log and the handoff inbox. One database may hold many entities; every
// query is scoped by entity id.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/JaimeStill/moltblock/pkg/database"
	"github.com/JaimeStill/moltblock/pkg/repository"
)

// DefaultLimit is used by most-recent queries when n is not positive.
const DefaultLimit = 20

type dbtx interface {
	repository.Querier
	repository.Executor
}

// Store is a view of the shared database for one entity. A Store returned by
// InTx is bound to that transaction.
type Store struct {
	db       *sql.DB
	q        dbtx
	tx       *sql.Tx
	dialect  repository.Dialect
	entityID string
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a Store for entityID over db.
func New(db database.System, entityID string, logger *slog.Logger) *Store {
	conn := db.Connection()
	return &Store{
		db:       conn,
		q:        conn,
		dialect:  db.Dialect(),
		entityID: entityID,
		logger:   logger.With("system", "store"),
		now:      time.Now,
	}
}

// WithEntity returns a view of the same database scoped to another entity.
func (s *Store) WithEntity(entityID string) *Store {
	c := *s
	c.entityID = entityID
	return &c
}

// EntityID returns the entity the store is scoped to.
func (s *Store) EntityID() string {
	return s.entityID
}

// InTx runs fn with a Store bound to a single transaction. Nested calls reuse
// the outer transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.tx != nil {
		return fn(s)
	}

	return repository.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		bound := *s
		bound.q = tx
		bound.tx = tx
		return fn(&bound)
	})
}

// Lock takes a transaction-scoped exclusive lock on name for this entity.
// PostgreSQL uses an advisory lock; SQLite transactions already serialize
// writers on the single connection.
func (s *Store) Lock(ctx context.Context, name string) error {
	if s.tx == nil {
		return ErrNoTransaction
	}
	if s.dialect != repository.Postgres {
		return nil
	}

	_, err := s.q.ExecContext(ctx,
		s.dialect.Rebind("SELECT pg_advisory_xact_lock(hashtext(?))"),
		s.entityID+":"+name,
	)
	if err != nil {
		return fmt.Errorf("advisory lock %s: %w", name, err)
	}
	return nil
}

func (s *Store) rebind(query string) string {
	return s.dialect.Rebind(query)
}

func (s *Store) timestamp() int64 {
	return s.now().UTC().UnixMicro()
}

func fromMicros(v int64) time.Time {
	return time.UnixMicro(v).UTC()
}

func limit(n int) int {
	if n <= 0 {
		return DefaultLimit
	}
	return n
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
