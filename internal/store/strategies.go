package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/JaimeStill/moltblock/pkg/repository"
)

const (
	strategyColumns  = "id, entity_id, role, version, content, created_at"
	strategyAttempts = 3
)

func scanStrategy(sc repository.Scanner) (Strategy, error) {
	var (
		st      Strategy
		created int64
	)
	if err := sc.Scan(&st.ID, &st.EntityID, &st.Role, &st.Version, &st.Content, &created); err != nil {
		return st, err
	}
	st.CreatedAt = fromMicros(created)
	return st, nil
}

// SetStrategy appends the next version of role's strategy. The read of the
// current maximum and the insert run in one transaction so concurrent writers
// cannot assign the same version. A lost race surfaces as a unique violation
// and is retried; persistent conflicts return ErrVersionConflict.
func (s *Store) SetStrategy(ctx context.Context, role, content string) (Strategy, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		return Strategy{}, ErrInvalidRole
	}

	// Inside a caller's transaction a failed statement poisons the transaction,
	// so there is nothing to retry.
	attempts := strategyAttempts
	if s.tx != nil {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		var st Strategy
		err := s.InTx(ctx, func(tx *Store) error {
			var err error
			st, err = tx.insertNextStrategy(ctx, role, content)
			return err
		})
		if err == nil {
			s.logger.InfoContext(ctx, "strategy updated", "entity", s.entityID, "role", role, "version", st.Version)
			return st, nil
		}
		if !repository.IsUniqueViolation(err) {
			return Strategy{}, fmt.Errorf("set strategy: %w", err)
		}

		s.logger.WarnContext(ctx, "strategy version race", "entity", s.entityID, "role", role, "attempt", attempt)
	}

	return Strategy{}, fmt.Errorf("%w: role %s", ErrVersionConflict, role)
}

func (s *Store) insertNextStrategy(ctx context.Context, role, content string) (Strategy, error) {
	if err := s.Lock(ctx, "strategy:"+role); err != nil {
		return Strategy{}, err
	}

	var current int
	maxQ := s.rebind(`SELECT COALESCE(MAX(version), 0) FROM strategies WHERE entity_id = ? AND role = ?`)
	if err := s.q.QueryRowContext(ctx, maxQ, s.entityID, role).Scan(&current); err != nil {
		return Strategy{}, fmt.Errorf("read strategy version: %w", err)
	}

	st := Strategy{
		EntityID: s.entityID,
		Role:     role,
		Version:  current + 1,
		Content:  content,
	}
	created := s.timestamp()

	insQ := s.rebind(`
		INSERT INTO strategies (entity_id, role, version, content, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`)

	if err := s.q.QueryRowContext(ctx, insQ, st.EntityID, st.Role, st.Version, st.Content, created).Scan(&st.ID); err != nil {
		return Strategy{}, err
	}
	st.CreatedAt = fromMicros(created)
	return st, nil
}

// CurrentStrategy returns the highest version of role's strategy, or
// ErrNotFound when none has been set.
func (s *Store) CurrentStrategy(ctx context.Context, role string) (Strategy, error) {
	q := s.rebind(`SELECT ` + strategyColumns + ` FROM strategies WHERE entity_id = ? AND role = ? ORDER BY version DESC LIMIT 1`)

	st, err := repository.QueryOne(ctx, s.q, q, []any{s.entityID, role}, scanStrategy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Strategy{}, ErrNotFound
		}
		return Strategy{}, fmt.Errorf("query strategy: %w", err)
	}
	return st, nil
}

// StrategyHistory returns up to n versions of role's strategy, newest first.
func (s *Store) StrategyHistory(ctx context.Context, role string, n int) ([]Strategy, error) {
	q := s.rebind(`SELECT ` + strategyColumns + ` FROM strategies WHERE entity_id = ? AND role = ? ORDER BY version DESC LIMIT ?`)

	rows, err := repository.QueryMany(ctx, s.q, q, []any{s.entityID, role, limit(n)}, scanStrategy)
	if err != nil {
		return nil, fmt.Errorf("query strategy history: %w", err)
	}
	return rows, nil
}
