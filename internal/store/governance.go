package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/JaimeStill/moltblock/pkg/repository"
)

// GovernanceValue returns the value stored under key and whether it exists.
func (s *Store) GovernanceValue(ctx context.Context, key string) (string, bool, error) {
	q := s.rebind(`SELECT value FROM governance_state WHERE entity_id = ? AND key = ?`)

	var v string
	err := s.q.QueryRowContext(ctx, q, s.entityID, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query governance %s: %w", key, err)
	}
	return v, true, nil
}

// SetGovernanceValue upserts key. Last write wins.
func (s *Store) SetGovernanceValue(ctx context.Context, key, value string) error {
	q := s.rebind(`
		INSERT INTO governance_state (entity_id, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (entity_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`)

	if _, err := s.q.ExecContext(ctx, q, s.entityID, key, value, s.timestamp()); err != nil {
		return fmt.Errorf("upsert governance %s: %w", key, err)
	}
	return nil
}

// GovernanceState returns every governance key for the entity.
func (s *Store) GovernanceState(ctx context.Context) (map[string]string, error) {
	q := s.rebind(`SELECT key, value FROM governance_state WHERE entity_id = ? ORDER BY key`)

	type kv struct{ k, v string }
	rows, err := repository.QueryMany(ctx, s.q, q, []any{s.entityID}, func(sc repository.Scanner) (kv, error) {
		var r kv
		err := sc.Scan(&r.k, &r.v)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("query governance state: %w", err)
	}

	state := make(map[string]string, len(rows))
	for _, r := range rows {
		state[r.k] = r.v
	}
	return state, nil
}
