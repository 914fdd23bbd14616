package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/JaimeStill/moltblock/pkg/repository"
)

const outcomeColumns = "id, entity_id, task_ref, verification_passed, latency_sec, created_at"

func scanOutcome(sc repository.Scanner) (Outcome, error) {
	var (
		o       Outcome
		passed  int
		latency sql.NullFloat64
		created int64
	)
	if err := sc.Scan(&o.ID, &o.EntityID, &o.TaskRef, &passed, &latency, &created); err != nil {
		return o, err
	}
	o.VerificationPassed = passed != 0
	if latency.Valid {
		o.LatencySec = &latency.Float64
	}
	o.CreatedAt = fromMicros(created)
	return o, nil
}

// RecordOutcome appends the result of one completed run.
func (s *Store) RecordOutcome(ctx context.Context, o Outcome) (Outcome, error) {
	o.EntityID = s.entityID
	created := s.timestamp()

	var latency sql.NullFloat64
	if o.LatencySec != nil {
		latency = sql.NullFloat64{Float64: *o.LatencySec, Valid: true}
	}

	q := s.rebind(`
		INSERT INTO outcomes (entity_id, task_ref, verification_passed, latency_sec, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`)

	if err := s.q.QueryRowContext(ctx, q, o.EntityID, o.TaskRef, boolInt(o.VerificationPassed), latency, created).Scan(&o.ID); err != nil {
		return Outcome{}, fmt.Errorf("insert outcome: %w", err)
	}
	o.CreatedAt = fromMicros(created)
	return o, nil
}

// RecentOutcomes returns the n most recent outcomes, newest first.
func (s *Store) RecentOutcomes(ctx context.Context, n int) ([]Outcome, error) {
	q := s.rebind(`SELECT ` + outcomeColumns + ` FROM outcomes WHERE entity_id = ? ORDER BY id DESC LIMIT ?`)

	rows, err := repository.QueryMany(ctx, s.q, q, []any{s.entityID, limit(n)}, scanOutcome)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	return rows, nil
}
