package store

import (
	"context"
	"fmt"

	"github.com/JaimeStill/moltblock/pkg/repository"
)

const auditColumns = "id, entity_id, event_type, detail, created_at"

func scanAudit(sc repository.Scanner) (AuditEntry, error) {
	var (
		a       AuditEntry
		created int64
	)
	if err := sc.Scan(&a.ID, &a.EntityID, &a.EventType, &a.Detail, &created); err != nil {
		return a, err
	}
	a.CreatedAt = fromMicros(created)
	return a, nil
}

// Audit appends a governance event.
func (s *Store) Audit(ctx context.Context, event, detail string) (AuditEntry, error) {
	a := AuditEntry{EntityID: s.entityID, EventType: event, Detail: detail}
	created := s.timestamp()

	q := s.rebind(`
		INSERT INTO audit_log (entity_id, event_type, detail, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`)

	if err := s.q.QueryRowContext(ctx, q, a.EntityID, a.EventType, a.Detail, created).Scan(&a.ID); err != nil {
		return AuditEntry{}, fmt.Errorf("insert audit entry: %w", err)
	}
	a.CreatedAt = fromMicros(created)
	return a, nil
}

// AuditLog returns the n most recent audit entries, newest first.
func (s *Store) AuditLog(ctx context.Context, n int) ([]AuditEntry, error) {
	q := s.rebind(`SELECT ` + auditColumns + ` FROM audit_log WHERE entity_id = ? ORDER BY id DESC LIMIT ?`)

	rows, err := repository.QueryMany(ctx, s.q, q, []any{s.entityID, limit(n)}, scanAudit)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	return rows, nil
}
