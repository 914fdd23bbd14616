package store

import (
	"context"
	"fmt"

	"github.com/JaimeStill/moltblock/pkg/repository"
)

const inboxColumns = "id, entity_id, from_entity_id, artifact_ref, payload_text, payload_hash, signature, created_at"

func scanInbox(sc repository.Scanner) (InboxEntry, error) {
	var (
		e       InboxEntry
		created int64
	)
	if err := sc.Scan(&e.ID, &e.EntityID, &e.FromEntityID, &e.ArtifactRef, &e.PayloadText, &e.PayloadHash, &e.Signature, &created); err != nil {
		return e, err
	}
	e.CreatedAt = fromMicros(created)
	return e, nil
}

// PutInbox deposits e in this entity's inbox.
func (s *Store) PutInbox(ctx context.Context, e InboxEntry) (InboxEntry, error) {
	e.EntityID = s.entityID
	created := s.timestamp()

	q := s.rebind(`
		INSERT INTO inbox (entity_id, from_entity_id, artifact_ref, payload_text, payload_hash, signature, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	err := s.q.QueryRowContext(ctx, q,
		e.EntityID, e.FromEntityID, e.ArtifactRef, e.PayloadText, e.PayloadHash, e.Signature, created,
	).Scan(&e.ID)
	if err != nil {
		return InboxEntry{}, fmt.Errorf("insert inbox entry: %w", err)
	}
	e.CreatedAt = fromMicros(created)
	return e, nil
}

// Inbox returns the n most recent entries deposited for this entity, newest first.
func (s *Store) Inbox(ctx context.Context, n int) ([]InboxEntry, error) {
	q := s.rebind(`SELECT ` + inboxColumns + ` FROM inbox WHERE entity_id = ? ORDER BY id DESC LIMIT ?`)

	rows, err := repository.QueryMany(ctx, s.q, q, []any{s.entityID, limit(n)}, scanInbox)
	if err != nil {
		return nil, fmt.Errorf("query inbox: %w", err)
	}
	return rows, nil
}
