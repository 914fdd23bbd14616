package store

import (
	"context"
	"fmt"

	"github.com/JaimeStill/moltblock/pkg/repository"
)

const verifiedColumns = "id, entity_id, artifact_ref, summary, content_preview, created_at"

func scanVerified(sc repository.Scanner) (VerifiedMemory, error) {
	var (
		v       VerifiedMemory
		created int64
	)
	if err := sc.Scan(&v.ID, &v.EntityID, &v.ArtifactRef, &v.Summary, &v.ContentPreview, &created); err != nil {
		return v, err
	}
	v.CreatedAt = fromMicros(created)
	return v, nil
}

// AddVerified appends an admitted artifact to verified memory.
func (s *Store) AddVerified(ctx context.Context, v VerifiedMemory) (VerifiedMemory, error) {
	v.EntityID = s.entityID
	created := s.timestamp()

	q := s.rebind(`
		INSERT INTO verified_memory (entity_id, artifact_ref, summary, content_preview, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`)

	if err := s.q.QueryRowContext(ctx, q, v.EntityID, v.ArtifactRef, v.Summary, v.ContentPreview, created).Scan(&v.ID); err != nil {
		return VerifiedMemory{}, fmt.Errorf("insert verified memory: %w", repository.MapError(err, ErrNotFound, ErrDuplicate))
	}
	v.CreatedAt = fromMicros(created)
	return v, nil
}

// RecentVerified returns the n most recently admitted artifacts, newest first.
func (s *Store) RecentVerified(ctx context.Context, n int) ([]VerifiedMemory, error) {
	q := s.rebind(`SELECT ` + verifiedColumns + ` FROM verified_memory WHERE entity_id = ? ORDER BY id DESC LIMIT ?`)

	rows, err := repository.QueryMany(ctx, s.q, q, []any{s.entityID, limit(n)}, scanVerified)
	if err != nil {
		return nil, fmt.Errorf("query verified memory: %w", err)
	}
	return rows, nil
}
