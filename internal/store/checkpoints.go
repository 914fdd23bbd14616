package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/JaimeStill/moltblock/pkg/repository"
)

const checkpointColumns = "id, entity_id, entity_version, graph_hash, memory_hash, artifact_refs, created_at"

func scanCheckpoint(sc repository.Scanner) (Checkpoint, error) {
	var (
		c       Checkpoint
		refs    string
		created int64
	)
	if err := sc.Scan(&c.ID, &c.EntityID, &c.EntityVersion, &c.GraphHash, &c.MemoryHash, &refs, &created); err != nil {
		return c, err
	}
	if err := json.Unmarshal([]byte(refs), &c.ArtifactRefs); err != nil {
		return c, fmt.Errorf("decode artifact refs: %w", err)
	}
	c.CreatedAt = fromMicros(created)
	return c, nil
}

// WriteCheckpoint appends an immutable checkpoint.
func (s *Store) WriteCheckpoint(ctx context.Context, c Checkpoint) (Checkpoint, error) {
	c.EntityID = s.entityID
	if c.ArtifactRefs == nil {
		c.ArtifactRefs = []string{}
	}

	refs, err := json.Marshal(c.ArtifactRefs)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("encode artifact refs: %w", err)
	}
	created := s.timestamp()

	q := s.rebind(`
		INSERT INTO checkpoints (entity_id, entity_version, graph_hash, memory_hash, artifact_refs, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`)

	if err := s.q.QueryRowContext(ctx, q, c.EntityID, c.EntityVersion, c.GraphHash, c.MemoryHash, string(refs), created).Scan(&c.ID); err != nil {
		return Checkpoint{}, fmt.Errorf("insert checkpoint: %w", err)
	}
	c.CreatedAt = fromMicros(created)
	return c, nil
}

// ListCheckpoints returns the n most recent checkpoints, newest first.
func (s *Store) ListCheckpoints(ctx context.Context, n int) ([]Checkpoint, error) {
	q := s.rebind(`SELECT ` + checkpointColumns + ` FROM checkpoints WHERE entity_id = ? ORDER BY id DESC LIMIT ?`)

	rows, err := repository.QueryMany(ctx, s.q, q, []any{s.entityID, limit(n)}, scanCheckpoint)
	if err != nil {
		return nil, fmt.Errorf("query checkpoints: %w", err)
	}
	return rows, nil
}

// HashMemory returns the first 16 hex characters of the SHA-256 of the sorted
// artifact refs encoded as a JSON array with ", " separators.
func HashMemory(refs []string) string {
	sorted := slices.Sorted(slices.Values(refs))
	quoted := make([]string, len(sorted))
	for i, r := range sorted {
		b, _ := json.Marshal(r)
		quoted[i] = string(b)
	}
	sum := sha256.Sum256([]byte("[" + strings.Join(quoted, ", ") + "]"))
	return hex.EncodeToString(sum[:])[:16]
}
