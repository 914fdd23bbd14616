package runner

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/JaimeStill/moltblock/internal/memory"
	"github.com/JaimeStill/moltblock/internal/store"
	"github.com/JaimeStill/moltblock/pkg/formatting"
)

// Persistence limits.
const (
	LongTermCount      = 5
	LongTermPreviewLen = 500
	PreviewLen         = 2000
	TaskRefLen         = 100
)

// Meta keys written by runs.
const (
	MetaArtifactRef  = "artifactRef"
	MetaVerification = "verification"
	MetaRoutedDomain = "routedDomain"
	MetaCheckpointID = "checkpointId"
)

// DefaultEntityVersion is recorded on checkpoints when Options leaves it empty.
const DefaultEntityVersion = "0.2.0"

// LongTermContext joins previews of the most recent verified artifacts. An
// entry without a preview contributes its summary.
func LongTermContext(ctx context.Context, s *store.Store) (string, error) {
	recent, err := s.RecentVerified(ctx, LongTermCount)
	if err != nil {
		return "", fmt.Errorf("load long-term context: %w", err)
	}

	parts := make([]string, 0, len(recent))
	for _, v := range recent {
		switch {
		case v.ContentPreview != "":
			parts = append(parts, formatting.Truncate(v.ContentPreview, LongTermPreviewLen))
		case v.Summary != "":
			parts = append(parts, v.Summary)
		}
	}
	return strings.Join(parts, "\n---\n"), nil
}

// persist writes outcome, then verified memory, then checkpoint. Each write
// happens at most once per run; a failure stops the sequence without rolling
// back earlier writes.
func persist(ctx context.Context, rt *Runtime, s *store.Store, mem *memory.WorkingMemory, graphHash string, opts Options, latency time.Duration) error {
	lat := latency.Seconds()
	if _, err := s.RecordOutcome(ctx, store.Outcome{
		TaskRef:            formatting.Truncate(mem.Task, TaskRefLen),
		VerificationPassed: mem.VerificationPassed,
		LatencySec:         &lat,
	}); err != nil {
		return fmt.Errorf("%w: record outcome: %w", ErrPersist, err)
	}

	artifact := mem.AuthoritativeArtifact
	if !mem.VerificationPassed || artifact == "" {
		return nil
	}

	ref := "artifact_" + uuid.NewString()
	if _, err := s.AddVerified(ctx, store.VerifiedMemory{
		ArtifactRef:    ref,
		Summary:        fmt.Sprintf("Verified artifact (%d chars)", utf8.RuneCountInString(artifact)),
		ContentPreview: formatting.Truncate(artifact, PreviewLen),
	}); err != nil {
		return fmt.Errorf("%w: add verified memory: %w", ErrPersist, err)
	}
	mem.Meta[MetaArtifactRef] = ref

	if opts.WriteCheckpointAfter {
		version := opts.EntityVersion
		if version == "" {
			version = DefaultEntityVersion
		}
		refs := []string{ref}
		c, err := s.WriteCheckpoint(ctx, store.Checkpoint{
			EntityVersion: version,
			GraphHash:     graphHash,
			MemoryHash:    store.HashMemory(refs),
			ArtifactRefs:  refs,
		})
		if err != nil {
			return fmt.Errorf("%w: write checkpoint: %w", ErrPersist, err)
		}
		mem.Meta[MetaCheckpointID] = c.ID
	}

	if rt.Archive != nil {
		if err := rt.Archive.Store(ctx, s.EntityID(), ref, artifact); err != nil {
			return fmt.Errorf("%w: archive artifact: %w", ErrPersist, err)
		}
	}
	return nil
}
