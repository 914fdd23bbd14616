// Package handoff moves signed artifacts between entities through the
// recipient's inbox.
package handoff

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/moltblock/internal/store"
	"github.com/JaimeStill/moltblock/pkg/formatting"
)

// MaxPayloadLen caps the stored payload in characters. The signature and
// hash cover the stored text.
const MaxPayloadLen = 100_000

// DefaultReceiveLimit is used when ReceiveOptions.Limit is not positive.
const DefaultReceiveLimit = 20

// Artifact is a received inbox entry.
type Artifact struct {
	FromEntityID string    `json:"from_entity_id"`
	ArtifactRef  string    `json:"artifact_ref"`
	PayloadText  string    `json:"payload_text"`
	Verified     bool      `json:"verified"`
	CreatedAt    time.Time `json:"created_at"`
}

// ReceiveOptions controls Receive. Signatures are verified unless SkipVerify
// is set.
type ReceiveOptions struct {
	Limit      int
	SkipVerify bool
}

// Send signs content as senderID and appends it to the recipient's inbox.
// An empty ref is generated as artifact_<sender>_<uuid>.
func Send(ctx context.Context, senderID string, recipient *store.Store, content, ref string) (string, error) {
	if ref == "" {
		ref = fmt.Sprintf("artifact_%s_%s", senderID, uuid.NewString())
	}
	payload := formatting.Truncate(content, MaxPayloadLen)

	_, err := recipient.PutInbox(ctx, store.InboxEntry{
		FromEntityID: senderID,
		ArtifactRef:  ref,
		PayloadText:  payload,
		PayloadHash:  PayloadHash(payload),
		Signature:    Sign(senderID, payload),
	})
	if err != nil {
		return "", fmt.Errorf("send %s to %s: %w", ref, recipient.EntityID(), err)
	}
	return ref, nil
}

// Receive returns the most recent inbox entries of s's entity, newest first.
// A signature or payload hash mismatch marks an entry unverified; it is never
// an error.
func Receive(ctx context.Context, s *store.Store, opts ReceiveOptions) ([]Artifact, error) {
	n := opts.Limit
	if n <= 0 {
		n = DefaultReceiveLimit
	}

	entries, err := s.Inbox(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("receive: %w", err)
	}

	out := make([]Artifact, len(entries))
	for i, e := range entries {
		verified := true
		if !opts.SkipVerify {
			verified = VerifySignature(e.FromEntityID, e.PayloadText, e.Signature) &&
				PayloadHash(e.PayloadText) == e.PayloadHash
		}
		out[i] = Artifact{
			FromEntityID: e.FromEntityID,
			ArtifactRef:  e.ArtifactRef,
			PayloadText:  e.PayloadText,
			Verified:     verified,
			CreatedAt:    e.CreatedAt,
		}
	}
	return out, nil
}
