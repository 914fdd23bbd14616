package store

import "time"

// VerifiedMemory is an admitted artifact. Rows are append-only.
type VerifiedMemory struct {
	ID             int64     `json:"id"`
	EntityID       string    `json:"entity_id"`
	ArtifactRef    string    `json:"artifact_ref"`
	Summary        string    `json:"summary"`
	ContentPreview string    `json:"content_preview"`
	CreatedAt      time.Time `json:"created_at"`
}

// Checkpoint is an immutable snapshot of entity version, graph and memory hashes.
type Checkpoint struct {
	ID            int64     `json:"id"`
	EntityID      string    `json:"entity_id"`
	EntityVersion string    `json:"entity_version"`
	GraphHash     string    `json:"graph_hash"`
	MemoryHash    string    `json:"memory_hash"`
	ArtifactRefs  []string  `json:"artifact_refs"`
	CreatedAt     time.Time `json:"created_at"`
}

// Outcome is one completed run, passed or not.
type Outcome struct {
	ID                 int64     `json:"id"`
	EntityID           string    `json:"entity_id"`
	TaskRef            string    `json:"task_ref"`
	VerificationPassed bool      `json:"verification_passed"`
	LatencySec         *float64  `json:"latency_sec,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// Strategy is one version of a role's system prompt override.
type Strategy struct {
	ID        int64     `json:"id"`
	EntityID  string    `json:"entity_id"`
	Role      string    `json:"role"`
	Version   int       `json:"version"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// AuditEntry is an append-only governance event.
type AuditEntry struct {
	ID        int64     `json:"id"`
	EntityID  string    `json:"entity_id"`
	EventType string    `json:"event_type"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

// InboxEntry is one signed handoff deposited for EntityID by FromEntityID.
type InboxEntry struct {
	ID           int64     `json:"id"`
	EntityID     string    `json:"entity_id"`
	FromEntityID string    `json:"from_entity_id"`
	ArtifactRef  string    `json:"artifact_ref"`
	PayloadText  string    `json:"payload_text"`
	PayloadHash  string    `json:"payload_hash"`
	Signature    string    `json:"signature"`
	CreatedAt    time.Time `json:"created_at"`
}
