// Package governance enforces molt rate limits and the human veto, and
// records governance events in the audit log. Denials are returned as values.
package governance

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/JaimeStill/moltblock/internal/store"
	"github.com/JaimeStill/moltblock/pkg/metrics"
)

// Governance state keys.
const (
	KeyPaused        = "paused"
	KeyLastMoltAt    = "last_molt_at"
	KeyEntityVersion = "entity_version"
)

// Audit event types.
const (
	EventMolt              = "molt"
	EventPause             = "pause"
	EventResume            = "resume"
	EventEmergencyShutdown = "emergency_shutdown"
)

// DefaultMoltGraphHash is recorded when a molt request names no graph hash.
const DefaultMoltGraphHash = "molt"

const moltLock = "molt"

// Decision is the outcome of a governance check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// MoltRequest describes a molt. Trigger defaults to TriggerSystem.
type MoltRequest struct {
	EntityVersion string   `json:"entity_version"`
	GraphHash     string   `json:"graph_hash,omitempty"`
	MemoryHash    string   `json:"memory_hash,omitempty"`
	ArtifactRefs  []string `json:"artifact_refs,omitempty"`
	Trigger       string   `json:"trigger,omitempty"`
}

// MoltResult reports a molt attempt. Checkpoint is set on success.
type MoltResult struct {
	Success    bool              `json:"success"`
	Message    string            `json:"message"`
	Checkpoint *store.Checkpoint `json:"checkpoint,omitempty"`
}

// Status is a snapshot of an entity's governance state.
type Status struct {
	EntityID      string            `json:"entity_id"`
	Paused        bool              `json:"paused"`
	EntityVersion string            `json:"entity_version,omitempty"`
	LastMoltAt    *time.Time        `json:"last_molt_at,omitempty"`
	CanMolt       Decision          `json:"can_molt"`
	State         map[string]string `json:"state"`
}

// Governor applies governance rules to one entity's store.
type Governor struct {
	store   *store.Store
	cfg     Config
	now     func() time.Time
	metrics metrics.Recorder
	logger  *slog.Logger
}

// Option configures a Governor.
type Option func(*Governor)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Governor) { g.now = now }
}

// WithMetrics records molt decisions.
func WithMetrics(m metrics.Recorder) Option {
	return func(g *Governor) { g.metrics = m }
}

// New creates a Governor. cfg should already be finalized.
func New(s *store.Store, cfg Config, logger *slog.Logger, opts ...Option) *Governor {
	g := &Governor{
		store:   s,
		cfg:     cfg,
		now:     time.Now,
		metrics: metrics.Noop{},
		logger:  logger.With("system", "governance", "entity", s.EntityID()),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Config returns the governor's configuration.
func (g *Governor) Config() Config {
	return g.cfg
}

// CanMolt reports whether a molt is currently allowed.
func (g *Governor) CanMolt(ctx context.Context) (Decision, error) {
	return g.canMolt(ctx, g.store)
}

func (g *Governor) canMolt(ctx context.Context, s *store.Store) (Decision, error) {
	if g.cfg.HumanVetoPaused {
		paused, err := isPaused(ctx, s)
		if err != nil {
			return Decision{}, err
		}
		if paused {
			return Decision{Reason: ErrPaused.Error()}, nil
		}
	}

	last, ok, err := lastMolt(ctx, s)
	if err != nil {
		return Decision{}, err
	}
	if ok {
		limit := g.cfg.RateLimit()
		if g.now().Sub(last) < limit {
			return Decision{Reason: fmt.Sprintf("Molt rate limit: wait %v between molts", limit)}, nil
		}
	}
	return Decision{Allowed: true}, nil
}

// TriggerMolt re-checks governance and, when allowed, writes a checkpoint,
// updates last_molt_at and entity_version and audits the molt in one
// transaction. A denial has no side effects.
func (g *Governor) TriggerMolt(ctx context.Context, req MoltRequest) (MoltResult, error) {
	trigger := req.Trigger
	if trigger == "" {
		trigger = TriggerSystem
	}
	if !slices.Contains(g.cfg.AllowedMoltTriggers, trigger) {
		g.metrics.MoltDecision(false)
		return MoltResult{Message: fmt.Sprintf("Molt trigger %q not allowed", trigger)}, nil
	}

	var result MoltResult
	err := g.store.InTx(ctx, func(tx *store.Store) error {
		if err := tx.Lock(ctx, moltLock); err != nil {
			return err
		}

		d, err := g.canMolt(ctx, tx)
		if err != nil {
			return err
		}
		if !d.Allowed {
			result = MoltResult{Message: d.Reason}
			return nil
		}

		graphHash := req.GraphHash
		if graphHash == "" {
			graphHash = DefaultMoltGraphHash
		}
		c, err := tx.WriteCheckpoint(ctx, store.Checkpoint{
			EntityVersion: req.EntityVersion,
			GraphHash:     graphHash,
			MemoryHash:    req.MemoryHash,
			ArtifactRefs:  req.ArtifactRefs,
		})
		if err != nil {
			return err
		}

		if err := tx.SetGovernanceValue(ctx, KeyLastMoltAt, formatUnix(g.now())); err != nil {
			return err
		}
		if err := tx.SetGovernanceValue(ctx, KeyEntityVersion, req.EntityVersion); err != nil {
			return err
		}
		detail := fmt.Sprintf("version=%s graph_hash=%s trigger=%s", req.EntityVersion, req.GraphHash, trigger)
		if _, err := tx.Audit(ctx, EventMolt, detail); err != nil {
			return err
		}

		result = MoltResult{Success: true, Message: "Molt completed", Checkpoint: &c}
		return nil
	})
	if err != nil {
		return MoltResult{}, fmt.Errorf("trigger molt: %w", err)
	}

	g.metrics.MoltDecision(result.Success)
	if result.Success {
		g.logger.InfoContext(ctx, "molt completed", "version", req.EntityVersion, "trigger", trigger)
	} else {
		g.logger.InfoContext(ctx, "molt denied", "reason", result.Message)
	}
	return result, nil
}

// Pause sets the human veto.
func (g *Governor) Pause(ctx context.Context) error {
	return g.setPaused(ctx, true, EventPause, "human veto")
}

// Resume clears the human veto.
func (g *Governor) Resume(ctx context.Context) error {
	return g.setPaused(ctx, false, EventResume, "")
}

func (g *Governor) setPaused(ctx context.Context, paused bool, event, detail string) error {
	value := "0"
	if paused {
		value = "1"
	}
	err := g.store.InTx(ctx, func(tx *store.Store) error {
		if err := tx.SetGovernanceValue(ctx, KeyPaused, value); err != nil {
			return err
		}
		_, err := tx.Audit(ctx, event, detail)
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", event, err)
	}
	g.logger.InfoContext(ctx, "entity "+event, "paused", paused)
	return nil
}

// IsPaused reports whether the entity is paused.
func (g *Governor) IsPaused(ctx context.Context) (bool, error) {
	return isPaused(ctx, g.store)
}

// RequireActive returns ErrPaused when the human veto is enforced and the
// entity is paused.
func (g *Governor) RequireActive(ctx context.Context) error {
	if !g.cfg.HumanVetoPaused {
		return nil
	}
	paused, err := g.IsPaused(ctx)
	if err != nil {
		return err
	}
	if paused {
		return ErrPaused
	}
	return nil
}

// EmergencyShutdown records an emergency shutdown. Stopping the process is
// left to the caller.
func (g *Governor) EmergencyShutdown(ctx context.Context) error {
	if _, err := g.store.Audit(ctx, EventEmergencyShutdown, ""); err != nil {
		return fmt.Errorf("emergency shutdown: %w", err)
	}
	g.logger.WarnContext(ctx, "emergency shutdown recorded")
	return nil
}

// Status returns the entity's governance state.
func (g *Governor) Status(ctx context.Context) (Status, error) {
	state, err := g.store.GovernanceState(ctx)
	if err != nil {
		return Status{}, err
	}
	d, err := g.CanMolt(ctx)
	if err != nil {
		return Status{}, err
	}

	st := Status{
		EntityID:      g.store.EntityID(),
		Paused:        state[KeyPaused] == "1",
		EntityVersion: state[KeyEntityVersion],
		CanMolt:       d,
		State:         state,
	}
	if t, ok := parseUnix(state[KeyLastMoltAt]); ok {
		st.LastMoltAt = &t
	}
	return st, nil
}

func isPaused(ctx context.Context, s *store.Store) (bool, error) {
	v, _, err := s.GovernanceValue(ctx, KeyPaused)
	if err != nil {
		return false, err
	}
	return v == "1", nil
}

func lastMolt(ctx context.Context, s *store.Store) (time.Time, bool, error) {
	v, ok, err := s.GovernanceValue(ctx, KeyLastMoltAt)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	t, ok := parseUnix(v)
	return t, ok, nil
}

// formatUnix encodes t as fractional unix seconds.
func formatUnix(t time.Time) string {
	return strconv.FormatFloat(float64(t.UnixMicro())/1e6, 'f', 6, 64)
}

func parseUnix(v string) (time.Time, bool) {
	if v == "" {
		return time.Time{}, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMicro(int64(f * 1e6)), true
}
