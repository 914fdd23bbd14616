package governance_test

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/JaimeStill/moltblock/internal/governance"
	"github.com/JaimeStill/moltblock/internal/store"
	"github.com/JaimeStill/moltblock/internal/store/storetest"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newGovernor(t *testing.T, cfg governance.Config) (*governance.Governor, *store.Store, *clock) {
	t.Helper()
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	s := storetest.New(t, "default")
	c := &clock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	g := governance.New(s, cfg, slog.New(slog.DiscardHandler), governance.WithClock(c.now))
	return g, s, c
}

func TestConfigDefaults(t *testing.T) {
	var cfg governance.Config
	if err := cfg.Finalize(nil); err != nil {
		t.Fatal(err)
	}
	if cfg.RateLimit() != governance.DefaultMoltRateLimit {
		t.Errorf("rate limit = %v", cfg.RateLimit())
	}
	if len(cfg.AllowedMoltTriggers) != 2 {
		t.Errorf("triggers = %v", cfg.AllowedMoltTriggers)
	}
}

func TestConfigEnvAndValidation(t *testing.T) {
	t.Setenv("TEST_GOV_RATE", "5m")
	t.Setenv("TEST_GOV_VETO", "true")
	t.Setenv("TEST_GOV_TRIGGERS", "human")

	var cfg governance.Config
	err := cfg.Finalize(&governance.Env{
		MoltRateLimit:       "TEST_GOV_RATE",
		HumanVetoPaused:     "TEST_GOV_VETO",
		AllowedMoltTriggers: "TEST_GOV_TRIGGERS",
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RateLimit() != 5*time.Minute || !cfg.HumanVetoPaused {
		t.Errorf("cfg = %+v", cfg)
	}
	if len(cfg.AllowedMoltTriggers) != 1 || cfg.AllowedMoltTriggers[0] != governance.TriggerHuman {
		t.Errorf("triggers = %v", cfg.AllowedMoltTriggers)
	}

	tests := []governance.Config{
		{MoltRateLimit: "soon"},
		{MoltRateLimit: "-1s"},
		{AllowedMoltTriggers: []string{"cron"}},
	}
	for _, c := range tests {
		if err := c.Finalize(nil); err == nil {
			t.Errorf("Finalize(%+v) expected error", c)
		}
	}
}

func TestMoltRateLimit(t *testing.T) {
	ctx := context.Background()
	g, s, c := newGovernor(t, governance.Config{MoltRateLimit: "9999s"})

	d, err := g.CanMolt(ctx)
	if err != nil || !d.Allowed {
		t.Fatalf("first CanMolt = %+v, %v", d, err)
	}

	res, err := g.TriggerMolt(ctx, governance.MoltRequest{EntityVersion: "0.3.0", GraphHash: "abc"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success || res.Checkpoint == nil {
		t.Fatalf("first molt = %+v", res)
	}

	c.advance(time.Minute)

	d, err = g.CanMolt(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if d.Allowed || !strings.Contains(d.Reason, "rate limit") {
		t.Errorf("CanMolt after molt = %+v", d)
	}

	res, err = g.TriggerMolt(ctx, governance.MoltRequest{EntityVersion: "0.4.0"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Success {
		t.Fatal("second molt should be denied")
	}

	cps, _ := s.ListCheckpoints(ctx, 10)
	if len(cps) != 1 {
		t.Errorf("checkpoints = %d, want 1", len(cps))
	}
	audit, _ := s.AuditLog(ctx, 10)
	if len(audit) != 1 || audit[0].EventType != governance.EventMolt {
		t.Errorf("audit = %+v", audit)
	}
	if v, _, _ := s.GovernanceValue(ctx, governance.KeyEntityVersion); v != "0.3.0" {
		t.Errorf("entity version = %q", v)
	}

	c.advance(9999 * time.Second)
	if d, _ := g.CanMolt(ctx); !d.Allowed {
		t.Errorf("CanMolt after the limit = %+v", d)
	}
}

func TestMoltDefaultGraphHash(t *testing.T) {
	ctx := context.Background()
	g, _, _ := newGovernor(t, governance.Config{})

	res, err := g.TriggerMolt(ctx, governance.MoltRequest{EntityVersion: "1.0.0"})
	if err != nil || !res.Success {
		t.Fatalf("TriggerMolt = %+v, %v", res, err)
	}
	if res.Checkpoint.GraphHash != governance.DefaultMoltGraphHash {
		t.Errorf("graph hash = %q", res.Checkpoint.GraphHash)
	}
}

func TestPauseVeto(t *testing.T) {
	ctx := context.Background()
	g, s, _ := newGovernor(t, governance.Config{HumanVetoPaused: true})

	if err := g.Pause(ctx); err != nil {
		t.Fatal(err)
	}
	if paused, _ := g.IsPaused(ctx); !paused {
		t.Fatal("IsPaused = false after Pause")
	}
	if err := g.RequireActive(ctx); !errors.Is(err, governance.ErrPaused) {
		t.Errorf("RequireActive = %v, want ErrPaused", err)
	}

	d, _ := g.CanMolt(ctx)
	if d.Allowed || !strings.Contains(d.Reason, "paused") {
		t.Errorf("CanMolt while paused = %+v", d)
	}

	res, _ := g.TriggerMolt(ctx, governance.MoltRequest{EntityVersion: "1.0.0"})
	if res.Success {
		t.Error("molt should be denied while paused")
	}
	if cps, _ := s.ListCheckpoints(ctx, 10); len(cps) != 0 {
		t.Errorf("denied molt wrote %d checkpoints", len(cps))
	}

	if err := g.Resume(ctx); err != nil {
		t.Fatal(err)
	}
	if err := g.RequireActive(ctx); err != nil {
		t.Errorf("RequireActive after Resume = %v", err)
	}

	audit, _ := s.AuditLog(ctx, 10)
	if len(audit) != 2 || audit[0].EventType != governance.EventResume || audit[1].EventType != governance.EventPause {
		t.Errorf("audit = %+v", audit)
	}
}

func TestPauseWithoutVetoEnforcement(t *testing.T) {
	ctx := context.Background()
	g, _, _ := newGovernor(t, governance.Config{})

	_ = g.Pause(ctx)
	if err := g.RequireActive(ctx); err != nil {
		t.Errorf("RequireActive = %v, want nil when veto is not enforced", err)
	}
	if d, _ := g.CanMolt(ctx); !d.Allowed {
		t.Errorf("CanMolt = %+v", d)
	}
}

func TestTriggerNotAllowed(t *testing.T) {
	ctx := context.Background()
	g, s, _ := newGovernor(t, governance.Config{AllowedMoltTriggers: []string{governance.TriggerHuman}})

	res, err := g.TriggerMolt(ctx, governance.MoltRequest{EntityVersion: "1.0.0"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Success || !strings.Contains(res.Message, "not allowed") {
		t.Errorf("system trigger = %+v", res)
	}

	res, _ = g.TriggerMolt(ctx, governance.MoltRequest{EntityVersion: "1.0.0", Trigger: governance.TriggerHuman})
	if !res.Success {
		t.Errorf("human trigger = %+v", res)
	}
	if audit, _ := s.AuditLog(ctx, 10); len(audit) != 1 {
		t.Errorf("audit entries = %d, want 1", len(audit))
	}
}

func TestEmergencyShutdownAndStatus(t *testing.T) {
	ctx := context.Background()
	g, s, _ := newGovernor(t, governance.Config{})

	if err := g.EmergencyShutdown(ctx); err != nil {
		t.Fatal(err)
	}
	audit, _ := s.AuditLog(ctx, 1)
	if len(audit) != 1 || audit[0].EventType != governance.EventEmergencyShutdown {
		t.Errorf("audit = %+v", audit)
	}

	if _, err := g.TriggerMolt(ctx, governance.MoltRequest{EntityVersion: "2.0.0"}); err != nil {
		t.Fatal(err)
	}

	st, err := g.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.EntityID != "default" || st.EntityVersion != "2.0.0" || st.LastMoltAt == nil || st.Paused {
		t.Errorf("status = %+v", st)
	}
	if st.CanMolt.Allowed {
		t.Error("CanMolt should be rate limited right after a molt")
	}
}
