package store_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/JaimeStill/moltblock/internal/store"
	"github.com/JaimeStill/moltblock/internal/store/storetest"
	"github.com/JaimeStill/moltblock/pkg/database"
)

func TestVerifiedMemoryRecentFirst(t *testing.T) {
	s := storetest.New(t, "alpha")
	ctx := context.Background()

	for i := range 7 {
		if _, err := s.AddVerified(ctx, store.VerifiedMemory{
			ArtifactRef:    fmt.Sprintf("artifact_%d", i),
			ContentPreview: fmt.Sprintf("preview %d", i),
		}); err != nil {
			t.Fatalf("AddVerified: %v", err)
		}
	}

	rows, err := s.RecentVerified(ctx, 5)
	if err != nil {
		t.Fatalf("RecentVerified: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("len = %d, want 5", len(rows))
	}
	if rows[0].ArtifactRef != "artifact_6" || rows[4].ArtifactRef != "artifact_2" {
		t.Errorf("order = %s .. %s", rows[0].ArtifactRef, rows[4].ArtifactRef)
	}
	if rows[0].EntityID != "alpha" || rows[0].CreatedAt.IsZero() {
		t.Errorf("row = %+v", rows[0])
	}
}

func TestDuplicateArtifactRef(t *testing.T) {
	s := storetest.New(t, "alpha")
	ctx := context.Background()

	v := store.VerifiedMemory{ArtifactRef: "artifact_x"}
	if _, err := s.AddVerified(ctx, v); err != nil {
		t.Fatalf("AddVerified: %v", err)
	}
	if _, err := s.AddVerified(ctx, v); !errors.Is(err, store.ErrDuplicate) {
		t.Errorf("second insert err = %v, want ErrDuplicate", err)
	}
}

func TestEntityScoping(t *testing.T) {
	a := storetest.New(t, "alpha")
	b := a.WithEntity("beta")
	ctx := context.Background()

	if _, err := a.RecordOutcome(ctx, store.Outcome{TaskRef: "t", VerificationPassed: true}); err != nil {
		t.Fatalf("RecordOutcome: %v", err)
	}

	rows, err := b.RecentOutcomes(ctx, 10)
	if err != nil {
		t.Fatalf("RecentOutcomes: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("beta sees %d alpha outcomes", len(rows))
	}
	if b.EntityID() != "beta" || a.EntityID() != "alpha" {
		t.Error("WithEntity should not change the original store")
	}
}

func TestOutcomes(t *testing.T) {
	s := storetest.New(t, "alpha")
	ctx := context.Background()

	latency := 1.25
	if _, err := s.RecordOutcome(ctx, store.Outcome{TaskRef: "a", VerificationPassed: true, LatencySec: &latency}); err != nil {
		t.Fatalf("RecordOutcome: %v", err)
	}
	if _, err := s.RecordOutcome(ctx, store.Outcome{TaskRef: "b"}); err != nil {
		t.Fatalf("RecordOutcome: %v", err)
	}

	rows, err := s.RecentOutcomes(ctx, 10)
	if err != nil {
		t.Fatalf("RecentOutcomes: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len = %d", len(rows))
	}
	if rows[0].TaskRef != "b" || rows[0].VerificationPassed || rows[0].LatencySec != nil {
		t.Errorf("newest = %+v", rows[0])
	}
	if !rows[1].VerificationPassed || rows[1].LatencySec == nil || *rows[1].LatencySec != 1.25 {
		t.Errorf("oldest = %+v", rows[1])
	}
}

func TestCheckpoints(t *testing.T) {
	s := storetest.New(t, "alpha")
	ctx := context.Background()

	c, err := s.WriteCheckpoint(ctx, store.Checkpoint{
		EntityVersion: "0.2.0",
		GraphHash:     "abc",
		MemoryHash:    "def",
		ArtifactRefs:  []string{"artifact_1", "artifact_2"},
	})
	if err != nil {
		t.Fatalf("WriteCheckpoint: %v", err)
	}
	if c.ID == 0 {
		t.Error("ID not assigned")
	}

	rows, err := s.ListCheckpoints(ctx, 0)
	if err != nil {
		t.Fatalf("ListCheckpoints: %v", err)
	}
	if len(rows) != 1 || len(rows[0].ArtifactRefs) != 2 || rows[0].GraphHash != "abc" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestStrategyVersionsMonotonicPerRole(t *testing.T) {
	s := storetest.New(t, "alpha")
	ctx := context.Background()

	for i := range 4 {
		for _, role := range []string{"generator", "judge"} {
			st, err := s.SetStrategy(ctx, role, fmt.Sprintf("%s v%d", role, i+1))
			if err != nil {
				t.Fatalf("SetStrategy: %v", err)
			}
			if st.Version != i+1 {
				t.Errorf("%s version = %d, want %d", role, st.Version, i+1)
			}
		}
	}

	cur, err := s.CurrentStrategy(ctx, "generator")
	if err != nil {
		t.Fatalf("CurrentStrategy: %v", err)
	}
	if cur.Version != 4 || cur.Content != "generator v4" {
		t.Errorf("current = %+v", cur)
	}

	hist, err := s.StrategyHistory(ctx, "judge", 10)
	if err != nil {
		t.Fatalf("StrategyHistory: %v", err)
	}
	for i, st := range hist {
		if st.Version != 4-i {
			t.Errorf("history[%d].Version = %d", i, st.Version)
		}
	}
}

func TestStrategyVersionsUnderConcurrency(t *testing.T) {
	s := storetest.New(t, "alpha")
	ctx := context.Background()

	const writers = 12
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := range writers {
		wg.Go(func() {
			if _, err := s.SetStrategy(ctx, "critic", fmt.Sprintf("c%d", i)); err != nil {
				errs <- err
			}
		})
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("SetStrategy: %v", err)
	}

	hist, err := s.StrategyHistory(ctx, "critic", writers)
	if err != nil {
		t.Fatalf("StrategyHistory: %v", err)
	}
	if len(hist) != writers {
		t.Fatalf("len = %d, want %d", len(hist), writers)
	}
	seen := make(map[int]bool)
	for _, st := range hist {
		if seen[st.Version] {
			t.Errorf("duplicate version %d", st.Version)
		}
		seen[st.Version] = true
	}
	for v := 1; v <= writers; v++ {
		if !seen[v] {
			t.Errorf("missing version %d", v)
		}
	}
}

func TestCurrentStrategyNotFound(t *testing.T) {
	s := storetest.New(t, "alpha")

	if _, err := s.CurrentStrategy(context.Background(), "generator"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := s.SetStrategy(context.Background(), " ", "x"); !errors.Is(err, store.ErrInvalidRole) {
		t.Errorf("err = %v, want ErrInvalidRole", err)
	}
}

func TestGovernanceUpsert(t *testing.T) {
	s := storetest.New(t, "alpha")
	ctx := context.Background()

	if _, ok, err := s.GovernanceValue(ctx, "paused"); err != nil || ok {
		t.Fatalf("GovernanceValue = ok %v, err %v", ok, err)
	}

	for _, v := range []string{"1", "0"} {
		if err := s.SetGovernanceValue(ctx, "paused", v); err != nil {
			t.Fatalf("SetGovernanceValue: %v", err)
		}
	}

	v, ok, err := s.GovernanceValue(ctx, "paused")
	if err != nil || !ok || v != "0" {
		t.Errorf("GovernanceValue = %q, %v, %v", v, ok, err)
	}

	state, err := s.GovernanceState(ctx)
	if err != nil || len(state) != 1 {
		t.Errorf("GovernanceState = %v, %v", state, err)
	}
}

func TestAuditAndInbox(t *testing.T) {
	s := storetest.New(t, "alpha")
	ctx := context.Background()

	for _, ev := range []string{"pause", "resume"} {
		if _, err := s.Audit(ctx, ev, ""); err != nil {
			t.Fatalf("Audit: %v", err)
		}
	}
	log, err := s.AuditLog(ctx, 10)
	if err != nil || len(log) != 2 || log[0].EventType != "resume" {
		t.Errorf("AuditLog = %+v, %v", log, err)
	}

	recipient := s.WithEntity("beta")
	if _, err := recipient.PutInbox(ctx, store.InboxEntry{
		FromEntityID: "alpha",
		ArtifactRef:  "artifact_alpha_1",
		PayloadText:  "payload",
		PayloadHash:  "h",
		Signature:    "sig",
	}); err != nil {
		t.Fatalf("PutInbox: %v", err)
	}

	inbox, err := recipient.Inbox(ctx, 10)
	if err != nil || len(inbox) != 1 || inbox[0].EntityID != "beta" || inbox[0].FromEntityID != "alpha" {
		t.Errorf("Inbox = %+v, %v", inbox, err)
	}
	if own, _ := s.Inbox(ctx, 10); len(own) != 0 {
		t.Errorf("sender inbox should be empty, got %d", len(own))
	}
}

func TestInTxRollsBack(t *testing.T) {
	s := storetest.New(t, "alpha")
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.InTx(ctx, func(tx *store.Store) error {
		if err := tx.SetGovernanceValue(ctx, "paused", "1"); err != nil {
			return err
		}
		if err := tx.Lock(ctx, "molt"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx err = %v", err)
	}

	if _, ok, _ := s.GovernanceValue(ctx, "paused"); ok {
		t.Error("write should have been rolled back")
	}
	if err := s.Lock(ctx, "molt"); !errors.Is(err, store.ErrNoTransaction) {
		t.Errorf("Lock outside tx = %v, want ErrNoTransaction", err)
	}
}

func TestFileBackedStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "moltblock.db")
	logger := slog.New(slog.DiscardHandler)
	ctx := context.Background()

	open := func() database.System {
		cfg := &database.Config{Driver: database.DriverSQLite, Path: path}
		if err := cfg.Finalize(nil); err != nil {
			t.Fatalf("Finalize: %v", err)
		}
		db, err := database.New(cfg, logger)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if err := store.Migrate(ctx, db, logger); err != nil {
			t.Fatalf("Migrate: %v", err)
		}
		return db
	}

	db := open()
	if _, err := store.New(db, "alpha", logger).SetStrategy(ctx, "generator", "persisted"); err != nil {
		t.Fatalf("SetStrategy: %v", err)
	}
	db.Close()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("perm = %o, want 600", info.Mode().Perm())
	}

	db = open()
	defer db.Close()

	st, err := store.New(db, "alpha", logger).CurrentStrategy(ctx, "generator")
	if err != nil || st.Content != "persisted" {
		t.Errorf("CurrentStrategy = %+v, %v", st, err)
	}
}

func TestHashMemory(t *testing.T) {
	got := store.HashMemory([]string{"artifact_b", "artifact_a"})
	if got != "ff1d101206ee1326" {
		t.Errorf("HashMemory = %q", got)
	}
	if store.HashMemory([]string{"artifact_a", "artifact_b"}) != got {
		t.Error("HashMemory should not depend on ref order")
	}
}
