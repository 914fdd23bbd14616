package improvement_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/JaimeStill/moltblock/internal/agents"
	"github.com/JaimeStill/moltblock/internal/improvement"
	"github.com/JaimeStill/moltblock/internal/prompts"
	"github.com/JaimeStill/moltblock/internal/store"
	"github.com/JaimeStill/moltblock/internal/store/storetest"
)

func record(t *testing.T, s *store.Store, results ...bool) {
	t.Helper()
	for _, ok := range results {
		if _, err := s.RecordOutcome(context.Background(), store.Outcome{TaskRef: "t", VerificationPassed: ok}); err != nil {
			t.Fatal(err)
		}
	}
}

func TestCritiqueNeedsThreeOutcomes(t *testing.T) {
	s := storetest.New(t, "default")
	record(t, s, false, false)

	got, err := improvement.CritiqueStrategies(context.Background(), s, 10, prompts.DomainCode)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("suggestions = %v, want none", got)
	}
}

func TestCritiqueFailRate(t *testing.T) {
	tests := []struct {
		name    string
		results []bool
		want    int
	}{
		{"all fail", []bool{false, false, false}, 2},
		{"half fail", []bool{true, false, true, false}, 2},
		{"mostly pass", []bool{true, true, false}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := storetest.New(t, "default")
			record(t, s, tt.results...)

			got, err := improvement.CritiqueStrategies(context.Background(), s, 10, prompts.DomainCode)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != tt.want {
				t.Fatalf("suggestions = %d, want %d", len(got), tt.want)
			}
			if tt.want > 0 && (got[0].Role != agents.RoleGenerator || got[1].Role != agents.RoleJudge) {
				t.Errorf("roles = %s, %s", got[0].Role, got[1].Role)
			}
		})
	}
}

func TestSuggestionsForUnknownDomain(t *testing.T) {
	got := improvement.SuggestionsFor("astrology")
	want := improvement.SuggestionsFor(prompts.DomainGeneral)
	if len(got) != 2 || got[0] != want[0] {
		t.Errorf("SuggestionsFor(unknown) = %v", got)
	}
	if code := improvement.SuggestionsFor("CODE"); !strings.Contains(code[0].Suggestion, "Python") {
		t.Errorf("code suggestion = %q", code[0].Suggestion)
	}
}

func TestApplySuggestionVersions(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t, "default")

	for i, prompt := range []string{"v1", "v2"} {
		st, err := improvement.ApplySuggestion(ctx, s, agents.RoleGenerator, prompt)
		if err != nil {
			t.Fatal(err)
		}
		if st.Version != i+1 {
			t.Errorf("version = %d, want %d", st.Version, i+1)
		}
	}
}

func TestRunEvalCountsErrorsAsFailures(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t, "default")

	run := func(_ context.Context, task string) (bool, error) {
		switch task {
		case "ok":
			return true, nil
		case "boom":
			return false, errors.New("gateway down")
		default:
			return false, nil
		}
	}

	res, err := improvement.RunEval(ctx, run, []string{"ok", "boom", "fail"}, s)
	if err != nil {
		t.Fatal(err)
	}
	if res.Passed != 1 || res.Total != 3 {
		t.Errorf("eval = %+v", res)
	}

	outcomes, _ := s.RecentOutcomes(ctx, 10)
	if len(outcomes) != 3 {
		t.Fatalf("outcomes = %d, want 3", len(outcomes))
	}
	for _, o := range outcomes {
		if o.LatencySec == nil {
			t.Error("outcome missing latency")
		}
	}
}

func TestRunEvalWithoutStore(t *testing.T) {
	res, err := improvement.RunEval(context.Background(), func(context.Context, string) (bool, error) {
		return true, nil
	}, []string{"a", "b"}, nil)
	if err != nil || res.Passed != 2 {
		t.Errorf("eval = %+v, %v", res, err)
	}
}

func TestRunImprovementCycleApply(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t, "default")
	registry := prompts.NewRegistry()

	res, err := improvement.RunImprovementCycle(ctx, s, improvement.CycleOptions{
		Tasks:    []string{"a", "b", "c"},
		Run:      func(context.Context, string) (bool, error) { return false, nil },
		Domain:   prompts.DomainCode,
		Registry: registry,
		Apply:    true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Eval.Passed != 0 || res.Eval.Total != 3 {
		t.Errorf("eval = %+v", res.Eval)
	}
	if len(res.Suggestions) != 2 || len(res.Applied) != 2 {
		t.Fatalf("suggestions = %d, applied = %d", len(res.Suggestions), len(res.Applied))
	}

	gen, err := s.CurrentStrategy(ctx, string(agents.RoleGenerator))
	if err != nil {
		t.Fatal(err)
	}
	base := registry.Get(prompts.DomainCode).Generator
	if !strings.HasPrefix(gen.Content, strings.TrimSpace(base)) || !strings.HasSuffix(gen.Content, res.Suggestions[0].Suggestion) {
		t.Errorf("generator strategy = %q", gen.Content)
	}
}

func TestRunImprovementCycleNoApply(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t, "default")

	res, err := improvement.RunImprovementCycle(ctx, s, improvement.CycleOptions{
		Tasks: []string{"a", "b", "c"},
		Run:   func(context.Context, string) (bool, error) { return false, nil },
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Suggestions) != 2 || len(res.Applied) != 0 {
		t.Errorf("result = %+v", res)
	}
	if _, err := s.CurrentStrategy(ctx, string(agents.RoleGenerator)); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("CurrentStrategy = %v, want ErrNotFound", err)
	}
}
