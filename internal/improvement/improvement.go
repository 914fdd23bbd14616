// Package improvement measures recent outcomes, suggests strategy updates and
// applies them as new strategy versions.
package improvement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JaimeStill/moltblock/internal/agents"
	"github.com/JaimeStill/moltblock/internal/prompts"
	"github.com/JaimeStill/moltblock/internal/store"
	"github.com/JaimeStill/moltblock/pkg/formatting"
)

// Critique thresholds.
const (
	DefaultRecentCount = 10
	MinOutcomes        = 3
	FailRateThreshold  = 0.5
)

const taskRefLen = 100

// Suggestion is a proposed prompt change for one role.
type Suggestion struct {
	Role       agents.Role `json:"role"`
	Suggestion string      `json:"suggestion"`
}

var suggestions = map[string][]Suggestion{
	prompts.DomainCode: {
		{Role: agents.RoleGenerator, Suggestion: "Add explicit instruction: output only valid Python with no markdown fences or commentary."},
		{Role: agents.RoleJudge, Suggestion: "Ensure Judge incorporates all critic feedback and outputs runnable code only."},
	},
	prompts.DomainGeneral: {
		{Role: agents.RoleGenerator, Suggestion: "Add explicit instruction: answer the task directly and completely, without preamble."},
		{Role: agents.RoleJudge, Suggestion: "Ensure Judge incorporates all critic feedback and returns only the final answer."},
	},
	prompts.DomainResearch: {
		{Role: agents.RoleGenerator, Suggestion: "Add explicit instruction: cite a source for every claim and mark uncertain statements."},
		{Role: agents.RoleJudge, Suggestion: "Ensure Judge drops claims the critic found unsupported and keeps cited findings only."},
	},
}

// SuggestionsFor returns the fixed suggestions of domain, falling back to
// the general domain.
func SuggestionsFor(domain string) []Suggestion {
	if s, ok := suggestions[strings.ToLower(domain)]; ok {
		return append([]Suggestion(nil), s...)
	}
	return append([]Suggestion(nil), suggestions[prompts.DomainGeneral]...)
}

// CritiqueStrategies reviews the recent outcomes of s. With fewer than
// MinOutcomes outcomes it suggests nothing; a fail rate at or above
// FailRateThreshold yields the domain's fixed suggestions.
func CritiqueStrategies(ctx context.Context, s *store.Store, recent int, domain string) ([]Suggestion, error) {
	if recent <= 0 {
		recent = DefaultRecentCount
	}
	outcomes, err := s.RecentOutcomes(ctx, recent)
	if err != nil {
		return nil, fmt.Errorf("critique strategies: %w", err)
	}
	if len(outcomes) < MinOutcomes {
		return nil, nil
	}

	passed := 0
	for _, o := range outcomes {
		if o.VerificationPassed {
			passed++
		}
	}
	failRate := 1 - float64(passed)/float64(len(outcomes))
	if failRate < FailRateThreshold {
		return nil, nil
	}
	return SuggestionsFor(domain), nil
}

// ApplySuggestion stores prompt as the next strategy version for role.
func ApplySuggestion(ctx context.Context, s *store.Store, role agents.Role, prompt string) (store.Strategy, error) {
	st, err := s.SetStrategy(ctx, string(role), prompt)
	if err != nil {
		return store.Strategy{}, fmt.Errorf("apply %s suggestion: %w", role, err)
	}
	return st, nil
}

// AppendSuggestion extends role's effective prompt with sg and stores the
// result as a new strategy version.
func AppendSuggestion(ctx context.Context, s *store.Store, registry *prompts.Registry, domain string, sg Suggestion) (store.Strategy, error) {
	current, err := agents.SystemPrompt(ctx, sg.Role, agents.Env{
		Registry:   registry,
		Strategies: s,
		Domain:     domain,
	})
	if err != nil {
		return store.Strategy{}, err
	}
	return ApplySuggestion(ctx, s, sg.Role, strings.TrimSpace(current)+"\n\n"+sg.Suggestion)
}

// TaskFunc runs one evaluation task and reports whether it verified.
type TaskFunc func(ctx context.Context, task string) (bool, error)

// EvalResult counts verified evaluation tasks.
type EvalResult struct {
	Passed int `json:"passed"`
	Total  int `json:"total"`
}

// RunEval runs every task through run. A task error counts as a failure and
// is not returned. With a store, one outcome with latency is recorded per
// task.
func RunEval(ctx context.Context, run TaskFunc, tasks []string, s *store.Store) (EvalResult, error) {
	res := EvalResult{Total: len(tasks)}
	for _, task := range tasks {
		start := time.Now()
		ok, err := run(ctx, task)
		if err != nil {
			ok = false
		}
		latency := time.Since(start).Seconds()

		if s != nil {
			if _, err := s.RecordOutcome(ctx, store.Outcome{
				TaskRef:            formatting.Truncate(task, taskRefLen),
				VerificationPassed: ok,
				LatencySec:         &latency,
			}); err != nil {
				return res, fmt.Errorf("record eval outcome: %w", err)
			}
		}
		if ok {
			res.Passed++
		}
	}
	return res, nil
}

// CycleOptions configures RunImprovementCycle.
type CycleOptions struct {
	Tasks    []string
	Run      TaskFunc
	Domain   string
	Registry *prompts.Registry
	// Apply appends each suggestion to its role's effective prompt.
	Apply bool
}

// CycleResult reports one improvement cycle.
type CycleResult struct {
	Eval        EvalResult       `json:"eval"`
	Suggestions []Suggestion     `json:"suggestions"`
	Applied     []store.Strategy `json:"applied,omitempty"`
}

// RunImprovementCycle evaluates the tasks, critiques the resulting outcomes
// and optionally applies the suggestions.
func RunImprovementCycle(ctx context.Context, s *store.Store, opts CycleOptions) (CycleResult, error) {
	eval, err := RunEval(ctx, opts.Run, opts.Tasks, s)
	if err != nil {
		return CycleResult{Eval: eval}, err
	}

	sgs, err := CritiqueStrategies(ctx, s, eval.Total, opts.Domain)
	if err != nil {
		return CycleResult{Eval: eval}, err
	}
	res := CycleResult{Eval: eval, Suggestions: sgs}

	if !opts.Apply {
		return res, nil
	}
	for _, sg := range sgs {
		st, err := AppendSuggestion(ctx, s, opts.Registry, opts.Domain, sg)
		if err != nil {
			return res, err
		}
		res.Applied = append(res.Applied, st)
	}
	return res, nil
}
