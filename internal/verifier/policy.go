package verifier

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/JaimeStill/moltblock/internal/memory"
)

// Target selects the text a rule matches against.
type Target string

// Rule targets. Both matches task + "\n" + artifact.
const (
	TargetArtifact Target = "artifact"
	TargetTask     Target = "task"
	TargetBoth     Target = "both"
)

// Action is what a matching rule does.
type Action string

// Rule actions.
const (
	ActionAllow Action = "allow"
	ActionDeny  Action = "deny"
)

// PolicyPassedEvidence is reported when no deny rule matches.
const PolicyPassedEvidence = "All policy rules passed."

// Rule is one policy regex. An enabled allow rule that matches suppresses
// every deny rule of the same category.
type Rule struct {
	ID          string `json:"id" toml:"id"`
	Description string `json:"description" toml:"description"`
	Target      Target `json:"target" toml:"target"`
	Pattern     string `json:"pattern" toml:"pattern"`
	Action      Action `json:"action" toml:"action"`
	Category    string `json:"category" toml:"category"`
	Enabled     bool   `json:"enabled" toml:"enabled"`
}

type compiledRule struct {
	Rule
	re *regexp.Regexp
}

// Policy is a regex gate over the task and the final candidate. Rules are
// compiled once at construction.
type Policy struct {
	rules []compiledRule
}

// NewPolicy compiles rules.
func NewPolicy(rules []Rule) (*Policy, error) {
	p := &Policy{rules: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		if r.ID == "" {
			return nil, fmt.Errorf("%w: rule id required", ErrInvalidRule)
		}
		switch r.Target {
		case TargetArtifact, TargetTask, TargetBoth:
		default:
			return nil, fmt.Errorf("%w: %s: unknown target %q", ErrInvalidRule, r.ID, r.Target)
		}
		switch r.Action {
		case ActionAllow, ActionDeny:
		default:
			return nil, fmt.Errorf("%w: %s: unknown action %q", ErrInvalidRule, r.ID, r.Action)
		}

		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidRule, r.ID, err)
		}
		p.rules = append(p.rules, compiledRule{Rule: r, re: re})
	}
	return p, nil
}

// Rules returns the policy's rules.
func (p *Policy) Rules() []Rule {
	out := make([]Rule, len(p.rules))
	for i, r := range p.rules {
		out[i] = r.Rule
	}
	return out
}

func (p *Policy) Name() string {
	return "policy"
}

func (p *Policy) Verify(_ context.Context, mem *memory.WorkingMemory, vc Context) Result {
	task := vc.Task
	if task == "" {
		task = mem.Task
	}
	artifact := mem.FinalCandidate

	text := func(t Target) string {
		switch t {
		case TargetTask:
			return task
		case TargetBoth:
			return task + "\n" + artifact
		default:
			return artifact
		}
	}

	allowed := make(map[string]bool)
	for _, r := range p.rules {
		if r.Enabled && r.Action == ActionAllow && r.re.MatchString(text(r.Target)) {
			allowed[r.Category] = true
		}
	}

	var violations []string
	for _, r := range p.rules {
		if !r.Enabled || r.Action != ActionDeny || allowed[r.Category] {
			continue
		}
		if r.re.MatchString(text(r.Target)) {
			violations = append(violations, fmt.Sprintf("[%s] %s", r.ID, r.Description))
		}
	}

	if len(violations) > 0 {
		return Result{Passed: false, Evidence: strings.Join(violations, "\n"), Verifier: p.Name()}
	}
	return Result{Passed: true, Evidence: PolicyPassedEvidence, Verifier: p.Name()}
}
