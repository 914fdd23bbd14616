// Package agents implements the generator, critic, judge and router roles.
// Each role resolves its system prompt, composes one user message, makes a
// single gateway call and returns the trimmed response.
package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JaimeStill/moltblock/internal/gateway"
	"github.com/JaimeStill/moltblock/internal/memory"
	"github.com/JaimeStill/moltblock/internal/prompts"
	"github.com/JaimeStill/moltblock/internal/store"
)

const knowledgeHeading = "Relevant verified knowledge:"

// Completer is the gateway capability used by the roles.
type Completer interface {
	Complete(ctx context.Context, messages []gateway.Message, maxTokens int) (string, error)
}

// StrategySource provides persisted system prompt overrides per role.
type StrategySource interface {
	CurrentStrategy(ctx context.Context, role string) (store.Strategy, error)
}

// Env carries the shared collaborators of every role call.
type Env struct {
	Registry   *prompts.Registry
	Strategies StrategySource
	Domain     string
	MaxTokens  int
}

// Input is the text a role reads.
type Input struct {
	Task            string
	Draft           string
	Critique        string
	LongTermContext string
}

// Output is a predecessor node's result in a graph run.
type Output struct {
	NodeID string
	Role   Role
	Text   string
}

// Run executes role once against c.
func Run(ctx context.Context, role Role, c Completer, env Env, in Input) (string, error) {
	var user string
	switch role {
	case RoleGenerator:
		user = in.Task
		if in.LongTermContext != "" {
			user += "\n\n" + knowledgeHeading + "\n" + in.LongTermContext
		}
	case RoleCritic:
		user = fmt.Sprintf("Task:\n%s\n\nDraft code:\n%s", in.Task, in.Draft)
	case RoleJudge:
		user = fmt.Sprintf("Task:\n%s\n\nDraft:\n%s\n\nCritique:\n%s", in.Task, in.Draft, in.Critique)
	case RoleRouter:
		user = in.Task
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}

	system, err := SystemPrompt(ctx, role, env)
	if err != nil {
		return "", err
	}

	maxTokens := env.MaxTokens
	if maxTokens <= 0 {
		maxTokens = gateway.DefaultMaxTokens
	}

	out, err := c.Complete(ctx, []gateway.Message{
		{Role: gateway.RoleSystem, Content: system},
		{Role: gateway.RoleUser, Content: user},
	}, maxTokens)
	if err != nil {
		return "", fmt.Errorf("%s: %w", role, err)
	}
	return strings.TrimSpace(out), nil
}

// SystemPrompt resolves the effective system prompt for role: a persisted
// strategy wins over the registry entry for the active domain. The router
// always uses its fixed classification prompt.
func SystemPrompt(ctx context.Context, role Role, env Env) (string, error) {
	if role == RoleRouter {
		return prompts.RouterInstructions, nil
	}

	if env.Strategies != nil {
		s, err := env.Strategies.CurrentStrategy(ctx, string(role))
		switch {
		case err == nil && s.Content != "":
			return s.Content, nil
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return "", fmt.Errorf("load %s strategy: %w", role, err)
		}
	}

	registry := env.Registry
	if registry == nil {
		registry = prompts.NewRegistry()
	}
	p := registry.Get(env.Domain)

	switch role {
	case RoleGenerator:
		return p.Generator, nil
	case RoleCritic:
		return p.Critic, nil
	case RoleJudge:
		return p.Judge, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
}

// GraphInput builds a role input from predecessor outputs. The draft is the
// generator predecessor's output, or every predecessor output joined when no
// generator feeds the node; the critique is the critic predecessor's output.
// Long-term context is only passed to generators.
func GraphInput(role Role, task, longTerm string, preds []Output) Input {
	in := Input{Task: task}
	if role == RoleGenerator {
		in.LongTermContext = longTerm
	}

	var (
		draftFound    bool
		critiqueFound bool
		all           []string
	)
	for _, p := range preds {
		if p.Text != "" {
			all = append(all, p.Text)
		}
		switch {
		case p.Role == RoleGenerator && !draftFound:
			in.Draft = p.Text
			draftFound = true
		case p.Role == RoleCritic && !critiqueFound:
			in.Critique = p.Text
			critiqueFound = true
		}
	}

	if !draftFound {
		in.Draft = strings.Join(all, "\n\n")
	}
	return in
}

// Generate runs the generator against mem and stores the draft.
func Generate(ctx context.Context, c Completer, env Env, mem *memory.WorkingMemory) error {
	out, err := Run(ctx, RoleGenerator, c, env, Input{Task: mem.Task, LongTermContext: mem.LongTermContext})
	if err != nil {
		return err
	}
	mem.Draft = out
	return nil
}

// Critique runs the critic against mem and stores the critique.
func Critique(ctx context.Context, c Completer, env Env, mem *memory.WorkingMemory) error {
	out, err := Run(ctx, RoleCritic, c, env, Input{Task: mem.Task, Draft: mem.Draft})
	if err != nil {
		return err
	}
	mem.Critique = out
	return nil
}

// Judge runs the judge against mem and stores the final candidate.
func Judge(ctx context.Context, c Completer, env Env, mem *memory.WorkingMemory) error {
	out, err := Run(ctx, RoleJudge, c, env, Input{Task: mem.Task, Draft: mem.Draft, Critique: mem.Critique})
	if err != nil {
		return err
	}
	mem.FinalCandidate = out
	return nil
}

// Route classifies the task and returns the router's one-word answer,
// lower-cased.
func Route(ctx context.Context, c Completer, env Env, task string) (string, error) {
	out, err := Run(ctx, RoleRouter, c, env, Input{Task: task})
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.Trim(out, " .\n\t")), nil
}
