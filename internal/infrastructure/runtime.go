package infrastructure

import (
	"fmt"
	"log/slog"

	"github.com/JaimeStill/moltblock/internal/agents"
	"github.com/JaimeStill/moltblock/internal/config"
	"github.com/JaimeStill/moltblock/internal/graph"
	"github.com/JaimeStill/moltblock/internal/prompts"
	"github.com/JaimeStill/moltblock/internal/runner"
	"github.com/JaimeStill/moltblock/internal/verifier"
	"github.com/JaimeStill/moltblock/pkg/storage"
)

// NewVerifier builds the configured verifier. A single configured verifier is
// used directly; several are combined in a composite in the configured mode.
func NewVerifier(cfg *config.VerifierConfig, logger *slog.Logger) (verifier.Verifier, error) {
	var vs []verifier.Verifier
	for _, name := range cfg.Verifiers {
		switch name {
		case config.VerifierSyntax:
			vs = append(vs, verifier.NewSyntax(cfg.Syntax, logger))
		case config.VerifierPolicy:
			p, err := verifier.NewPolicy(cfg.PolicyRules())
			if err != nil {
				return nil, err
			}
			vs = append(vs, p)
		default:
			return nil, fmt.Errorf("unknown verifier %q", name)
		}
	}

	if len(vs) == 1 {
		return vs[0], nil
	}
	return verifier.NewComposite(cfg.Mode, vs...)
}

// Runtime assembles the runner runtime for the configured entity, dialing a
// gateway for each binding key.
func (i *Infrastructure) Runtime(registry *prompts.Registry, keys []string) (runner.Runtime, error) {
	completers, err := runner.Dial(i.Config.Agent.Bindings, keys, i.Logger)
	if err != nil {
		return runner.Runtime{}, err
	}

	v, err := NewVerifier(&i.Config.Verifier, i.Logger)
	if err != nil {
		return runner.Runtime{}, fmt.Errorf("verifier: %w", err)
	}

	rt := runner.Runtime{
		Completers: completers,
		Registry:   registry,
		Verifier:   v,
		Metrics:    i.Metrics,
		Logger:     i.Logger,
		Domain:     i.Config.Entity.Domain,
		MaxTokens:  i.Config.Agent.MaxTokens,
		Parallel:   i.Config.Agent.Parallel,
	}
	if i.Storage != nil {
		rt.Archive = storage.NewArchive(i.Storage, i.Config.Storage.Prefix)
	}
	return rt, nil
}

// Executor returns a graph runner for the graph at graphPath, or for the
// configured graph when graphPath is empty. Without any graph it returns the
// fixed generator, critic and judge pipeline, with routing when a router
// binding is configured.
func (i *Infrastructure) Executor(registry *prompts.Registry, graphPath string) (runner.Executor, error) {
	if graphPath == "" {
		graphPath = i.Config.Agent.Graph
	}

	if graphPath != "" {
		g, err := graph.Load(graphPath)
		if err != nil {
			return nil, err
		}
		rt, err := i.Runtime(registry, g.BindingKeys())
		if err != nil {
			return nil, err
		}
		return runner.New(rt, g)
	}

	keys := []string{
		string(agents.RoleGenerator),
		string(agents.RoleCritic),
		string(agents.RoleJudge),
	}
	if _, ok := i.Config.Agent.Bindings[string(agents.RoleRouter)]; ok {
		keys = append(keys, string(agents.RoleRouter))
	}

	rt, err := i.Runtime(registry, keys)
	if err != nil {
		return nil, err
	}
	return runner.NewPipeline(rt)
}
