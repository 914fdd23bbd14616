package runner

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/JaimeStill/moltblock/internal/agents"
	"github.com/JaimeStill/moltblock/internal/gateway"
	"github.com/JaimeStill/moltblock/internal/memory"
	"github.com/JaimeStill/moltblock/internal/prompts"
	"github.com/JaimeStill/moltblock/internal/store"
	"github.com/JaimeStill/moltblock/internal/verifier"
	"github.com/JaimeStill/moltblock/pkg/metrics"
)

// Archive receives the full text of admitted artifacts.
type Archive interface {
	Store(ctx context.Context, entityID, ref, text string) error
}

// Runtime bundles the collaborators of a run. It is constructed by higher
// level composition code from the infrastructure and configuration.
type Runtime struct {
	// Completers maps binding keys to model gateways.
	Completers map[string]agents.Completer
	Registry   *prompts.Registry
	// Verifier gates the final candidate. Nil means the syntax verifier.
	Verifier verifier.Verifier
	// Archive is optional.
	Archive   Archive
	Metrics   metrics.Recorder
	Logger    *slog.Logger
	Domain    string
	MaxTokens int
	// Parallel bounds concurrent nodes within one layer. Values below 2 run
	// nodes one at a time.
	Parallel int
}

func (rt *Runtime) finalize() {
	if rt.Logger == nil {
		rt.Logger = slog.New(slog.DiscardHandler)
	}
	if rt.Registry == nil {
		rt.Registry = prompts.NewRegistry()
	}
	if rt.Verifier == nil {
		rt.Verifier = verifier.NewSyntax(verifier.SyntaxConfig{}, rt.Logger)
	}
	if rt.Metrics == nil {
		rt.Metrics = metrics.Noop{}
	}
	if rt.MaxTokens <= 0 {
		rt.MaxTokens = gateway.DefaultMaxTokens
	}
}

func (rt *Runtime) requireCompleters(keys []string) error {
	var missing []string
	for _, k := range keys {
		if rt.Completers[k] == nil {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("%w: %v", ErrMissingBinding, missing)
	}
	return nil
}

func (rt *Runtime) env(domain string, s *store.Store) agents.Env {
	env := agents.Env{
		Registry:  rt.Registry,
		Domain:    domain,
		MaxTokens: rt.MaxTokens,
	}
	if s != nil {
		env.Strategies = s
	}
	return env
}

// Dial creates one gateway per binding key. Keys without a binding fail with
// ErrMissingBinding.
func Dial(bindings map[string]gateway.Binding, keys []string, logger *slog.Logger, opts ...gateway.Option) (map[string]agents.Completer, error) {
	out := make(map[string]agents.Completer, len(keys))
	for _, k := range keys {
		if _, ok := out[k]; ok {
			continue
		}
		b, ok := bindings[k]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingBinding, k)
		}
		g, err := gateway.New(b, logger.With("binding", k), opts...)
		if err != nil {
			return nil, fmt.Errorf("binding %s: %w", k, err)
		}
		out[k] = g
	}
	return out, nil
}

// Executor runs one task through a pipeline.
type Executor interface {
	Run(ctx context.Context, task string, opts Options) (*memory.WorkingMemory, error)
}

// Options controls one run.
type Options struct {
	TestCode string
	// Store enables long-term context and persistence of the result.
	Store                *store.Store
	EntityVersion        string
	WriteCheckpointAfter bool
	// ContinueOnError records node failures in working memory and continues
	// instead of aborting the run.
	ContinueOnError bool
	// DryRun reads strategies and long-term context from Store but records
	// nothing.
	DryRun bool
}
