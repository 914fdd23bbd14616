package runner

import (
	"context"
	"log/slog"
	"time"

	"github.com/JaimeStill/moltblock/internal/agents"
	"github.com/JaimeStill/moltblock/internal/memory"
	"github.com/JaimeStill/moltblock/pkg/metrics"
)

// FixedPipelineHash is the graph hash recorded on checkpoints written by the
// fixed pipeline.
const FixedPipelineHash = "fixed-code-entity"

// Pipeline runs generator, critic and judge in sequence, reading and writing
// the draft, critique and final candidate fields of working memory. When a
// router completer is present the task is classified first and a registered
// domain answer selects the prompts for the remaining roles.
type Pipeline struct {
	rt     Runtime
	logger *slog.Logger
}

// NewPipeline creates a Pipeline. Completers are looked up by role name.
func NewPipeline(rt Runtime) (*Pipeline, error) {
	rt.finalize()
	if err := rt.requireCompleters([]string{
		string(agents.RoleGenerator),
		string(agents.RoleCritic),
		string(agents.RoleJudge),
	}); err != nil {
		return nil, err
	}
	return &Pipeline{
		rt:     rt,
		logger: rt.Logger.With("system", "runner", "graph", FixedPipelineHash),
	}, nil
}

// Run executes the pipeline. A role failure aborts the run regardless of
// ContinueOnError since every later role depends on it.
func (p *Pipeline) Run(ctx context.Context, task string, opts Options) (*memory.WorkingMemory, error) {
	start := time.Now()
	fail := func(mem *memory.WorkingMemory, err error) (*memory.WorkingMemory, error) {
		p.rt.Metrics.RunCompleted(metrics.OutcomeError, time.Since(start))
		p.logger.ErrorContext(ctx, "run failed", "error", err)
		return mem, err
	}

	mem := memory.New(task)
	if opts.Store != nil {
		ltc, err := LongTermContext(ctx, opts.Store)
		if err != nil {
			return fail(nil, err)
		}
		mem.LongTermContext = ltc
	}

	env := p.rt.env(p.rt.Domain, opts.Store)

	if router := p.rt.Completers[string(agents.RoleRouter)]; router != nil {
		domain, err := p.step(ctx, agents.RoleRouter, func() (string, error) {
			return agents.Route(ctx, router, env, task)
		})
		if err != nil {
			return fail(mem, err)
		}
		if p.rt.Registry.Has(domain) {
			env.Domain = domain
			mem.Meta[MetaRoutedDomain] = domain
		}
	}

	steps := []struct {
		role agents.Role
		fn   func(context.Context, agents.Completer, agents.Env, *memory.WorkingMemory) error
	}{
		{agents.RoleGenerator, agents.Generate},
		{agents.RoleCritic, agents.Critique},
		{agents.RoleJudge, agents.Judge},
	}
	for _, s := range steps {
		c := p.rt.Completers[string(s.role)]
		if _, err := p.step(ctx, s.role, func() (string, error) {
			return "", s.fn(ctx, c, env, mem)
		}); err != nil {
			return fail(mem, err)
		}
	}

	return finish(ctx, &p.rt, p.logger, mem, FixedPipelineHash, env.Domain, opts, start)
}

func (p *Pipeline) step(ctx context.Context, role agents.Role, fn func() (string, error)) (string, error) {
	start := time.Now()
	out, err := fn()
	elapsed := time.Since(start)
	p.rt.Metrics.NodeCompleted(string(role), elapsed, err)
	if err == nil {
		p.logger.DebugContext(ctx, "role complete", "role", role, "duration", elapsed)
	}
	return out, err
}

var (
	_ Executor = (*Pipeline)(nil)
	_ Executor = (*Runner)(nil)
)
