// Package runner executes agent pipelines: a declarative graph or the fixed
// generator, critic and judge sequence. Every run ends with verification and,
// when a store is given, persistence of the outcome.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/moltblock/internal/agents"
	"github.com/JaimeStill/moltblock/internal/graph"
	"github.com/JaimeStill/moltblock/internal/memory"
	"github.com/JaimeStill/moltblock/internal/verifier"
	"github.com/JaimeStill/moltblock/pkg/metrics"
)

// FinalNodeErrorKey is the node error key recording an unresolved final node
// when a graph run continues on error.
const FinalNodeErrorKey = "final_node"

// Runner executes a graph. It is safe for concurrent runs.
type Runner struct {
	rt     Runtime
	graph  *graph.Graph
	hash   string
	logger *slog.Logger
}

// New creates a Runner for g. Every binding key used by a non-verifier node
// must have a completer.
func New(rt Runtime, g *graph.Graph) (*Runner, error) {
	rt.finalize()
	if err := rt.requireCompleters(g.BindingKeys()); err != nil {
		return nil, err
	}
	return &Runner{
		rt:     rt,
		graph:  g,
		hash:   g.Hash(),
		logger: rt.Logger.With("system", "runner", "graph", g.Hash()),
	}, nil
}

// Graph returns the graph the runner executes.
func (r *Runner) Graph() *graph.Graph {
	return r.graph
}

type nodeResult struct {
	text string
	err  error
}

// Run executes the graph layer by layer, verifies the final node's output and
// persists the result when opts.Store is set.
func (r *Runner) Run(ctx context.Context, task string, opts Options) (*memory.WorkingMemory, error) {
	start := time.Now()

	finalID, err := r.graph.FinalNodeID()
	if err != nil && !opts.ContinueOnError {
		r.rt.Metrics.RunCompleted(metrics.OutcomeError, time.Since(start))
		return nil, err
	}

	mem := memory.New(task)
	if err != nil {
		mem.RecordNodeError(FinalNodeErrorKey, err)
		r.logger.WarnContext(ctx, "final node unresolved, continuing", "error", err)
	}
	if opts.Store != nil {
		ltc, err := LongTermContext(ctx, opts.Store)
		if err != nil {
			r.rt.Metrics.RunCompleted(metrics.OutcomeError, time.Since(start))
			return nil, err
		}
		mem.LongTermContext = ltc
	}

	r.logger.InfoContext(ctx, "run started", "nodes", len(r.graph.Nodes()), "final_node", finalID)

	env := r.rt.env(r.rt.Domain, opts.Store)
	for _, layer := range r.graph.Layers() {
		if err := r.runLayer(ctx, layer, mem, &env, opts); err != nil {
			r.rt.Metrics.RunCompleted(metrics.OutcomeError, time.Since(start))
			r.logger.ErrorContext(ctx, "run failed", "error", err)
			return mem, err
		}
	}

	if finalID != "" {
		mem.FinalCandidate = mem.Slot(finalID)
	}

	return finish(ctx, &r.rt, r.logger, mem, r.hash, env.Domain, opts, start)
}

func (r *Runner) runLayer(ctx context.Context, layer []graph.Node, mem *memory.WorkingMemory, env *agents.Env, opts Options) error {
	var nodes []graph.Node
	for _, n := range layer {
		if n.Role != agents.RoleVerifier {
			nodes = append(nodes, n)
		}
	}
	if len(nodes) == 0 {
		return nil
	}

	inputs := make([]agents.Input, len(nodes))
	for i, n := range nodes {
		preds := r.graph.Predecessors(n.ID)
		outs := make([]agents.Output, len(preds))
		for j, p := range preds {
			outs[j] = agents.Output{NodeID: p.ID, Role: p.Role, Text: mem.Slot(p.ID)}
		}
		inputs[i] = agents.GraphInput(n.Role, mem.Task, mem.LongTermContext, outs)
	}

	results := make([]nodeResult, len(nodes))
	layerEnv := *env

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.rt.Parallel, 1))

	for i, n := range nodes {
		g.Go(func() error {
			text, err := r.runNode(gctx, n, layerEnv, inputs[i])
			results[i] = nodeResult{text: text, err: err}
			if err != nil && !opts.ContinueOnError {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for i, n := range nodes {
		res := results[i]
		if res.err != nil {
			mem.RecordNodeError(n.ID, res.err)
			mem.SetSlot(n.ID, "")
			r.logger.WarnContext(ctx, "node failed, continuing", "node", n.ID, "error", res.err)
			continue
		}
		mem.SetSlot(n.ID, res.text)

		switch n.Role {
		case agents.RoleGenerator:
			mem.Draft = res.text
		case agents.RoleCritic:
			mem.Critique = res.text
		}

		if n.Role == agents.RoleRouter && r.rt.Registry.Has(res.text) {
			env.Domain = res.text
			mem.Meta[MetaRoutedDomain] = res.text
		}
	}
	return nil
}

func (r *Runner) runNode(ctx context.Context, n graph.Node, env agents.Env, in agents.Input) (string, error) {
	c := r.rt.Completers[n.BindingKey()]
	start := time.Now()

	var (
		out string
		err error
	)
	if n.Role == agents.RoleRouter {
		out, err = agents.Route(ctx, c, env, in.Task)
	} else {
		out, err = agents.Run(ctx, n.Role, c, env, in)
	}

	elapsed := time.Since(start)
	r.rt.Metrics.NodeCompleted(string(n.Role), elapsed, err)
	if err != nil {
		return "", fmt.Errorf("node %s: %w", n.ID, err)
	}

	r.logger.DebugContext(ctx, "node complete", "node", n.ID, "role", n.Role, "duration", elapsed)
	return out, nil
}

// finish verifies the final candidate and persists the result.
func finish(ctx context.Context, rt *Runtime, logger *slog.Logger, mem *memory.WorkingMemory, graphHash, domain string, opts Options, start time.Time) (*memory.WorkingMemory, error) {
	res := verifier.Apply(ctx, rt.Verifier, mem, verifier.Context{
		Task:     mem.Task,
		TestCode: opts.TestCode,
		Domain:   domain,
	})
	mem.Meta[MetaVerification] = res

	outcome := metrics.OutcomeFailed
	if res.Passed {
		outcome = metrics.OutcomePassed
	}

	var err error
	if opts.Store != nil && !opts.DryRun {
		err = persist(ctx, rt, opts.Store, mem, graphHash, opts, time.Since(start))
	}

	rt.Metrics.RunCompleted(outcome, time.Since(start))
	logger.InfoContext(ctx, "run complete",
		"passed", res.Passed,
		"verifier", res.Verifier,
		"duration", time.Since(start),
	)
	if err != nil {
		logger.ErrorContext(ctx, "persist failed", "error", err)
	}
	return mem, err
}
