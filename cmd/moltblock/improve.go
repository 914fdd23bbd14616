package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/JaimeStill/moltblock/internal/improvement"
	"github.com/JaimeStill/moltblock/internal/prompts"
	"github.com/JaimeStill/moltblock/internal/runner"
)

func newImproveCmd() *cobra.Command {
	var (
		tasksPath string
		graphPath string
		apply     bool
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "improve [task...]",
		Short: "Evaluate tasks and suggest strategy changes",
		Long: `Run each evaluation task, record its outcome, and review the recent outcomes.
When the fail rate is high the domain's suggestions are printed, and with
--apply appended to each role's prompt as a new strategy version.

Tasks come from the arguments and from --tasks, a YAML or JSON list or a
text file with one task per line.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks := append([]string(nil), args...)
			if tasksPath != "" {
				loaded, err := loadTasks(tasksPath)
				if err != nil {
					return err
				}
				tasks = append(tasks, loaded...)
			}
			if len(tasks) == 0 {
				return fmt.Errorf("no evaluation tasks")
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			if err := a.infra.Governor().RequireActive(ctx); err != nil {
				return err
			}

			registry := prompts.NewRegistry()
			exec, err := a.infra.Executor(registry, graphPath)
			if err != nil {
				return err
			}

			s := a.infra.Store("")
			// Outcomes are recorded by the evaluation, so runs do not persist.
			run := func(ctx context.Context, task string) (bool, error) {
				mem, err := exec.Run(ctx, task, runner.Options{Store: s, DryRun: true})
				if err != nil {
					a.infra.Logger.Warn("evaluation task failed", "error", err)
					return false, err
				}
				return mem.VerificationPassed, nil
			}

			res, err := improvement.RunImprovementCycle(ctx, s, improvement.CycleOptions{
				Tasks:    tasks,
				Run:      run,
				Domain:   a.cfg.Entity.Domain,
				Registry: registry,
				Apply:    apply,
			})
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			printCycle(cmd, res)
			return nil
		},
	}

	cmd.Flags().StringVar(&tasksPath, "tasks", "", "File of evaluation tasks")
	cmd.Flags().StringVar(&graphPath, "graph", "", "Path to a YAML or JSON agent graph")
	cmd.Flags().BoolVar(&apply, "apply", false, "Store the suggestions as new strategy versions")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the cycle result as JSON")
	return cmd
}

func loadTasks(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tasks: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		var tasks []string
		if err := yaml.Unmarshal(data, &tasks); err != nil {
			return nil, fmt.Errorf("parse tasks %s: %w", path, err)
		}
		return tasks, nil
	}

	var tasks []string
	for line := range strings.Lines(string(data)) {
		if t := strings.TrimSpace(line); t != "" && !strings.HasPrefix(t, "#") {
			tasks = append(tasks, t)
		}
	}
	return tasks, nil
}

func printCycle(cmd *cobra.Command, res improvement.CycleResult) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "eval: %d/%d verified\n", res.Eval.Passed, res.Eval.Total)

	if len(res.Suggestions) == 0 {
		fmt.Fprintln(w, "no suggestions")
		return
	}
	for _, sg := range res.Suggestions {
		fmt.Fprintf(w, "suggest %s: %s\n", sg.Role, sg.Suggestion)
	}
	for _, st := range res.Applied {
		fmt.Fprintf(w, "applied %s strategy v%d\n", st.Role, st.Version)
	}
}
