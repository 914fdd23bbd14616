package main

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/moltblock/internal/prompts"
	"github.com/JaimeStill/moltblock/internal/runner"
)

type runOptions struct {
	json            bool
	testPath        string
	graphPath       string
	checkpoint      bool
	continueOnError bool
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run <task>",
		Short: "Run a task through the entity and verify the result",
		Long: `Run a task through the generator, critic and judge (or the configured graph),
verify the final candidate, and admit it to verified memory when it passes.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTask(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.json, "json", false, "Emit the result as JSON")
	cmd.Flags().StringVar(&opts.testPath, "test", "", "Path to test code run against the candidate")
	cmd.Flags().StringVar(&opts.graphPath, "graph", "", "Path to a YAML or JSON agent graph")
	cmd.Flags().BoolVar(&opts.checkpoint, "checkpoint", false, "Write a checkpoint after an admitted artifact")
	cmd.Flags().BoolVar(&opts.continueOnError, "continue-on-error", false, "Keep running graph nodes after a node fails")

	return cmd
}

func runTask(cmd *cobra.Command, task string, opts runOptions) error {
	if strings.TrimSpace(task) == "" {
		return fmt.Errorf("task required")
	}

	var testCode string
	if opts.testPath != "" {
		data, err := os.ReadFile(opts.testPath)
		if err != nil {
			return fmt.Errorf("read test file: %w", err)
		}
		testCode = string(data)
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

	exec, err := a.infra.Executor(prompts.NewRegistry(), opts.graphPath)
	if err != nil {
		return err
	}

	mem, err := exec.Run(ctx, task, runner.Options{
		TestCode:             testCode,
		Store:                a.infra.Store(""),
		EntityVersion:        a.cfg.Entity.Version,
		WriteCheckpointAfter: opts.checkpoint,
		ContinueOnError:      opts.continueOnError,
	})
	if err != nil {
		return err
	}

	res := runner.NewResult(mem)
	if opts.json {
		return writeJSON(cmd.OutOrStdout(), res)
	}
	printResult(cmd.OutOrStdout(), res)
	return nil
}

func printResult(w io.Writer, res runner.Result) {
	section := func(title, body string) {
		fmt.Fprintf(w, "=== %s ===\n%s\n\n", title, body)
	}

	if res.Domain != "" {
		fmt.Fprintf(w, "Domain: %s\n\n", res.Domain)
	}
	section("Draft", res.Draft)
	section("Critique", res.Critique)
	section("Final candidate", res.FinalCandidate)

	status := "FAILED"
	if res.VerificationPassed {
		status = "PASSED"
	}
	section("Verification", status+"\n"+res.VerificationEvidence)

	for _, node := range slices.Sorted(maps.Keys(res.NodeErrors)) {
		fmt.Fprintf(w, "node %s failed: %s\n", node, res.NodeErrors[node])
	}

	if res.VerificationPassed {
		section("Authoritative artifact", res.AuthoritativeArtifact)
		if res.ArtifactRef != "" {
			fmt.Fprintf(w, "Artifact ref: %s\n", res.ArtifactRef)
		}
		if res.CheckpointID != 0 {
			fmt.Fprintf(w, "Checkpoint: %d\n", res.CheckpointID)
		}
	}
}
