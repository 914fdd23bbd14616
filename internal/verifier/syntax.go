package verifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/JaimeStill/moltblock/internal/memory"
	"github.com/JaimeStill/moltblock/pkg/formatting"
)

// Syntax defaults.
const (
	DefaultTestTimeout   = 30 * time.Second
	DefaultCandidateFile = "solution.py"
	DefaultTestFile      = "test_solution.py"
)

// DefaultTestCommand runs pytest over the workspace.
var DefaultTestCommand = []string{"python", "-m", "pytest", "-v", "--tb=short"}

// SyntaxConfig configures the syntax and test-execution verifier.
type SyntaxConfig struct {
	Command       []string `toml:"command"`
	Timeout       string   `toml:"timeout"`
	CandidateFile string   `toml:"candidate_file"`
	TestFile      string   `toml:"test_file"`
}

// TimeoutDuration returns Timeout as a time.Duration, or DefaultTestTimeout.
func (c *SyntaxConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return DefaultTestTimeout
	}
	return d
}

// Syntax verifies candidates by delimiter balance when no test code is given,
// and otherwise by running the test command against the candidate in a
// temporary workspace.
type Syntax struct {
	command       []string
	timeout       time.Duration
	candidateFile string
	testFile      string
	logger        *slog.Logger
}

// NewSyntax creates a Syntax verifier.
func NewSyntax(cfg SyntaxConfig, logger *slog.Logger) *Syntax {
	s := &Syntax{
		command:       cfg.Command,
		timeout:       cfg.TimeoutDuration(),
		candidateFile: cfg.CandidateFile,
		testFile:      cfg.TestFile,
		logger:        logger.With("system", "verifier", "verifier", "syntax"),
	}
	if len(s.command) == 0 {
		s.command = DefaultTestCommand
	}
	if s.candidateFile == "" {
		s.candidateFile = DefaultCandidateFile
	}
	if s.testFile == "" {
		s.testFile = DefaultTestFile
	}
	return s
}

func (s *Syntax) Name() string {
	return "syntax"
}

func (s *Syntax) Verify(ctx context.Context, mem *memory.WorkingMemory, vc Context) Result {
	code := formatting.ExtractCodeBlock(mem.FinalCandidate)
	if code == "" {
		return s.result(false, NoCandidateEvidence)
	}

	if vc.TestCode == "" {
		if problem := CheckBalance(code); problem != "" {
			return s.result(false, "Syntax check failed: "+problem)
		}
		return s.result(true, "Syntax check passed (no tests provided).")
	}

	passed, evidence := s.runTests(ctx, code, formatting.ExtractCodeBlock(vc.TestCode))
	return s.result(passed, evidence)
}

func (s *Syntax) result(passed bool, evidence string) Result {
	return Result{Passed: passed, Evidence: evidence, Verifier: s.Name()}
}

// runTests materializes candidate and tests in a temporary directory that is
// removed on every exit path, and runs the test command under the timeout.
func (s *Syntax) runTests(ctx context.Context, code, tests string) (bool, string) {
	dir, err := os.MkdirTemp("", "moltblock-verify-*")
	if err != nil {
		return false, fmt.Sprintf("test workspace could not be created: %v", err)
	}
	defer os.RemoveAll(dir)

	if err := os.WriteFile(filepath.Join(dir, s.candidateFile), []byte(code), 0o600); err != nil {
		return false, fmt.Sprintf("test workspace could not be prepared: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, s.testFile), []byte(tests), 0o600); err != nil {
		return false, fmt.Sprintf("test workspace could not be prepared: %v", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	args := append(append([]string(nil), s.command[1:]...), dir)
	cmd := exec.CommandContext(runCtx, s.command[0], args...)
	cmd.Dir = dir
	cmd.WaitDelay = time.Second

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	start := time.Now()
	if err := cmd.Start(); err != nil {
		s.logger.ErrorContext(ctx, "test runner spawn failed", "command", s.command[0], "error", err)
		return false, fmt.Sprintf("test runner could not be started: %v", err)
	}

	err = cmd.Wait()
	s.logger.InfoContext(ctx, "test run finished", "duration", time.Since(start), "error", err)

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return false, fmt.Sprintf("test run timed out after %v\n%s", s.timeout, out.String())
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return false, fmt.Sprintf("test runner failed: %v\n%s", err, out.String())
		}
		return false, out.String()
	}
	return true, out.String()
}
