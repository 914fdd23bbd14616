package verifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/JaimeStill/moltblock/internal/memory"
)

// Mode selects how a composite treats failing children.
type Mode string

// Composite modes.
const (
	FailFast   Mode = "fail_fast"
	CollectAll Mode = "collect_all"
)

// Composite runs an ordered list of verifiers. It passes only when every
// consulted child passes.
type Composite struct {
	verifiers []Verifier
	mode      Mode
}

// NewComposite creates a Composite. An empty mode means FailFast.
func NewComposite(mode Mode, verifiers ...Verifier) (*Composite, error) {
	if len(verifiers) == 0 {
		return nil, ErrNoVerifiers
	}
	switch mode {
	case "":
		mode = FailFast
	case FailFast, CollectAll:
	default:
		return nil, fmt.Errorf("unknown composite mode %q", mode)
	}
	return &Composite{verifiers: verifiers, mode: mode}, nil
}

func (c *Composite) Name() string {
	return "composite"
}

func (c *Composite) Verify(ctx context.Context, mem *memory.WorkingMemory, vc Context) Result {
	res := Result{Passed: true, Verifier: c.Name()}
	lines := make([]string, 0, len(c.verifiers))

	for _, v := range c.verifiers {
		child := v.Verify(ctx, mem, vc)
		if child.Verifier == "" {
			child.Verifier = v.Name()
		}
		res.Details = append(res.Details, child)

		status := "PASS"
		if !child.Passed {
			status = "FAIL"
			res.Passed = false
		}
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", child.Verifier, status, child.Evidence))

		if !child.Passed && c.mode == FailFast {
			break
		}
	}

	res.Evidence = strings.Join(lines, "\n")
	return res
}
