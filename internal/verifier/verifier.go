// Package verifier decides whether a final candidate becomes authoritative.
// Verifiers return results as values; a failed verification is never an error.
package verifier

import (
	"context"

	"github.com/JaimeStill/moltblock/internal/memory"
)

// Context carries run inputs a verifier may consult.
type Context struct {
	Task     string
	TestCode string
	Domain   string
}

// Result is the outcome of one verifier. Details is populated by composite
// verifiers with one entry per consulted child.
type Result struct {
	Passed   bool     `json:"passed"`
	Evidence string   `json:"evidence"`
	Verifier string   `json:"verifier"`
	Details  []Result `json:"details,omitempty"`
}

// Verifier checks a working memory's final candidate.
type Verifier interface {
	Name() string
	Verify(ctx context.Context, mem *memory.WorkingMemory, vc Context) Result
}

// NoCandidateEvidence is reported when there is nothing to verify.
const NoCandidateEvidence = "No final candidate to verify."

// Apply runs v against mem and records the result on it. An empty final
// candidate fails without consulting v.
func Apply(ctx context.Context, v Verifier, mem *memory.WorkingMemory, vc Context) Result {
	var res Result
	if mem.FinalCandidate == "" {
		res = Result{Passed: false, Evidence: NoCandidateEvidence, Verifier: v.Name()}
	} else {
		res = v.Verify(ctx, mem, vc)
	}
	mem.SetVerification(res.Passed, res.Evidence)
	return res
}
