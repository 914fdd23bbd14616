package runner

import "github.com/JaimeStill/moltblock/internal/memory"

// Result is the externally reported outcome of a run.
type Result struct {
	VerificationPassed    bool              `json:"verification_passed"`
	VerificationEvidence  string            `json:"verification_evidence"`
	AuthoritativeArtifact string            `json:"authoritative_artifact"`
	Draft                 string            `json:"draft"`
	Critique              string            `json:"critique"`
	FinalCandidate        string            `json:"final_candidate"`
	ArtifactRef           string            `json:"artifact_ref,omitempty"`
	CheckpointID          int64             `json:"checkpoint_id,omitempty"`
	Domain                string            `json:"domain,omitempty"`
	NodeErrors            map[string]string `json:"node_errors,omitempty"`
}

// NewResult reads a Result from working memory.
func NewResult(mem *memory.WorkingMemory) Result {
	res := Result{
		VerificationPassed:    mem.VerificationPassed,
		VerificationEvidence:  mem.VerificationEvidence,
		AuthoritativeArtifact: mem.AuthoritativeArtifact,
		Draft:                 mem.Draft,
		Critique:              mem.Critique,
		FinalCandidate:        mem.FinalCandidate,
		NodeErrors:            mem.NodeErrors(),
	}
	res.ArtifactRef, _ = mem.Meta[MetaArtifactRef].(string)
	res.CheckpointID, _ = mem.Meta[MetaCheckpointID].(int64)
	res.Domain, _ = mem.Meta[MetaRoutedDomain].(string)
	return res
}
