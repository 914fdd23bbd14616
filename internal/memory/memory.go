// Package memory holds the per-run working memory shared by the agent roles,
// the graph runner and the verifiers.
package memory

import "maps"

const nodeErrorsKey = "nodeErrors"

// WorkingMemory is the mutable scratchpad for one task run. It is owned by a
// single run and is not safe for concurrent mutation.
type WorkingMemory struct {
	Task                  string
	Draft                 string
	Critique              string
	FinalCandidate        string
	VerificationPassed    bool
	VerificationEvidence  string
	AuthoritativeArtifact string
	Slots                 map[string]string
	Meta                  map[string]any
	LongTermContext       string
}

// New creates a WorkingMemory for task.
func New(task string) *WorkingMemory {
	return &WorkingMemory{
		Task:  task,
		Slots: make(map[string]string),
		Meta:  make(map[string]any),
	}
}

// SetVerification records a verification outcome. A passing result promotes
// the final candidate to the authoritative artifact; a failing one clears it.
// This is the only place the authoritative artifact is written.
func (m *WorkingMemory) SetVerification(passed bool, evidence string) {
	m.VerificationPassed = passed
	m.VerificationEvidence = evidence
	if passed {
		m.AuthoritativeArtifact = m.FinalCandidate
	} else {
		m.AuthoritativeArtifact = ""
	}
}

// SetSlot stores the output of a graph node.
func (m *WorkingMemory) SetSlot(nodeID, output string) {
	if m.Slots == nil {
		m.Slots = make(map[string]string)
	}
	m.Slots[nodeID] = output
}

// Slot returns the output of a graph node, or "" when the node has not run.
func (m *WorkingMemory) Slot(nodeID string) string {
	return m.Slots[nodeID]
}

// RecordNodeError annotates Meta["nodeErrors"][nodeID] with err.
func (m *WorkingMemory) RecordNodeError(nodeID string, err error) {
	if m.Meta == nil {
		m.Meta = make(map[string]any)
	}
	errs, _ := m.Meta[nodeErrorsKey].(map[string]string)
	if errs == nil {
		errs = make(map[string]string)
		m.Meta[nodeErrorsKey] = errs
	}
	errs[nodeID] = err.Error()
}

// NodeErrors returns a copy of the recorded node errors.
func (m *WorkingMemory) NodeErrors() map[string]string {
	errs, _ := m.Meta[nodeErrorsKey].(map[string]string)
	return maps.Clone(errs)
}
