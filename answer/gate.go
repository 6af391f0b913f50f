package answer

import "github.com/poiesic/policyqa/core"

// RefusalMessage is returned without generation when retrieval finds nothing.
const RefusalMessage = "I couldn't find any relevant information in our policy documents. Could you rephrase your question?"

// GateDecision is the outcome of checking retrieval results.
type GateDecision int

const (
	// HasCandidates means scoring and generation proceed.
	HasCandidates GateDecision = iota
	// NoCandidates means the question is refused without generation.
	NoCandidates
)

func (d GateDecision) String() string {
	switch d {
	case HasCandidates:
		return "HAS_CANDIDATES"
	case NoCandidates:
		return "NO_CANDIDATES"
	default:
		return "UNKNOWN"
	}
}

// Gate decides whether retrieval produced anything to answer from.
func Gate(candidates []core.Candidate) GateDecision {
	if len(candidates) == 0 {
		return NoCandidates
	}
	return HasCandidates
}
