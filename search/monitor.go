package search

import (
	"github.com/poiesic/policyqa/core"
)

// RerankMonitor provides hooks to observe re-ranking.
// Implement this interface to trace how a passage was chosen.
type RerankMonitor interface {
	Start(question string)
	AfterScoring(scored []core.ScoreVector)
	StrongMatches(matches []core.ScoreVector)
	Escalated(from, to core.ScoreVector)
	Finish(selected core.ScoreVector)
}

// noopMonitor is a no-op implementation of RerankMonitor
type noopMonitor struct{}

var _ RerankMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                        {}
func (n *noopMonitor) AfterScoring(_ []core.ScoreVector)     {}
func (n *noopMonitor) StrongMatches(_ []core.ScoreVector)    {}
func (n *noopMonitor) Escalated(_, _ core.ScoreVector)       {}
func (n *noopMonitor) Finish(_ core.ScoreVector)             {}

// NoopMonitor returns a monitor that ignores every event.
func NoopMonitor() RerankMonitor {
	return &noopMonitor{}
}
