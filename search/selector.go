// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package search

import (
	"cmp"
	"slices"

	"github.com/poiesic/policyqa/core"
)

// Selection thresholds.
const (
	poolSize = 3

	strongOverlap = 0.4
	strongPhrase  = 0.5

	strongOverlapWeight = 0.6
	strongPhraseWeight  = 0.4

	escalateOverlap      = 1.4
	escalatePhrase       = 1.3
	escalateFinal        = 0.9
	escalateCompleteness = 1.2
)

// Select picks the passage that best grounds an answer.
func Select(scored []core.ScoreVector) (core.ScoreVector, error) {
	return SelectWithMonitor(scored, nil)
}

// SelectWithMonitor picks the passage that best grounds an answer, reporting
// intermediate decisions to monitor.
//
// Candidates are ranked by Final score, ties keeping retrieval order. Among
// the top three, a strong match (high token overlap or phrase score) wins by
// 0.6*overlap + 0.4*phrase. Without a strong match, a single left-to-right
// sweep replaces the current best with any later candidate that clearly beats
// it on overlap, on phrase, or on completeness at a comparable final score.
func SelectWithMonitor(scored []core.ScoreVector, monitor RerankMonitor) (core.ScoreVector, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if len(scored) == 0 {
		return core.ScoreVector{}, ErrNoCandidates
	}

	ranked := slices.Clone(scored)
	slices.SortStableFunc(ranked, func(a, b core.ScoreVector) int {
		return cmp.Compare(b.Final, a.Final)
	})

	best := ranked[0]
	if len(ranked) == 1 {
		monitor.Finish(best)
		return best, nil
	}

	pool := ranked[:min(poolSize, len(ranked))]

	var strong []core.ScoreVector
	for _, c := range pool {
		if isStrongMatch(c) {
			strong = append(strong, c)
		}
	}

	if len(strong) > 0 {
		monitor.StrongMatches(strong)
		winner := strong[0]
		for _, c := range strong[1:] {
			if strongBlend(c) > strongBlend(winner) {
				winner = c
			}
		}
		monitor.Finish(winner)
		return winner, nil
	}

	for _, c := range pool[1:] {
		if shouldEscalate(c, best) {
			monitor.Escalated(best, c)
			best = c
		}
	}

	monitor.Finish(best)
	return best, nil
}

func isStrongMatch(c core.ScoreVector) bool {
	return c.TokenOverlap >= strongOverlap || c.PhraseScore >= strongPhrase
}

func strongBlend(c core.ScoreVector) float64 {
	return strongOverlapWeight*c.TokenOverlap + strongPhraseWeight*c.PhraseScore
}

func shouldEscalate(c, best core.ScoreVector) bool {
	return c.TokenOverlap > best.TokenOverlap*escalateOverlap ||
		c.PhraseScore > best.PhraseScore*escalatePhrase ||
		(c.Final > best.Final*escalateFinal && c.Completeness > best.Completeness*escalateCompleteness)
}
