package retrieval

import (
	"github.com/poiesic/policyqa/core"
)

// maximalMarginalRelevance greedily picks k results from scored, balancing
// similarity to the query against similarity to results already picked.
// lambda=1 is pure relevance, lambda=0 is pure diversity.
// Ties keep the earlier candidate.
func maximalMarginalRelevance(scored []*core.ScoredChunk, k int, lambda float32) []*core.ScoredChunk {
	if k >= len(scored) {
		k = len(scored)
	}
	if k == 0 {
		return nil
	}

	picked := make([]*core.ScoredChunk, 0, k)
	used := make([]bool, len(scored))
	// maxRedundancy[i] is the highest similarity between candidate i and any picked result.
	maxRedundancy := make([]float32, len(scored))

	for len(picked) < k {
		best := -1
		var bestScore float32
		for i, c := range scored {
			if used[i] {
				continue
			}
			var redundancy float32
			if len(picked) > 0 {
				redundancy = maxRedundancy[i]
			}
			score := lambda*c.Score - (1-lambda)*redundancy
			if best < 0 || score > bestScore {
				best = i
				bestScore = score
			}
		}

		used[best] = true
		chosen := scored[best]
		picked = append(picked, chosen)

		for i, c := range scored {
			if used[i] {
				continue
			}
			sim := core.CosineSimilarity(c.Chunk.Vector, chosen.Chunk.Vector)
			if len(picked) == 1 || sim > maxRedundancy[i] {
				maxRedundancy[i] = sim
			}
		}
	}

	return picked
}
