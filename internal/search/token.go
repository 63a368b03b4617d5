package search

import (
	"github.com/vaultlens/vaultlens/internal/index"
)

// lateInteractionScore computes the late-interaction relevance between a
// query and a document at the token level: for each query token, the
// maximum cosine against any document token; the maxima are summed and
// averaged over the query tokens. Returns 0 when either side is empty.
func lateInteractionScore(queryTokens, docTokens [][]float32) float64 {
	if len(queryTokens) == 0 || len(docTokens) == 0 {
		return 0
	}

	var sum float64
	for _, q := range queryTokens {
		best := -1.0
		for _, d := range docTokens {
			if sim := index.Cosine(q, d); sim > best {
				best = sim
			}
		}
		sum += best
	}
	return sum / float64(len(queryTokens))
}
