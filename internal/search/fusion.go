package search

import (
	"sort"

	"github.com/vaultlens/vaultlens/internal/index"
)

// DefaultRRFConstant dampens the contribution of lower ranks; 60 is the
// value from the original RRF paper.
const DefaultRRFConstant = 60

// Default hybrid weights.
const (
	DefaultSemanticWeight = 0.7
	DefaultKeywordWeight  = 0.3
)

// fuseRRF merges a semantic hit list and a keyword hit list by weighted
// reciprocal-rank fusion:
//
//	fused = alpha * 1/(rank_S + c) + beta * 1/(rank_K + c)
//
// Ranks are one-indexed; a document absent from a list contributes 0 for
// that term. Output is sorted by fused score descending, ties broken by
// smaller document index.
func fuseRRF(semantic, keyword []index.Hit, alpha, beta float64, c int) []index.Hit {
	if c <= 0 {
		c = DefaultRRFConstant
	}

	fused := make(map[int]float64)
	terms := make(map[int][]string)

	for rank, hit := range semantic {
		fused[hit.Index] += alpha / float64(rank+1+c)
	}
	for rank, hit := range keyword {
		fused[hit.Index] += beta / float64(rank+1+c)
		terms[hit.Index] = hit.Terms
	}

	out := make([]index.Hit, 0, len(fused))
	for doc, score := range fused {
		out = append(out, index.Hit{Index: doc, Score: score, Terms: terms[doc]})
	}
	sortFused(out)
	return out
}

// fuseRankLists merges any number of ranked lists with equal weight,
// summing 1/(rank + c) per list. Used to merge result lists across
// expanded query variants. Matched terms are taken from the first list
// that saw the document.
func fuseRankLists(lists [][]index.Hit, c int) []index.Hit {
	if c <= 0 {
		c = DefaultRRFConstant
	}

	fused := make(map[int]float64)
	terms := make(map[int][]string)

	for _, list := range lists {
		for rank, hit := range list {
			fused[hit.Index] += 1 / float64(rank+1+c)
			if _, ok := terms[hit.Index]; !ok && len(hit.Terms) > 0 {
				terms[hit.Index] = hit.Terms
			}
		}
	}

	out := make([]index.Hit, 0, len(fused))
	for doc, score := range fused {
		out = append(out, index.Hit{Index: doc, Score: score, Terms: terms[doc]})
	}
	sortFused(out)
	return out
}

// fuseAdditive weights the native scores directly: alpha * semantic
// cosine + beta * keyword BM25. The scales differ, so this variant only
// serves the semantic-only rerank cascade, where the keyword list is
// empty and the weighting just rescales the cosine without reordering.
func fuseAdditive(semantic, keyword []index.Hit, alpha, beta float64) []index.Hit {
	fused := make(map[int]float64)
	terms := make(map[int][]string)

	for _, hit := range semantic {
		fused[hit.Index] += alpha * hit.Score
	}
	for _, hit := range keyword {
		fused[hit.Index] += beta * hit.Score
		terms[hit.Index] = hit.Terms
	}

	out := make([]index.Hit, 0, len(fused))
	for doc, score := range fused {
		out = append(out, index.Hit{Index: doc, Score: score, Terms: terms[doc]})
	}
	sortFused(out)
	return out
}

// sortFused applies the same ordering contract as the indices: score
// descending, ties by smaller document index.
func sortFused(hits []index.Hit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Index < hits[j].Index
	})
}
