// Package dedup finds groups of near-duplicate notes by thresholding
// pairwise cosine similarity over the dense index and collecting the
// connected components with union-find.
package dedup

import (
	"sort"

	"go.uber.org/zap"

	"github.com/vaultlens/vaultlens/internal/index"
	"github.com/vaultlens/vaultlens/pkg/types"
)

// Defaults for duplicate detection.
const (
	DefaultThreshold = 0.85
	DefaultMinWords  = 10
)

// Options bound which documents are analyzed and how similar two notes
// must be to count as duplicates.
type Options struct {
	// Threshold is the minimum cosine similarity for an edge between
	// two documents.
	Threshold float64

	// MinWords excludes stub notes shorter than this many words.
	MinWords int
}

func (o *Options) normalize() {
	if o.Threshold == 0 {
		o.Threshold = DefaultThreshold
	}
	if o.MinWords == 0 {
		o.MinWords = DefaultMinWords
	}
}

// Detector groups near-duplicate documents.
type Detector struct {
	logger *zap.Logger
}

// NewDetector creates a detector.
func NewDetector(logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{logger: logger}
}

// Find analyzes the documents whose word count passes the filter and
// whose dense vector is present and non-zero. vectors must be
// row-aligned with docs. The report's groups each hold at least two
// members and no document appears in more than one group.
func (d *Detector) Find(docs []*types.Document, vectors [][]float32, opts Options) *types.DuplicateReport {
	opts.normalize()
	report := &types.DuplicateReport{}

	if len(docs) == 0 || len(docs) != len(vectors) {
		return report
	}

	eligible := make([]int, 0, len(docs))
	for i, doc := range docs {
		if doc.WordCount >= opts.MinWords && !isZero(vectors[i]) {
			eligible = append(eligible, i)
		}
	}
	report.TotalAnalyzed = len(eligible)
	if len(eligible) < 2 {
		report.UniqueCount = report.TotalAnalyzed
		return report
	}

	// Pairwise similarity over the eligible set, symmetric with a unit
	// diagonal.
	n := len(eligible)
	sims := make([][]float64, n)
	for i := range sims {
		sims[i] = make([]float64, n)
		sims[i][i] = 1
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sim := index.Cosine(vectors[eligible[i]], vectors[eligible[j]])
			sims[i][j] = sim
			sims[j][i] = sim
		}
	}

	uf := newUnionFind(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if sims[i][j] >= opts.Threshold {
				uf.union(i, j)
			}
		}
	}

	components := make(map[int][]int)
	for i := 0; i < n; i++ {
		root := uf.find(i)
		components[root] = append(components[root], i)
	}

	for _, members := range components {
		if len(members) < 2 {
			continue
		}
		report.Groups = append(report.Groups, *d.buildGroup(docs, eligible, members, sims))
	}

	// Deterministic report order regardless of map iteration.
	sort.Slice(report.Groups, func(i, j int) bool {
		return report.Groups[i].Representative.Path < report.Groups[j].Representative.Path
	})

	for _, group := range report.Groups {
		report.DuplicateCount += len(group.Members)
		for _, member := range group.Members {
			if member != group.Representative {
				report.PotentialSavingsBytes += member.SizeBytes
			}
		}
	}
	report.UniqueCount = report.TotalAnalyzed - report.DuplicateCount
	if report.TotalAnalyzed > 0 {
		report.DuplicateRatio = float64(report.DuplicateCount) / float64(report.TotalAnalyzed)
	}
	return report
}

// buildGroup elects the representative, orders the members, and slices
// out the similarity submatrix.
func (d *Detector) buildGroup(docs []*types.Document, eligible, members []int, sims [][]float64) *types.DuplicateGroup {
	// Representative first: larger word count, then more recent
	// modification, then lexicographically smaller path.
	sort.Slice(members, func(a, b int) bool {
		da, db := docs[eligible[members[a]]], docs[eligible[members[b]]]
		if da.WordCount != db.WordCount {
			return da.WordCount > db.WordCount
		}
		if !da.ModTime.Equal(db.ModTime) {
			return da.ModTime.After(db.ModTime)
		}
		return da.Path < db.Path
	})

	group := &types.DuplicateGroup{
		Members:      make([]*types.Document, len(members)),
		Similarities: make([][]float64, len(members)),
	}
	for i, m := range members {
		group.Members[i] = docs[eligible[m]]
		group.Similarities[i] = make([]float64, len(members))
		for j, other := range members {
			group.Similarities[i][j] = sims[m][other]
		}
	}
	group.Representative = group.Members[0]

	var sum float64
	var count int
	for i := range group.Similarities {
		for j := range group.Similarities[i] {
			if i != j {
				sum += group.Similarities[i][j]
				count++
			}
		}
	}
	if count > 0 {
		group.AvgSimilarity = sum / float64(count)
	}
	return group
}

func isZero(vec []float32) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}

// unionFind is a disjoint-set forest with path compression and union by
// size.
type unionFind struct {
	parent []int
	size   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), size: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
		uf.size[i] = 1
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if uf.size[ra] < uf.size[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	uf.size[ra] += uf.size[rb]
}
