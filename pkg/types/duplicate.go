package types

// DuplicateGroup is a connected component of near-duplicate documents.
type DuplicateGroup struct {
	// Members in descending representative-preference order; the first
	// member is the representative.
	Members []*Document

	Representative *Document

	// Similarities is the pairwise cosine submatrix over Members, in
	// member order.
	Similarities [][]float64

	// AvgSimilarity is the arithmetic mean of the off-diagonal entries.
	AvgSimilarity float64
}

// DuplicateReport aggregates the outcome of a duplicate-detection run.
type DuplicateReport struct {
	Groups []DuplicateGroup

	// TotalAnalyzed counts documents that passed the word-count and
	// non-zero-vector filters.
	TotalAnalyzed int

	// DuplicateCount is the number of documents across all groups.
	DuplicateCount int

	// UniqueCount is TotalAnalyzed minus DuplicateCount.
	UniqueCount int

	DuplicateRatio float64

	// PotentialSavingsBytes is the sum of file sizes of all
	// non-representative members.
	PotentialSavingsBytes int64
}
