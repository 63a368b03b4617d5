package index

import (
	"math"
)

// DenseIndex is a row-aligned matrix of document embeddings with
// precomputed norms. Rows with zero or non-finite norms never match.
type DenseIndex struct {
	matrix    [][]float32
	norms     []float64
	dimension int
}

// NewDenseIndex creates an empty dense index.
func NewDenseIndex() *DenseIndex {
	return &DenseIndex{}
}

// Build installs the embedding matrix. Row i must be the embedding of
// document i; a nil or zero row marks a document without a usable
// embedding.
func (d *DenseIndex) Build(vectors [][]float32) {
	d.matrix = vectors
	d.norms = make([]float64, len(vectors))
	d.dimension = 0

	for i, vec := range vectors {
		if len(vec) > 0 && d.dimension == 0 {
			d.dimension = len(vec)
		}
		d.norms[i] = vectorNorm(vec)
	}
}

// Len returns the number of rows in the matrix.
func (d *DenseIndex) Len() int {
	return len(d.matrix)
}

// Dimension returns the embedding width, or 0 for an empty index.
func (d *DenseIndex) Dimension() int {
	return d.dimension
}

// Vector returns row i of the matrix, or nil when out of range.
func (d *DenseIndex) Vector(i int) []float32 {
	if i < 0 || i >= len(d.matrix) {
		return nil
	}
	return d.matrix[i]
}

// Search returns the top-k rows by cosine similarity with the query,
// descending, ties broken by smaller row index. Rows scoring below
// threshold are dropped. A zero query vector matches nothing.
func (d *DenseIndex) Search(query []float32, k int, threshold float64) []Hit {
	if len(d.matrix) == 0 || k <= 0 {
		return nil
	}
	queryNorm := vectorNorm(query)
	if queryNorm == 0 {
		return nil
	}

	hits := make([]Hit, 0, len(d.matrix))
	for i, vec := range d.matrix {
		if d.norms[i] == 0 || len(vec) != len(query) {
			continue
		}
		score := dotProduct(query, vec) / (queryNorm * d.norms[i])
		if score >= threshold {
			hits = append(hits, Hit{Index: i, Score: score})
		}
	}

	sortHits(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// Cosine computes the cosine similarity between two vectors, returning 0
// when either is zero, non-finite, or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	na := vectorNorm(a)
	nb := vectorNorm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return dotProduct(a, b) / (na * nb)
}

func dotProduct(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// vectorNorm returns the L2 norm, or 0 for vectors containing NaN or Inf
// so they can never rank.
func vectorNorm(vec []float32) float64 {
	var sum float64
	for _, v := range vec {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		sum += f * f
	}
	return math.Sqrt(sum)
}
