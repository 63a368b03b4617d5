package index

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/vaultlens/vaultlens/pkg/types"
)

// BM25 parameters
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// Hit is one scored index entry: the position of the document in the
// engine's document list plus its score.
type Hit struct {
	Index int
	Score float64

	// Terms are the query tokens that matched this document (sparse
	// search only).
	Terms []string
}

// Tokenize lower-cases text and splits on anything that is not a letter
// or digit. Hangul and Latin tokens come out uniformly; the same function
// serves documents at index time and queries at search time.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

type posting struct {
	doc int
	tf  int
}

// SparseIndex is an in-memory BM25 keyword index.
type SparseIndex struct {
	postings  map[string][]posting
	docLens   []int
	avgDocLen float64
	numDocs   int
}

// NewSparseIndex creates an empty sparse index.
func NewSparseIndex() *SparseIndex {
	return &SparseIndex{postings: make(map[string][]posting)}
}

// Build tokenizes every document and prepares the scoring structures.
// Title and tags are indexed along with the content so short queries can
// land on titles.
func (s *SparseIndex) Build(docs []*types.Document) {
	s.postings = make(map[string][]posting)
	s.docLens = make([]int, len(docs))
	s.numDocs = len(docs)

	totalLen := 0
	for i, doc := range docs {
		text := doc.Title + "\n" + strings.Join(doc.Tags, " ") + "\n" + doc.Content
		tokens := Tokenize(text)
		s.docLens[i] = len(tokens)
		totalLen += len(tokens)

		counts := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			counts[tok]++
		}
		for tok, tf := range counts {
			s.postings[tok] = append(s.postings[tok], posting{doc: i, tf: tf})
		}
	}

	if s.numDocs > 0 {
		s.avgDocLen = float64(totalLen) / float64(s.numDocs)
	}
}

// Len returns the number of indexed documents.
func (s *SparseIndex) Len() int {
	return s.numDocs
}

// Search returns the top-k documents with BM25 score > 0, descending,
// ties broken by smaller document index. Empty query or empty index
// yields an empty result.
func (s *SparseIndex) Search(query string, k int) []Hit {
	if s.numDocs == 0 || k <= 0 {
		return nil
	}
	terms := Tokenize(query)
	if len(terms) == 0 {
		return nil
	}

	scores := make(map[int]float64)
	matched := make(map[int][]string)
	seen := make(map[string]bool, len(terms))

	for _, term := range terms {
		if seen[term] {
			continue
		}
		seen[term] = true

		plist, ok := s.postings[term]
		if !ok {
			continue
		}

		df := float64(len(plist))
		idf := math.Log(1 + (float64(s.numDocs)-df+0.5)/(df+0.5))

		for _, p := range plist {
			tf := float64(p.tf)
			dl := float64(s.docLens[p.doc])
			denom := tf + bm25K1*(1-bm25B+bm25B*dl/s.avgDocLen)
			scores[p.doc] += idf * tf * (bm25K1 + 1) / denom
			matched[p.doc] = append(matched[p.doc], term)
		}
	}

	hits := make([]Hit, 0, len(scores))
	for doc, score := range scores {
		if score > 0 {
			hits = append(hits, Hit{Index: doc, Score: score, Terms: matched[doc]})
		}
	}

	sortHits(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// sortHits orders by score descending, ties by smaller document index.
func sortHits(hits []Hit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Index < hits[j].Index
	})
}
