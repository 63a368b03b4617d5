package types

// SearchMode tags a result with the retrieval path that produced it.
type SearchMode string

const (
	ModeSemantic SearchMode = "semantic"
	ModeKeyword  SearchMode = "keyword"
	ModeHybrid   SearchMode = "hybrid"
	ModeToken    SearchMode = "token-level"
	ModeReranked SearchMode = "reranked"
)

// SearchResult represents a single ranked search result.
type SearchResult struct {
	Document *Document

	// Rank is the 1-based position in the final result set.
	Rank int

	// OriginalRank is the position before reranking; equal to Rank when
	// no reranker ran.
	OriginalRank int

	Score float64
	Mode  SearchMode

	// MatchedTerms holds the query tokens that occurred in the document
	// (keyword and hybrid modes).
	MatchedTerms []string

	// Snippet is a short content excerpt around the best match.
	Snippet string
}

// Validate checks structural sanity of a search result.
func (sr *SearchResult) Validate() error {
	if sr.Document == nil {
		return ErrMissingDocument
	}
	if sr.Rank < 1 {
		return ErrInvalidRank
	}
	switch sr.Mode {
	case ModeSemantic, ModeKeyword, ModeHybrid, ModeToken, ModeReranked:
	default:
		return ErrInvalidMode
	}
	return nil
}
