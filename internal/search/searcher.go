package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/vaultlens/vaultlens/internal/embedder"
	"github.com/vaultlens/vaultlens/internal/index"
	"github.com/vaultlens/vaultlens/internal/store"
	"github.com/vaultlens/vaultlens/pkg/types"
)

const (
	// DefaultTopK is the result count when the caller does not specify k.
	DefaultTopK = 10

	// rerankMultiplier is the first-stage over-fetch factor when
	// reranking is requested.
	rerankMultiplier = 3

	queryCacheSize = 256
)

// Snapshot is an immutable view of one indexing run. The engine swaps
// in a new snapshot atomically after each rebuild; searches in flight
// keep reading the snapshot they started with.
type Snapshot struct {
	Docs   []*types.Document
	Sparse *index.SparseIndex
	Dense  *index.DenseIndex

	// Tokens is row-aligned with Docs; nil entries mark documents
	// without token-embedding records.
	Tokens []*store.TokenRecord
}

// Empty reports whether the snapshot has no indexed documents.
func (s *Snapshot) Empty() bool {
	return s == nil || len(s.Docs) == 0
}

// Options selects the retrieval mode and its knobs for one request.
type Options struct {
	Mode        types.SearchMode
	K           int
	Threshold   float64
	Alpha       float64 // semantic weight in hybrid fusion
	Beta        float64 // keyword weight in hybrid fusion
	RRFConstant int
	Expand      bool
	Rerank      bool
}

func (o *Options) normalize() {
	if o.K <= 0 {
		o.K = DefaultTopK
	}
	if o.Alpha == 0 && o.Beta == 0 {
		o.Alpha = DefaultSemanticWeight
		o.Beta = DefaultKeywordWeight
	}
	if o.RRFConstant <= 0 {
		o.RRFConstant = DefaultRRFConstant
	}
	if o.Mode == "" {
		o.Mode = types.ModeHybrid
	}
}

// Searcher runs retrieval requests against index snapshots. All
// recoverable failures degrade to smaller or empty result sets; only an
// unknown mode is reported as an error.
type Searcher struct {
	dense      embedder.DenseEncoder
	tokens     embedder.TokenEncoder
	reranker   *Reranker
	expander   *Expander
	queryCache *lru.Cache[string, []float32]
	logger     *zap.Logger
}

// NewSearcher creates a searcher. tokens and reranker may be nil; the
// token-level mode and reranking then degrade as documented.
func NewSearcher(dense embedder.DenseEncoder, tokens embedder.TokenEncoder, reranker *Reranker, logger *zap.Logger) *Searcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	cache, _ := lru.New[string, []float32](queryCacheSize)
	return &Searcher{
		dense:      dense,
		tokens:     tokens,
		reranker:   reranker,
		expander:   NewExpander(),
		queryCache: cache,
		logger:     logger,
	}
}

// Search runs one retrieval request. Results are sorted by descending
// score with ties broken by smaller document index; the list is never
// longer than opts.K. Empty queries and empty snapshots yield empty
// results, not errors.
func (s *Searcher) Search(ctx context.Context, snap *Snapshot, query string, opts Options) ([]*types.SearchResult, error) {
	opts.normalize()

	switch opts.Mode {
	case types.ModeSemantic, types.ModeKeyword, types.ModeHybrid, types.ModeToken:
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidMode, opts.Mode)
	}

	if strings.TrimSpace(query) == "" || snap.Empty() {
		return nil, nil
	}

	if opts.Rerank && s.reranker != nil {
		return s.searchReranked(ctx, snap, query, opts), nil
	}

	hits, mode := s.retrieve(ctx, snap, query, opts, opts.K)
	return s.toResults(snap, hits, mode), nil
}

// searchReranked over-fetches first-stage candidates and delegates the
// final ordering to the cross-encoder.
func (s *Searcher) searchReranked(ctx context.Context, snap *Snapshot, query string, opts Options) []*types.SearchResult {
	fetchK := opts.K * rerankMultiplier

	hits, mode := s.retrieve(ctx, snap, query, opts, fetchK)
	if mode == types.ModeSemantic {
		// Semantic-only cascade: candidate scores are the additively
		// weighted native cosines, which the reranker falls back to on
		// batch failure.
		hits = fuseAdditive(hits, nil, opts.Alpha, opts.Beta)
	}

	candidates := s.toResults(snap, hits, mode)
	reranked := s.reranker.Rerank(ctx, query, candidates)
	if len(reranked) > opts.K {
		reranked = reranked[:opts.K]
	}
	return reranked
}

// retrieve runs the first stage for the selected mode, expanding the
// query first when requested. It returns raw index hits plus the mode
// tag the results should carry (hybrid degrades to keyword when the
// query cannot be encoded).
func (s *Searcher) retrieve(ctx context.Context, snap *Snapshot, query string, opts Options, k int) ([]index.Hit, types.SearchMode) {
	if !opts.Expand {
		return s.singleQuery(ctx, snap, query, opts, k)
	}

	variants := s.expander.Expand(query, true, true)
	lists := make([][]index.Hit, 0, len(variants))
	mode := opts.Mode
	for _, variant := range variants {
		hits, variantMode := s.singleQuery(ctx, snap, variant, opts, k)
		if variant == query {
			mode = variantMode
		}
		if len(hits) > 0 {
			lists = append(lists, hits)
		}
	}

	fused := fuseRankLists(lists, opts.RRFConstant)
	if len(fused) > k {
		fused = fused[:k]
	}
	return fused, mode
}

// singleQuery runs exactly one query string through the selected mode.
func (s *Searcher) singleQuery(ctx context.Context, snap *Snapshot, query string, opts Options, k int) ([]index.Hit, types.SearchMode) {
	switch opts.Mode {
	case types.ModeKeyword:
		return snap.Sparse.Search(query, k), types.ModeKeyword

	case types.ModeSemantic:
		vec, err := s.encodeQuery(ctx, query)
		if err != nil {
			s.logger.Warn("query encoding failed, semantic search degrades to empty",
				zap.Error(err))
			return nil, types.ModeSemantic
		}
		return snap.Dense.Search(vec, k, opts.Threshold), types.ModeSemantic

	case types.ModeHybrid:
		keyword := snap.Sparse.Search(query, k)
		vec, err := s.encodeQuery(ctx, query)
		if err != nil {
			s.logger.Warn("query encoding failed, hybrid search degrades to keyword only",
				zap.Error(err))
			return keyword, types.ModeKeyword
		}
		semantic := snap.Dense.Search(vec, k, opts.Threshold)
		fused := fuseRRF(semantic, keyword, opts.Alpha, opts.Beta, opts.RRFConstant)
		fused = filterThreshold(fused, opts.Threshold)
		if len(fused) > k {
			fused = fused[:k]
		}
		return fused, types.ModeHybrid

	case types.ModeToken:
		return s.tokenLevel(ctx, snap, query, opts, k), types.ModeToken
	}
	return nil, opts.Mode
}

// tokenLevel rescores semantic candidates by late interaction. The mode
// needs both a token encoder and populated token records; otherwise it
// returns empty.
func (s *Searcher) tokenLevel(ctx context.Context, snap *Snapshot, query string, opts Options, k int) []index.Hit {
	if s.tokens == nil || len(snap.Tokens) != len(snap.Docs) {
		return nil
	}

	vec, err := s.encodeQuery(ctx, query)
	if err != nil {
		s.logger.Warn("query encoding failed, token-level search degrades to empty",
			zap.Error(err))
		return nil
	}
	queryTokens, _, err := s.tokens.EncodeTokens(ctx, query)
	if err != nil {
		s.logger.Warn("query token encoding failed, token-level search degrades to empty",
			zap.Error(err))
		return nil
	}

	candidates := snap.Dense.Search(vec, k*rerankMultiplier, opts.Threshold)

	rescored := make([]index.Hit, 0, len(candidates))
	for _, hit := range candidates {
		rec := snap.Tokens[hit.Index]
		if rec == nil || len(rec.Matrix) == 0 {
			continue
		}
		rescored = append(rescored, index.Hit{
			Index: hit.Index,
			Score: lateInteractionScore(queryTokens, rec.Matrix),
		})
	}

	sort.Slice(rescored, func(i, j int) bool {
		if rescored[i].Score != rescored[j].Score {
			return rescored[i].Score > rescored[j].Score
		}
		return rescored[i].Index < rescored[j].Index
	})
	if len(rescored) > k {
		rescored = rescored[:k]
	}
	return rescored
}

// encodeQuery embeds the query text, memoizing per query string.
func (s *Searcher) encodeQuery(ctx context.Context, query string) ([]float32, error) {
	if vec, ok := s.queryCache.Get(query); ok {
		return vec, nil
	}
	vec, err := s.dense.EncodeDense(ctx, query)
	if err != nil {
		return nil, err
	}
	s.queryCache.Add(query, vec)
	return vec, nil
}

func (s *Searcher) toResults(snap *Snapshot, hits []index.Hit, mode types.SearchMode) []*types.SearchResult {
	out := make([]*types.SearchResult, 0, len(hits))
	for i, hit := range hits {
		doc := snap.Docs[hit.Index]
		out = append(out, &types.SearchResult{
			Document:     doc,
			Rank:         i + 1,
			Score:        hit.Score,
			Mode:         mode,
			MatchedTerms: hit.Terms,
			Snippet:      buildSnippet(doc.Content, hit.Terms),
		})
	}
	return out
}

func filterThreshold(hits []index.Hit, threshold float64) []index.Hit {
	if threshold <= 0 {
		return hits
	}
	out := hits[:0]
	for _, hit := range hits {
		if hit.Score >= threshold {
			out = append(out, hit)
		}
	}
	return out
}
