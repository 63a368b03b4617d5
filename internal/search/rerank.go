package search

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/vaultlens/vaultlens/internal/embedder"
	"github.com/vaultlens/vaultlens/pkg/types"
)

const (
	// DefaultRerankBatchSize is the number of (query, text) pairs sent
	// to the cross-encoder per call.
	DefaultRerankBatchSize = 16

	// defaultRerankMaxChars caps the document text sent to the
	// cross-encoder. Longer documents keep their head and tail halves.
	defaultRerankMaxChars = 2048

	truncationSeparator = "\n...\n"
)

// Reranker reorders first-stage candidates by cross-encoder relevance.
type Reranker struct {
	cross     embedder.CrossEncoder
	batchSize int
	maxChars  int
	logger    *zap.Logger
}

// NewReranker creates a reranker around a cross-encoder. batchSize <= 0
// selects the default.
func NewReranker(cross embedder.CrossEncoder, batchSize int, logger *zap.Logger) *Reranker {
	if batchSize <= 0 {
		batchSize = DefaultRerankBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reranker{
		cross:     cross,
		batchSize: batchSize,
		maxChars:  defaultRerankMaxChars,
		logger:    logger,
	}
}

// Rerank scores every candidate against the query and returns the same
// candidate set in cross-encoder order. Candidates keep their first-stage
// rank in OriginalRank so callers can observe rank shifts. When a batch
// fails, its members fall back to their first-stage scores.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []*types.SearchResult) []*types.SearchResult {
	if len(candidates) == 0 {
		return candidates
	}

	scores := make([]float64, len(candidates))
	for start := 0; start < len(candidates); start += r.batchSize {
		end := start + r.batchSize
		if end > len(candidates) {
			end = len(candidates)
		}

		texts := make([]string, 0, end-start)
		for _, c := range candidates[start:end] {
			texts = append(texts, truncateMiddle(c.Document.Content, r.maxChars))
		}

		batchScores, err := r.cross.ScorePairs(ctx, query, texts)
		if err != nil || len(batchScores) != len(texts) {
			r.logger.Warn("cross-encoder batch failed, keeping first-stage scores",
				zap.Int("batch_start", start),
				zap.Int("batch_size", len(texts)),
				zap.Error(err))
			for i := start; i < end; i++ {
				scores[i] = candidates[i].Score
			}
			continue
		}
		copy(scores[start:end], batchScores)
	}

	order := make([]int, len(candidates))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		if scores[order[a]] != scores[order[b]] {
			return scores[order[a]] > scores[order[b]]
		}
		return order[a] < order[b]
	})

	out := make([]*types.SearchResult, len(candidates))
	for newRank, idx := range order {
		c := candidates[idx]
		out[newRank] = &types.SearchResult{
			Document:     c.Document,
			Rank:         newRank + 1,
			OriginalRank: c.Rank,
			Score:        scores[idx],
			Mode:         types.ModeReranked,
			MatchedTerms: c.MatchedTerms,
			Snippet:      c.Snippet,
		}
	}
	return out
}

// truncateMiddle keeps the head and tail halves of text joined by a
// separator when it exceeds maxChars. Truncation is rune-safe.
func truncateMiddle(text string, maxChars int) string {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	half := maxChars / 2
	return string(runes[:half]) + truncationSeparator + string(runes[len(runes)-half:])
}
