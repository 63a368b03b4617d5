package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vaultlens/vaultlens/internal/dedup"
	"github.com/vaultlens/vaultlens/internal/embedder"
	"github.com/vaultlens/vaultlens/internal/index"
	"github.com/vaultlens/vaultlens/internal/search"
	"github.com/vaultlens/vaultlens/internal/store"
	"github.com/vaultlens/vaultlens/internal/vault"
	"github.com/vaultlens/vaultlens/pkg/types"
)

const (
	// DefaultBatchSize is the number of documents encoded per model call.
	DefaultBatchSize = 32

	// maxConcurrentBatches bounds the encoding worker pool.
	maxConcurrentBatches = 4
)

// Config carries the engine's static wiring.
type Config struct {
	Root            string
	CacheDir        string
	BatchSize       int
	RerankBatchSize int
	Walk            vault.WalkOptions
}

// BuildOptions selects the scope of one indexing run.
type BuildOptions struct {
	// Force discards cache hits and re-encodes every document.
	Force bool

	// SampleSize limits the run to the first N documents (by path).
	// Zero means no limit.
	SampleSize int

	IncludeFolders []string
	ExcludeFolders []string

	// Progress, when set, is called after each document is resolved.
	Progress func(done, total int)
}

// Engine is the retrieval facade. Public operations degrade to empty
// results on recoverable failures; they only return errors for I/O that
// prevents a build and for programmer mistakes such as an unknown mode.
type Engine struct {
	cfg      Config
	store    store.Store
	dense    embedder.DenseEncoder
	tokens   embedder.TokenEncoder
	walker   *vault.Walker
	searcher *search.Searcher
	detector *dedup.Detector
	logger   *zap.Logger

	building buildLock

	mu   sync.RWMutex
	snap *search.Snapshot
}

// ErrBuildInProgress is returned when an indexing run is already
// underway; the store assumes a single writer.
var ErrBuildInProgress = errors.New("an indexing run is already in progress")

// New assembles an engine. tokens and cross may be nil; the token-level
// mode and reranking then degrade as documented.
func New(cfg Config, st store.Store, dense embedder.DenseEncoder, tokens embedder.TokenEncoder, cross embedder.CrossEncoder, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	var reranker *search.Reranker
	if cross != nil {
		reranker = search.NewReranker(cross, cfg.RerankBatchSize, logger)
	}

	return &Engine{
		cfg:      cfg,
		store:    st,
		dense:    dense,
		tokens:   tokens,
		walker:   vault.NewWalker(logger),
		searcher: search.NewSearcher(dense, tokens, reranker, logger),
		detector: dedup.NewDetector(logger),
		logger:   logger,
	}
}

// BuildIndex walks the vault, resolves every document's embedding from
// the cache or the encoder, and swaps in a fresh index snapshot.
func (e *Engine) BuildIndex(ctx context.Context, opts BuildOptions) (*types.IndexStats, error) {
	if !e.building.TryAcquire() {
		return nil, ErrBuildInProgress
	}
	defer e.building.Release()

	start := time.Now()

	walkOpts := e.cfg.Walk
	if len(opts.IncludeFolders) > 0 {
		walkOpts.IncludeFolders = opts.IncludeFolders
	}
	if len(opts.ExcludeFolders) > 0 {
		walkOpts.ExcludeFolders = append(walkOpts.ExcludeFolders, opts.ExcludeFolders...)
	}

	docs, skipped, err := e.walker.Walk(e.cfg.Root, walkOpts)
	if err != nil {
		return nil, fmt.Errorf("walking vault %s: %w", e.cfg.Root, err)
	}
	if opts.SampleSize > 0 && len(docs) > opts.SampleSize {
		docs = docs[:opts.SampleSize]
	}

	stats := &types.IndexStats{
		TotalDocuments: len(docs),
		ParseFailures:  skipped,
		Model:          e.dense.Model(),
		Dimension:      e.dense.Dimension(),
	}

	vectors := make([][]float32, len(docs))
	tokenRecs := make([]*store.TokenRecord, len(docs))
	done := 0
	report := func() {
		done++
		if opts.Progress != nil {
			opts.Progress(done, len(docs))
		}
	}

	var pending []int
	for i, doc := range docs {
		if !opts.Force {
			rec, ok, getErr := e.store.Get(ctx, doc.Path, e.dense.Model(), doc.ContentHash)
			if getErr != nil {
				e.logger.Warn("cache read failed",
					zap.String("path", doc.Path), zap.Error(getErr))
			} else if ok {
				vectors[i] = rec.Vector
				stats.CacheHits++
				e.loadTokenRecord(ctx, doc, tokenRecs, i)
				report()
				continue
			}
		}
		stats.CacheMisses++
		pending = append(pending, i)
	}

	if err := e.encodePending(ctx, docs, vectors, pending, stats); err != nil {
		return nil, err
	}

	for _, idx := range pending {
		e.persistDocument(ctx, docs[idx], vectors[idx], tokenRecs, idx)
		report()
	}

	sparse := index.NewSparseIndex()
	sparse.Build(docs)
	dense := index.NewDenseIndex()
	dense.Build(vectors)
	snap := &search.Snapshot{Docs: docs, Sparse: sparse, Dense: dense, Tokens: tokenRecs}

	e.mu.Lock()
	e.snap = snap
	e.mu.Unlock()

	stats.Duration = time.Since(start)
	e.writeSidecars(stats)

	e.logger.Info("index built",
		zap.Int("documents", stats.TotalDocuments),
		zap.Int("cache_hits", stats.CacheHits),
		zap.Int("cache_misses", stats.CacheMisses),
		zap.Int("encode_failures", stats.EncodeFailures),
		zap.Duration("duration", stats.Duration))
	return stats, nil
}

// encodePending embeds the cache-miss documents in batches. Batches run
// concurrently but write into fixed rows, so the matrix stays in
// document order. A failed document gets the zero vector and loses its
// Encoded flag; the build continues.
func (e *Engine) encodePending(ctx context.Context, docs []*types.Document, vectors [][]float32, pending []int, stats *types.IndexStats) error {
	if len(pending) == 0 {
		return nil
	}

	var statsMu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentBatches)

	for batchStart := 0; batchStart < len(pending); batchStart += e.cfg.BatchSize {
		batchEnd := batchStart + e.cfg.BatchSize
		if batchEnd > len(pending) {
			batchEnd = len(pending)
		}
		chunk := pending[batchStart:batchEnd]

		g.Go(func() error {
			texts := make([]string, len(chunk))
			for j, idx := range chunk {
				texts[j] = docs[idx].Content
			}

			embs, err := e.dense.EncodeDenseBatch(gctx, texts)
			if err == nil && len(embs) == len(chunk) {
				for j, idx := range chunk {
					vectors[idx] = embs[j]
				}
				return nil
			}
			e.logger.Warn("batch encoding failed, retrying documents individually",
				zap.Int("batch_size", len(chunk)), zap.Error(err))

			for _, idx := range chunk {
				vec, docErr := e.dense.EncodeDense(gctx, docs[idx].Content)
				if docErr != nil {
					e.logger.Warn("encoding failed, substituting zero vector",
						zap.String("path", docs[idx].Path), zap.Error(docErr))
					vec = make([]float32, e.dense.Dimension())
					docs[idx].Encoded = false
					statsMu.Lock()
					stats.EncodeFailures++
					statsMu.Unlock()
				}
				vectors[idx] = vec
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// persistDocument upserts a freshly encoded document. Failed encodes
// are kept out of the durable cache so the next run retries them.
func (e *Engine) persistDocument(ctx context.Context, doc *types.Document, vector []float32, tokenRecs []*store.TokenRecord, idx int) {
	if !doc.Encoded {
		return
	}

	rec := &store.DenseRecord{
		Path:        doc.Path,
		ContentHash: doc.ContentHash,
		Model:       e.dense.Model(),
		Dimension:   len(vector),
		Vector:      vector,
		FileSize:    doc.SizeBytes,
		WordCount:   doc.WordCount,
	}
	if err := e.store.Upsert(ctx, rec); err != nil {
		e.logger.Warn("cache write failed, continuing with in-memory vector",
			zap.String("path", doc.Path), zap.Error(err))
	}

	if e.tokens == nil {
		return
	}
	matrix, toks, err := e.tokens.EncodeTokens(ctx, doc.Content)
	if err != nil {
		e.logger.Warn("token encoding failed",
			zap.String("path", doc.Path), zap.Error(err))
		return
	}
	trec := &store.TokenRecord{
		Path:        doc.Path,
		ContentHash: doc.ContentHash,
		Model:       e.tokens.Model(),
		TokenCount:  len(matrix),
		Dimension:   e.tokens.Dimension(),
		Matrix:      matrix,
		Tokens:      toks,
	}
	tokenRecs[idx] = trec
	if err := e.store.UpsertTokens(ctx, trec); err != nil {
		e.logger.Warn("token cache write failed",
			zap.String("path", doc.Path), zap.Error(err))
	}
}

func (e *Engine) loadTokenRecord(ctx context.Context, doc *types.Document, tokenRecs []*store.TokenRecord, idx int) {
	if e.tokens == nil {
		return
	}
	trec, ok, err := e.store.GetTokens(ctx, doc.Path, e.tokens.Model(), doc.ContentHash)
	if err != nil {
		e.logger.Warn("token cache read failed",
			zap.String("path", doc.Path), zap.Error(err))
		return
	}
	if ok {
		tokenRecs[idx] = trec
	}
}

func (e *Engine) writeSidecars(stats *types.IndexStats) {
	if e.cfg.CacheDir == "" {
		return
	}
	if err := store.WriteIndexSummary(e.cfg.CacheDir, *stats); err != nil {
		e.logger.Warn("writing index summary failed", zap.Error(err))
	}
	meta := store.Metadata{DenseModel: e.dense.Model()}
	if e.tokens != nil {
		meta.TokenModel = e.tokens.Model()
	}
	if err := store.WriteMetadata(e.cfg.CacheDir, meta); err != nil {
		e.logger.Warn("writing metadata failed", zap.Error(err))
	}
}

// Search runs one retrieval request against the current snapshot. An
// engine that has not built an index returns empty results.
func (e *Engine) Search(ctx context.Context, query string, opts search.Options) ([]*types.SearchResult, error) {
	e.mu.RLock()
	snap := e.snap
	e.mu.RUnlock()
	return e.searcher.Search(ctx, snap, query, opts)
}

// FindDuplicates analyzes the current snapshot for near-duplicate
// groups. An engine without an index returns an empty report.
func (e *Engine) FindDuplicates(opts dedup.Options) *types.DuplicateReport {
	e.mu.RLock()
	snap := e.snap
	e.mu.RUnlock()

	if snap.Empty() {
		return &types.DuplicateReport{}
	}
	vectors := make([][]float32, len(snap.Docs))
	for i := range vectors {
		vectors[i] = snap.Dense.Vector(i)
	}
	return e.detector.Find(snap.Docs, vectors, opts)
}

// SweepCache removes cache rows whose files no longer exist.
func (e *Engine) SweepCache(ctx context.Context) (int, error) {
	return e.store.Sweep(ctx)
}

// CacheStats reports durable cache counters.
func (e *Engine) CacheStats(ctx context.Context) (*types.CacheStats, error) {
	return e.store.Stats(ctx)
}

// Indexed reports whether a snapshot is available.
func (e *Engine) Indexed() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.snap.Empty()
}

// DocumentCount returns the number of documents in the current snapshot.
func (e *Engine) DocumentCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.snap.Empty() {
		return 0
	}
	return len(e.snap.Docs)
}

// Close releases the store and the encoder.
func (e *Engine) Close() error {
	encErr := e.dense.Close()
	if err := e.store.Close(); err != nil {
		return err
	}
	return encErr
}
