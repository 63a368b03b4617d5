// Package integration exercises the full pipeline: vault on disk, SQLite
// embedding cache, index build, and every search mode through the engine
// facade. The deterministic local encoder keeps runs reproducible.
package integration

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/vaultlens/vaultlens/internal/dedup"
	"github.com/vaultlens/vaultlens/internal/embedder"
	"github.com/vaultlens/vaultlens/internal/engine"
	"github.com/vaultlens/vaultlens/internal/search"
	"github.com/vaultlens/vaultlens/internal/store"
	"github.com/vaultlens/vaultlens/pkg/types"
)

// countingEncoder tracks model calls so cache behavior is observable
// across engine instances.
type countingEncoder struct {
	*embedder.LocalEncoder
	calls int
}

func (c *countingEncoder) EncodeDense(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	return c.LocalEncoder.EncodeDense(ctx, text)
}

func (c *countingEncoder) EncodeDenseBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls++
	return c.LocalEncoder.EncodeDenseBatch(ctx, texts)
}

// overlapCross scores a pair by the number of query tokens present in the
// document, a deterministic stand-in for a cross-encoder model.
type overlapCross struct{}

func (overlapCross) ScorePairs(_ context.Context, query string, texts []string) ([]float64, error) {
	terms := strings.Fields(strings.ToLower(query))
	scores := make([]float64, len(texts))
	for i, text := range texts {
		lower := strings.ToLower(text)
		for _, term := range terms {
			if strings.Contains(lower, term) {
				scores[i]++
			}
		}
	}
	return scores, nil
}

func (overlapCross) Model() string { return "overlap-test" }

func writeNote(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func seedVault(t *testing.T, root string) {
	t.Helper()
	writeNote(t, root, "tdd.md", `---
title: TDD Basics
tags: [testing, methodology]
---

# TDD Basics

Test driven development starts with a failing test. Write the test first,
watch it fail, make it pass, then refactor with confidence.
`)
	writeNote(t, root, "refactoring.md", `# Refactoring Guide

Refactoring improves the structure of existing code without changing its
observable behavior. Small steps, frequent commits.
`)
	writeNote(t, root, "gardening.md", `# Container Gardening

Tomatoes need six hours of sun, steady water, and patience. Nothing here
is about software at all.
`)
}

// newEngine builds an engine backed by a file-based SQLite cache so the
// durable layer participates in every scenario.
func newEngine(t *testing.T, root, cacheDir string, enc embedder.DenseEncoder, tokens embedder.TokenEncoder, cross embedder.CrossEncoder) *engine.Engine {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(cacheDir, "embeddings.db"), root, zap.NewNop())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	cfg := engine.Config{Root: root, CacheDir: cacheDir, BatchSize: 2}
	return engine.New(cfg, st, enc, tokens, cross, zap.NewNop())
}

func TestEndToEndIndexAndSearch(t *testing.T) {
	root := t.TempDir()
	cacheDir := t.TempDir()
	seedVault(t, root)

	e := newEngine(t, root, cacheDir, embedder.NewLocalEncoder(32, nil), nil, nil)
	ctx := context.Background()

	stats, err := e.BuildIndex(ctx, engine.BuildOptions{})
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	if stats.TotalDocuments != 3 {
		t.Fatalf("indexed %d documents, want 3", stats.TotalDocuments)
	}
	if stats.EncodeFailures != 0 || stats.ParseFailures != 0 {
		t.Errorf("unexpected failures in stats: %+v", stats)
	}

	for _, mode := range []types.SearchMode{types.ModeKeyword, types.ModeSemantic, types.ModeHybrid} {
		results, err := e.Search(ctx, "failing test", search.Options{Mode: mode, K: 3})
		if err != nil {
			t.Fatalf("Search(%s): %v", mode, err)
		}
		if len(results) == 0 {
			t.Fatalf("Search(%s) returned no results", mode)
		}
		if results[0].Document.Path != "tdd.md" {
			t.Errorf("Search(%s) top = %s, want tdd.md", mode, results[0].Document.Path)
		}
		for i, r := range results {
			if r.Rank != i+1 {
				t.Errorf("Search(%s) results[%d].Rank = %d", mode, i, r.Rank)
			}
			if err := r.Validate(); err != nil {
				t.Errorf("Search(%s) results[%d] invalid: %v", mode, i, err)
			}
		}
	}

	// Keyword results explain themselves.
	results, err := e.Search(ctx, "failing test", search.Options{Mode: types.ModeKeyword, K: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(results[0].MatchedTerms) == 0 {
		t.Error("keyword result missing matched terms")
	}
	if results[0].Snippet == "" {
		t.Error("keyword result missing snippet")
	}

	// The build leaves inspectable sidecars next to the cache.
	for _, name := range []string{"index-summary.json", "metadata.json"} {
		if _, err := os.Stat(filepath.Join(cacheDir, name)); err != nil {
			t.Errorf("sidecar %s missing: %v", name, err)
		}
	}
}

func TestCachePersistsAcrossEngineInstances(t *testing.T) {
	root := t.TempDir()
	cacheDir := t.TempDir()
	seedVault(t, root)
	ctx := context.Background()

	first := &countingEncoder{LocalEncoder: embedder.NewLocalEncoder(32, nil)}
	e1 := newEngine(t, root, cacheDir, first, nil, nil)
	if _, err := e1.BuildIndex(ctx, engine.BuildOptions{}); err != nil {
		t.Fatal(err)
	}
	if first.calls == 0 {
		t.Fatal("first build must call the encoder")
	}

	// A fresh process over the same cache directory encodes nothing.
	second := &countingEncoder{LocalEncoder: embedder.NewLocalEncoder(32, nil)}
	e2 := newEngine(t, root, cacheDir, second, nil, nil)
	stats, err := e2.BuildIndex(ctx, engine.BuildOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if stats.CacheHits != 3 || stats.CacheMisses != 0 {
		t.Errorf("second instance stats = %+v, want 3 hits", stats)
	}
	if second.calls != 0 {
		t.Errorf("second instance made %d encoder calls, want 0", second.calls)
	}

	results, err := e2.Search(ctx, "refactoring", search.Options{Mode: types.ModeHybrid, K: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 || results[0].Document.Path != "refactoring.md" {
		t.Errorf("cached index does not search correctly: %+v", results)
	}
}

func TestKoreanQueryReachesEnglishNote(t *testing.T) {
	root := t.TempDir()
	cacheDir := t.TempDir()
	seedVault(t, root)

	e := newEngine(t, root, cacheDir, embedder.NewLocalEncoder(32, nil), nil, nil)
	ctx := context.Background()
	if _, err := e.BuildIndex(ctx, engine.BuildOptions{}); err != nil {
		t.Fatal(err)
	}

	results, err := e.Search(ctx, "테스트 주도 개발", search.Options{
		Mode:   types.ModeHybrid,
		K:      3,
		Expand: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	found := false
	for _, r := range results {
		if r.Document.Path == "tdd.md" {
			found = true
		}
	}
	if !found {
		t.Error("expanded Korean query did not reach the English TDD note")
	}
}

func TestDuplicateDetectionLifecycle(t *testing.T) {
	root := t.TempDir()
	cacheDir := t.TempDir()
	seedVault(t, root)

	e := newEngine(t, root, cacheDir, embedder.NewLocalEncoder(32, nil), nil, nil)
	ctx := context.Background()
	if _, err := e.BuildIndex(ctx, engine.BuildOptions{}); err != nil {
		t.Fatal(err)
	}

	report := e.FindDuplicates(dedup.Options{Threshold: 0.95, MinWords: 5})
	if len(report.Groups) != 0 {
		t.Fatalf("distinct notes produced %d duplicate groups", len(report.Groups))
	}

	// Drop in a near copy and rebuild.
	body := "test driven development starts with a failing test write the test first watch it fail make it pass then refactor"
	writeNote(t, root, "tdd-copy.md", "# TDD Copy\n\n"+body)
	writeNote(t, root, "tdd-orig.md", "# TDD Orig\n\n"+body+" and keep the cycle going every day")
	if _, err := e.BuildIndex(ctx, engine.BuildOptions{}); err != nil {
		t.Fatal(err)
	}

	report = e.FindDuplicates(dedup.Options{Threshold: 0.9, MinWords: 5})
	if len(report.Groups) != 1 {
		t.Fatalf("got %d groups, want 1: %+v", len(report.Groups), report)
	}
	group := report.Groups[0]
	if group.Representative.Path != "tdd-orig.md" {
		t.Errorf("representative = %s, want the longer note", group.Representative.Path)
	}
	if report.PotentialSavingsBytes <= 0 {
		t.Error("report must estimate savings from removable copies")
	}
}

func TestTokenLevelSearch(t *testing.T) {
	root := t.TempDir()
	cacheDir := t.TempDir()
	seedVault(t, root)

	enc := embedder.NewLocalEncoder(32, nil)
	e := newEngine(t, root, cacheDir, enc, enc, nil)
	ctx := context.Background()
	if _, err := e.BuildIndex(ctx, engine.BuildOptions{}); err != nil {
		t.Fatal(err)
	}

	results, err := e.Search(ctx, "refactoring structure", search.Options{Mode: types.ModeToken, K: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("token-level search returned nothing")
	}
	if results[0].Document.Path != "refactoring.md" {
		t.Errorf("top = %s, want refactoring.md", results[0].Document.Path)
	}
	if results[0].Mode != types.ModeToken {
		t.Errorf("mode = %s, want %s", results[0].Mode, types.ModeToken)
	}
}

func TestRerankedSearchKeepsOriginalRank(t *testing.T) {
	root := t.TempDir()
	cacheDir := t.TempDir()
	seedVault(t, root)

	e := newEngine(t, root, cacheDir, embedder.NewLocalEncoder(32, nil), nil, overlapCross{})
	ctx := context.Background()
	if _, err := e.BuildIndex(ctx, engine.BuildOptions{}); err != nil {
		t.Fatal(err)
	}

	results, err := e.Search(ctx, "failing test", search.Options{
		Mode:   types.ModeHybrid,
		K:      3,
		Rerank: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("reranked search returned nothing")
	}
	for i, r := range results {
		if r.Mode != types.ModeReranked {
			t.Errorf("results[%d].Mode = %s, want %s", i, r.Mode, types.ModeReranked)
		}
		if r.OriginalRank < 1 {
			t.Errorf("results[%d] missing its pre-rerank position", i)
		}
	}
	if results[0].Document.Path != "tdd.md" {
		t.Errorf("top after rerank = %s, want tdd.md", results[0].Document.Path)
	}
}

func TestEmptyVaultAndEmptyQuery(t *testing.T) {
	root := t.TempDir()
	cacheDir := t.TempDir()

	e := newEngine(t, root, cacheDir, embedder.NewLocalEncoder(32, nil), nil, nil)
	ctx := context.Background()

	stats, err := e.BuildIndex(ctx, engine.BuildOptions{})
	if err != nil {
		t.Fatalf("an empty vault must index cleanly: %v", err)
	}
	if stats.TotalDocuments != 0 {
		t.Errorf("documents = %d, want 0", stats.TotalDocuments)
	}

	results, err := e.Search(ctx, "anything", search.Options{Mode: types.ModeHybrid})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("empty vault returned %d results", len(results))
	}

	writeNote(t, root, "one.md", "# One\n\na single note")
	if _, err := e.BuildIndex(ctx, engine.BuildOptions{}); err != nil {
		t.Fatal(err)
	}
	results, err = e.Search(ctx, "   ", search.Options{Mode: types.ModeHybrid})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("blank query returned %d results", len(results))
	}

	if _, err := e.Search(ctx, "one", search.Options{Mode: "fuzzy"}); err == nil {
		t.Error("unknown mode must be rejected")
	}
}

func TestVaultLifecycleWithSweep(t *testing.T) {
	root := t.TempDir()
	cacheDir := t.TempDir()
	seedVault(t, root)

	e := newEngine(t, root, cacheDir, embedder.NewLocalEncoder(32, nil), nil, nil)
	ctx := context.Background()
	if _, err := e.BuildIndex(ctx, engine.BuildOptions{}); err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(filepath.Join(root, "gardening.md")); err != nil {
		t.Fatal(err)
	}

	removed, err := e.SweepCache(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Errorf("sweep removed %d rows, want 1", removed)
	}

	cacheStats, err := e.CacheStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if cacheStats.TotalRows != 2 {
		t.Errorf("rows after sweep = %d, want 2", cacheStats.TotalRows)
	}

	// Rebuilding after the deletion drops the note from search too.
	if _, err := e.BuildIndex(ctx, engine.BuildOptions{}); err != nil {
		t.Fatal(err)
	}
	if e.DocumentCount() != 2 {
		t.Errorf("document count = %d, want 2", e.DocumentCount())
	}
	results, err := e.Search(ctx, "tomatoes", search.Options{Mode: types.ModeKeyword, K: 5})
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if r.Document.Path == "gardening.md" {
			t.Error("deleted note still surfaced in search")
		}
	}
}
