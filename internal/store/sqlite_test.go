package store

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func setupTestStore(t *testing.T) (*SQLiteStore, string) {
	t.Helper()

	root := t.TempDir()
	store, err := NewSQLiteStore(":memory:", root, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, root
}

func writeVaultFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestUpsertGetRoundTrip(t *testing.T) {
	store, root := setupTestStore(t)
	ctx := context.Background()

	writeVaultFile(t, root, "notes/a.md", "hello vault")

	vector := []float32{0.25, -0.5, 0.125}
	rec := &DenseRecord{
		Path:        "notes/a.md",
		ContentHash: "abc123",
		Model:       "test-model",
		Vector:      vector,
		WordCount:   2,
	}
	if err := store.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if rec.FileSize == 0 {
		t.Error("expected file size to be read from the vault root")
	}

	got, ok, err := store.Get(ctx, "notes/a.md", "test-model", "abc123")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected cache hit")
	}
	for i := range vector {
		if got.Vector[i] != vector[i] {
			t.Errorf("vector[%d] = %v, want %v (round trip must be bit-exact)", i, got.Vector[i], vector[i])
		}
	}
	if got.WordCount != 2 {
		t.Errorf("word count = %d, want 2", got.WordCount)
	}
}

func TestGetHashMismatchIsSilentMiss(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	rec := &DenseRecord{Path: "a.md", ContentHash: "hash1", Model: "m", Vector: []float32{1, 2}}
	if err := store.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	_, ok, err := store.Get(ctx, "a.md", "m", "different-hash")
	if err != nil {
		t.Fatalf("Get returned error on hash mismatch: %v", err)
	}
	if ok {
		t.Error("hash mismatch must be a miss")
	}
}

func TestGetNonFiniteIsSilentMiss(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	rec := &DenseRecord{
		Path:        "a.md",
		ContentHash: "h",
		Model:       "m",
		Vector:      []float32{1, float32(math.NaN())},
	}
	if err := store.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	_, ok, err := store.Get(ctx, "a.md", "m", "h")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("non-finite vector must be a miss")
	}
}

func TestUpsertReplacesAtomically(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	first := &DenseRecord{Path: "a.md", ContentHash: "h1", Model: "m", Vector: []float32{1, 1}}
	if err := store.Upsert(ctx, first); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	second := &DenseRecord{Path: "a.md", ContentHash: "h2", Model: "m", Vector: []float32{2, 2}}
	if err := store.Upsert(ctx, second); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if _, ok, _ := store.Get(ctx, "a.md", "m", "h1"); ok {
		t.Error("stale row should be gone")
	}
	got, ok, _ := store.Get(ctx, "a.md", "m", "h2")
	if !ok {
		t.Fatal("expected hit for replaced row")
	}
	if got.Vector[0] != 2 {
		t.Error("row not replaced")
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalRows != 1 {
		t.Errorf("total rows = %d, want 1 (upsert must replace, not append)", stats.TotalRows)
	}
}

func TestModelsAreIndependent(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	_ = store.Upsert(ctx, &DenseRecord{Path: "a.md", ContentHash: "h", Model: "m1", Vector: []float32{1}})
	_ = store.Upsert(ctx, &DenseRecord{Path: "a.md", ContentHash: "h", Model: "m2", Vector: []float32{2}})

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.RowsPerModel["m1"] != 1 || stats.RowsPerModel["m2"] != 1 {
		t.Errorf("rows per model = %v", stats.RowsPerModel)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	_ = store.Upsert(ctx, &DenseRecord{Path: "a.md", ContentHash: "h", Model: "m", Vector: []float32{1}})
	if err := store.Remove(ctx, "a.md"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := store.Remove(ctx, "a.md"); err != nil {
		t.Fatalf("second Remove: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "a.md", "m", "h"); ok {
		t.Error("row should be removed")
	}
}

func TestSweepRemovesOrphans(t *testing.T) {
	store, root := setupTestStore(t)
	ctx := context.Background()

	writeVaultFile(t, root, "kept.md", "still here")
	_ = store.Upsert(ctx, &DenseRecord{Path: "kept.md", ContentHash: "h", Model: "m", Vector: []float32{1}})
	_ = store.Upsert(ctx, &DenseRecord{Path: "gone.md", ContentHash: "h", Model: "m", Vector: []float32{1}})

	removed, err := store.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	// Sweep again: nothing left to remove.
	removed, err = store.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if removed != 0 {
		t.Errorf("second sweep removed = %d, want 0", removed)
	}
}

func TestTokenMatrixRoundTrip(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	matrix := [][]float32{{1, 0}, {0, 1}, {0.5, 0.5}}
	rec := &TokenRecord{
		Path:        "a.md",
		ContentHash: "h",
		Model:       "tok-model",
		Matrix:      matrix,
		Tokens:      []string{"hello", "vault", "world"},
	}
	if err := store.UpsertTokens(ctx, rec); err != nil {
		t.Fatalf("UpsertTokens: %v", err)
	}

	got, ok, err := store.GetTokens(ctx, "a.md", "tok-model", "h")
	if err != nil {
		t.Fatalf("GetTokens: %v", err)
	}
	if !ok {
		t.Fatal("expected hit")
	}
	if got.TokenCount != 3 || got.Dimension != 2 {
		t.Errorf("shape = %dx%d, want 3x2", got.TokenCount, got.Dimension)
	}
	if len(got.Tokens) != 3 || got.Tokens[1] != "vault" {
		t.Errorf("tokens = %v", got.Tokens)
	}

	if _, ok, _ := store.GetTokens(ctx, "a.md", "tok-model", "other"); ok {
		t.Error("hash mismatch must be a miss for token rows too")
	}
}

func TestMetadataSidecar(t *testing.T) {
	dir := t.TempDir()

	if _, err := ReadMetadata(dir); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	meta := Metadata{DenseModel: "bge-m3", RerankModel: "rerank-1"}
	if err := WriteMetadata(dir, meta); err != nil {
		t.Fatalf("WriteMetadata: %v", err)
	}

	got, err := ReadMetadata(dir)
	if err != nil {
		t.Fatalf("ReadMetadata: %v", err)
	}
	if got.DenseModel != "bge-m3" || got.SchemaVersion != CurrentSchemaVersion {
		t.Errorf("metadata = %+v", got)
	}
}
