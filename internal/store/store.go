package store

import (
	"context"
	"errors"
	"time"

	"github.com/vaultlens/vaultlens/pkg/types"
)

var (
	// ErrNotFound is returned when a requested row doesn't exist.
	ErrNotFound = errors.New("not found")
)

// DenseRecord is the durable row for one document's dense embedding.
type DenseRecord struct {
	Path        string
	ContentHash string // hex SHA-256 of the raw file bytes
	Model       string
	Dimension   int
	Vector      []float32
	FileSize    int64
	WordCount   int
	CreatedAt   time.Time
}

// TokenRecord is the durable row for one document's token-embedding matrix.
type TokenRecord struct {
	Path        string
	ContentHash string
	Model       string
	TokenCount  int
	Dimension   int
	Matrix      [][]float32
	Tokens      []string
	CreatedAt   time.Time
}

// Store is the durable mapping from path to embedding records, per model.
type Store interface {
	// Upsert atomically replaces any prior dense row for (path, model).
	Upsert(ctx context.Context, rec *DenseRecord) error

	// Get returns the dense record iff the stored hash equals expectedHash
	// and the vector is finite and of the declared dimension. Any mismatch
	// is a cache miss (ok == false), not an error.
	Get(ctx context.Context, path, model, expectedHash string) (rec *DenseRecord, ok bool, err error)

	// UpsertTokens atomically replaces the token matrix for (path, model).
	UpsertTokens(ctx context.Context, rec *TokenRecord) error

	// GetTokens mirrors Get for the token-embedding companion table.
	GetTokens(ctx context.Context, path, model, expectedHash string) (rec *TokenRecord, ok bool, err error)

	// Remove deletes all rows for path; idempotent.
	Remove(ctx context.Context, path string) error

	// Sweep removes rows whose file no longer exists under the vault root
	// and returns the number of paths removed.
	Sweep(ctx context.Context) (int, error)

	// Stats reports row counts per model and total durable size.
	Stats(ctx context.Context) (*types.CacheStats, error)

	// ListPaths enumerates every distinct path with a dense row.
	ListPaths(ctx context.Context) ([]string, error)

	Close() error
}
