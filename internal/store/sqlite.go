package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/vaultlens/vaultlens/pkg/types"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	root   string // vault root, used by Sweep and to stat files on upsert
	logger *zap.Logger
}

// openDatabase opens a SQLite database with appropriate settings.
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Single writer; SQLite benefits from one connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// NewSQLiteStore creates an embedding store at dbPath. root is the vault
// root against which paths are resolved for Sweep.
func NewSQLiteStore(dbPath, root string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if dir := filepath.Dir(dbPath); dir != "" && dir != "." && dbPath != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db, root: root, logger: logger}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Upsert atomically replaces any prior dense row for (path, model).
// When FileSize is unset, the file is stat'd under the vault root.
func (s *SQLiteStore) Upsert(ctx context.Context, rec *DenseRecord) error {
	if rec.Path == "" || rec.Model == "" {
		return fmt.Errorf("upsert: path and model are required")
	}
	if len(rec.Vector) == 0 {
		return fmt.Errorf("upsert: empty vector for %s", rec.Path)
	}

	if rec.FileSize == 0 && s.root != "" {
		if info, err := os.Stat(filepath.Join(s.root, rec.Path)); err == nil {
			rec.FileSize = info.Size()
		}
	}
	rec.Dimension = len(rec.Vector)

	query := `
		INSERT INTO embeddings (path, content_hash, model, dimension, vector, file_size, word_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path, model) DO UPDATE SET
			content_hash = excluded.content_hash,
			dimension = excluded.dimension,
			vector = excluded.vector,
			file_size = excluded.file_size,
			word_count = excluded.word_count,
			created_at = excluded.created_at
	`
	now := time.Now()
	_, err := s.db.ExecContext(ctx, query,
		rec.Path, rec.ContentHash, rec.Model, rec.Dimension,
		serializeVector(rec.Vector), rec.FileSize, rec.WordCount, now)
	if err != nil {
		return fmt.Errorf("failed to upsert embedding for %s: %w", rec.Path, err)
	}
	rec.CreatedAt = now
	return nil
}

// Get returns the dense record iff the stored hash matches expectedHash
// and the vector passes finiteness and dimension checks. Everything else
// is a silent miss.
func (s *SQLiteStore) Get(ctx context.Context, path, model, expectedHash string) (*DenseRecord, bool, error) {
	query := `
		SELECT path, content_hash, model, dimension, vector, file_size, word_count, created_at
		FROM embeddings
		WHERE path = ? AND model = ?
	`
	var rec DenseRecord
	var blob []byte
	err := s.db.QueryRowContext(ctx, query, path, model).Scan(
		&rec.Path, &rec.ContentHash, &rec.Model, &rec.Dimension,
		&blob, &rec.FileSize, &rec.WordCount, &rec.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if rec.ContentHash != expectedHash {
		return nil, false, nil
	}

	rec.Vector = deserializeVector(blob)
	if len(rec.Vector) != rec.Dimension || !isFinite(rec.Vector) {
		s.logger.Warn("invalid cached vector, treating as miss",
			zap.String("path", path),
			zap.Int("declared_dim", rec.Dimension),
			zap.Int("actual_dim", len(rec.Vector)))
		return nil, false, nil
	}

	return &rec, true, nil
}

// UpsertTokens atomically replaces the token matrix row for (path, model).
func (s *SQLiteStore) UpsertTokens(ctx context.Context, rec *TokenRecord) error {
	if rec.Path == "" || rec.Model == "" {
		return fmt.Errorf("upsert tokens: path and model are required")
	}
	if len(rec.Matrix) == 0 {
		return fmt.Errorf("upsert tokens: empty matrix for %s", rec.Path)
	}

	rec.TokenCount = len(rec.Matrix)
	rec.Dimension = len(rec.Matrix[0])

	var tokensJSON []byte
	if len(rec.Tokens) > 0 {
		var err error
		tokensJSON, err = json.Marshal(rec.Tokens)
		if err != nil {
			return fmt.Errorf("failed to encode tokens for %s: %w", rec.Path, err)
		}
	}

	query := `
		INSERT INTO token_embeddings (path, content_hash, model, token_count, dimension, matrix, tokens, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path, model) DO UPDATE SET
			content_hash = excluded.content_hash,
			token_count = excluded.token_count,
			dimension = excluded.dimension,
			matrix = excluded.matrix,
			tokens = excluded.tokens,
			created_at = excluded.created_at
	`
	now := time.Now()
	_, err := s.db.ExecContext(ctx, query,
		rec.Path, rec.ContentHash, rec.Model, rec.TokenCount, rec.Dimension,
		serializeMatrix(rec.Matrix), tokensJSON, now)
	if err != nil {
		return fmt.Errorf("failed to upsert token matrix for %s: %w", rec.Path, err)
	}
	rec.CreatedAt = now
	return nil
}

// GetTokens mirrors Get for the token-embedding companion table.
func (s *SQLiteStore) GetTokens(ctx context.Context, path, model, expectedHash string) (*TokenRecord, bool, error) {
	query := `
		SELECT path, content_hash, model, token_count, dimension, matrix, tokens, created_at
		FROM token_embeddings
		WHERE path = ? AND model = ?
	`
	var rec TokenRecord
	var blob []byte
	var tokensJSON sql.NullString
	err := s.db.QueryRowContext(ctx, query, path, model).Scan(
		&rec.Path, &rec.ContentHash, &rec.Model, &rec.TokenCount, &rec.Dimension,
		&blob, &tokensJSON, &rec.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if rec.ContentHash != expectedHash {
		return nil, false, nil
	}

	rec.Matrix = deserializeMatrix(blob, rec.TokenCount, rec.Dimension)
	if rec.Matrix == nil {
		s.logger.Warn("malformed token matrix, treating as miss", zap.String("path", path))
		return nil, false, nil
	}
	for _, row := range rec.Matrix {
		if !isFinite(row) {
			return nil, false, nil
		}
	}

	if tokensJSON.Valid && tokensJSON.String != "" {
		if err := json.Unmarshal([]byte(tokensJSON.String), &rec.Tokens); err != nil {
			rec.Tokens = nil
		}
	}

	return &rec, true, nil
}

// Remove deletes all rows for path; idempotent.
func (s *SQLiteStore) Remove(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM embeddings WHERE path = ?`, path); err != nil {
		return fmt.Errorf("failed to remove embedding for %s: %w", path, err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM token_embeddings WHERE path = ?`, path); err != nil {
		return fmt.Errorf("failed to remove token matrix for %s: %w", path, err)
	}
	return nil
}

// Sweep removes rows whose file no longer exists under the vault root.
func (s *SQLiteStore) Sweep(ctx context.Context) (int, error) {
	paths, err := s.ListPaths(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, p := range paths {
		if _, err := os.Stat(filepath.Join(s.root, p)); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			// Transient stat failure must not delete a valid row.
			s.logger.Warn("sweep: stat failed, keeping row", zap.String("path", p), zap.Error(err))
			continue
		}
		if err := s.Remove(ctx, p); err != nil {
			return removed, err
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("swept orphan cache rows", zap.Int("removed", removed))
	}
	return removed, nil
}

// ListPaths enumerates every distinct path with a dense row.
func (s *SQLiteStore) ListPaths(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT path FROM embeddings ORDER BY path`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	paths := make([]string, 0)
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// Stats reports row counts per model and total durable size.
func (s *SQLiteStore) Stats(ctx context.Context) (*types.CacheStats, error) {
	stats := &types.CacheStats{RowsPerModel: make(map[string]int)}

	rows, err := s.db.QueryContext(ctx, `SELECT model, COUNT(*) FROM embeddings GROUP BY model`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var model string
		var count int
		if err := rows.Scan(&model, &count); err != nil {
			return nil, err
		}
		stats.RowsPerModel[model] = count
		stats.TotalRows += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM token_embeddings`).Scan(&stats.TokenRows); err != nil {
		return nil, err
	}

	var lastUpdated sql.NullTime
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(created_at) FROM embeddings`).Scan(&lastUpdated); err == nil && lastUpdated.Valid {
		stats.LastUpdatedAt = lastUpdated.Time
	}

	var pageCount, pageSize int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		stats.SizeBytes = pageCount * pageSize
	}

	return stats, nil
}
