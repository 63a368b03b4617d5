package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vaultlens/vaultlens/pkg/types"
)

const (
	metadataFileName = "metadata.json"
	summaryFileName  = "index-summary.json"
)

// Metadata is the sidecar document written next to the database file.
type Metadata struct {
	SchemaVersion string    `json:"schema_version"`
	DenseModel    string    `json:"dense_model"`
	TokenModel    string    `json:"token_model,omitempty"`
	RerankModel   string    `json:"rerank_model,omitempty"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

// WriteMetadata persists the sidecar metadata document into cacheDir.
// The write is atomic (temp file + rename).
func WriteMetadata(cacheDir string, meta Metadata) error {
	meta.SchemaVersion = CurrentSchemaVersion
	if meta.LastUpdatedAt.IsZero() {
		meta.LastUpdatedAt = time.Now()
	}
	return writeJSON(filepath.Join(cacheDir, metadataFileName), meta)
}

// ReadMetadata loads the sidecar metadata document, if present.
func ReadMetadata(cacheDir string) (*Metadata, error) {
	data, err := os.ReadFile(filepath.Join(cacheDir, metadataFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("malformed metadata sidecar: %w", err)
	}
	return &meta, nil
}

// WriteIndexSummary persists the outcome of a successful build_index run.
func WriteIndexSummary(cacheDir string, stats types.IndexStats) error {
	summary := struct {
		types.IndexStats
		WrittenAt time.Time `json:"written_at"`
	}{IndexStats: stats, WrittenAt: time.Now()}
	return writeJSON(filepath.Join(cacheDir, summaryFileName), summary)
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
