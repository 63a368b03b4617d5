package types

import "time"

// Document represents a single Markdown note from the vault.
// Documents are produced by the vault parser and re-validated by content
// hash on every index rebuild.
type Document struct {
	// Path is the stable identifier, relative to the vault root.
	Path  string
	Title string

	// Content is the cleaned plain text (front matter and Markdown
	// syntax stripped).
	Content string

	// Tags are unique, in first-occurrence order.
	Tags []string

	WordCount int

	// ContentHash is the hex SHA-256 digest of the raw file bytes.
	ContentHash string

	ModTime   time.Time
	SizeBytes int64

	// Encoded is false when the dense encoder failed for this document
	// and a zero vector was substituted.
	Encoded bool
}

// IndexStats summarizes the outcome of a build_index run.
type IndexStats struct {
	TotalDocuments int           `json:"total_documents"`
	CacheHits      int           `json:"cache_hits"`
	CacheMisses    int           `json:"cache_misses"`
	ParseFailures  int           `json:"parse_failures"`
	EncodeFailures int           `json:"encode_failures"`
	Duration       time.Duration `json:"duration"`
	Model          string        `json:"model"`
	Dimension      int           `json:"dimension"`
}

// CacheStats reports the durable embedding store contents.
type CacheStats struct {
	TotalRows     int            `json:"total_rows"`
	RowsPerModel  map[string]int `json:"rows_per_model"`
	TokenRows     int            `json:"token_rows"`
	SizeBytes     int64          `json:"size_bytes"`
	LastUpdatedAt time.Time      `json:"last_updated_at"`
}
