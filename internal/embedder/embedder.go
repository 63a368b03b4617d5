package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Common errors
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrProviderFailed    = errors.New("embedding provider failed")
	ErrEmptyText         = errors.New("text cannot be empty")
	ErrBatchTooLarge     = errors.New("batch size exceeds limit")
	ErrNoProviderEnabled = errors.New("no encoder configured")
)

// DenseEncoder produces fixed-dimension dense vectors for whole texts.
type DenseEncoder interface {
	// EncodeDense encodes a single text.
	EncodeDense(ctx context.Context, text string) ([]float32, error)

	// EncodeDenseBatch encodes several texts; the result is row-aligned
	// with the input order.
	EncodeDenseBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the vector dimension this encoder produces.
	Dimension() int

	// Model returns the producing-model identifier.
	Model() string

	// Close releases any resources held by the encoder.
	Close() error
}

// TokenEncoder produces per-token vectors for late-interaction scoring.
type TokenEncoder interface {
	// EncodeTokens returns a T x D matrix and the T tokens it covers.
	EncodeTokens(ctx context.Context, text string) ([][]float32, []string, error)
	Dimension() int
	Model() string
}

// CrossEncoder scores (query, document) pairs with scalar relevance.
type CrossEncoder interface {
	// ScorePairs returns one score per text, aligned with the input.
	ScorePairs(ctx context.Context, query string, texts []string) ([]float64, error)
	Model() string
}

// Cache provides in-memory LRU caching of dense vectors by content hash.
// It sits in front of the durable store so repeated queries within a run
// skip both the model and the database.
type Cache struct {
	cache *lru.Cache[string, []float32]
}

// NewCache creates an embedding cache with LRU eviction.
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = 10000
	}
	cache, err := lru.New[string, []float32](maxLen)
	if err != nil {
		// Only reachable with a non-positive size, which we just fixed up.
		cache, _ = lru.New[string, []float32](10000)
	}
	return &Cache{cache: cache}
}

// Get retrieves a copy of a cached vector. A copy is returned so caller
// mutations cannot poison the cache.
func (c *Cache) Get(hash string) ([]float32, bool) {
	v, ok := c.cache.Get(hash)
	if !ok {
		return nil, false
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out, true
}

// Set stores a vector under its content hash.
func (c *Cache) Set(hash string, v []float32) {
	c.cache.Add(hash, v)
}

// Size returns the current cache size.
func (c *Cache) Size() int {
	return c.cache.Len()
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.cache.Purge()
}

// ComputeHash computes the hex SHA-256 hash of text.
func ComputeHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// ValidateText validates a single-text encode request.
func ValidateText(text string) error {
	if text == "" {
		return ErrEmptyText
	}
	return nil
}

// ValidateBatch validates a batch encode request.
func ValidateBatch(texts []string) error {
	if len(texts) == 0 {
		return fmt.Errorf("%w: no texts provided", ErrInvalidInput)
	}
	for i, text := range texts {
		if text == "" {
			return fmt.Errorf("%w: text at index %d is empty", ErrInvalidInput, i)
		}
	}
	return nil
}
