package embedder

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds encoder configuration resolved from the model.* keys.
type Config struct {
	Provider  string
	Model     string
	Dimension int
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	CacheSize int
}

// New creates a dense encoder with explicit configuration.
func New(cfg Config) (DenseEncoder, error) {
	var cache *Cache
	if cfg.CacheSize != 0 {
		cache = NewCache(cfg.CacheSize)
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderOllama, "":
		return NewOllamaEncoder(cfg.BaseURL, cfg.Model, cfg.Dimension, cfg.Timeout, cache), nil
	case ProviderOpenAI:
		return NewOpenAIEncoder(cfg.APIKey, cfg.Model, cfg.Dimension, cfg.Timeout, cache)
	case ProviderLocal:
		return NewLocalEncoder(cfg.Dimension, cache), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrInvalidInput, cfg.Provider)
	}
}

// NewFromEnv selects a dense encoder from the environment.
// Priority: VAULTLENS_EMBEDDING_PROVIDER, then OPENAI_API_KEY, then a
// local Ollama server, falling back to the deterministic local encoder.
func NewFromEnv() (DenseEncoder, error) {
	provider := os.Getenv("VAULTLENS_EMBEDDING_PROVIDER")
	cache := NewCache(10000)

	if provider != "" {
		return New(Config{Provider: provider, CacheSize: 10000})
	}

	if key := os.Getenv(EnvOpenAIAPIKey); key != "" {
		return NewOpenAIEncoder(key, "", 0, 0, cache)
	}

	return NewLocalEncoder(0, cache), nil
}
