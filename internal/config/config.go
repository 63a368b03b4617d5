// Package config loads vaultlens configuration from vaultlens.yaml and
// VAULTLENS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/vaultlens/vaultlens/internal/dedup"
	"github.com/vaultlens/vaultlens/internal/embedder"
	"github.com/vaultlens/vaultlens/internal/search"
	"github.com/vaultlens/vaultlens/internal/vault"
)

// Config is the full configuration tree.
type Config struct {
	Vault      VaultConfig      `mapstructure:"vault"`
	Model      ModelConfig      `mapstructure:"model"`
	Search     SearchConfig     `mapstructure:"search"`
	Duplicates DuplicatesConfig `mapstructure:"duplicates"`
	Cache      CacheConfig      `mapstructure:"cache"`
	LogLevel   string           `mapstructure:"log_level"`
}

// VaultConfig locates the vault and scopes the walk.
type VaultConfig struct {
	Path           string   `mapstructure:"path"`
	ExcludedDirs   []string `mapstructure:"excluded_dirs"`
	ExcludedFiles  []string `mapstructure:"excluded_files"`
	FileExtensions []string `mapstructure:"file_extensions"`
	IncludeFolders []string `mapstructure:"include_folders"`
	ExcludeFolders []string `mapstructure:"exclude_folders"`
}

// ModelConfig selects the encoders.
type ModelConfig struct {
	Dense  DenseModelConfig  `mapstructure:"dense"`
	Rerank RerankModelConfig `mapstructure:"rerank"`
}

// DenseModelConfig configures the dense encoder.
type DenseModelConfig struct {
	Provider       string `mapstructure:"provider"`
	Name           string `mapstructure:"name"`
	Dimension      int    `mapstructure:"dimension"`
	BatchSize      int    `mapstructure:"batch_size"`
	MaxLength      int    `mapstructure:"max_length"`
	Device         string `mapstructure:"device"`
	FP16           bool   `mapstructure:"fp16"`
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// RerankModelConfig configures the cross-encoder.
type RerankModelConfig struct {
	Name      string `mapstructure:"name"`
	BatchSize int    `mapstructure:"batch_size"`
}

// SearchConfig carries retrieval defaults.
type SearchConfig struct {
	DefaultTopK         int          `mapstructure:"default_top_k"`
	SimilarityThreshold float64      `mapstructure:"similarity_threshold"`
	Hybrid              HybridConfig `mapstructure:"hybrid"`
	RRFConstant         int          `mapstructure:"rrf_constant"`
}

// HybridConfig weights the two fusion terms.
type HybridConfig struct {
	SemanticWeight float64 `mapstructure:"semantic_weight"`
	KeywordWeight  float64 `mapstructure:"keyword_weight"`
}

// DuplicatesConfig carries duplicate-detection defaults.
type DuplicatesConfig struct {
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	MinWordCount        int     `mapstructure:"min_word_count"`
}

// CacheConfig locates the durable cache.
type CacheConfig struct {
	Dir string `mapstructure:"dir"`
}

// Load reads configuration from the given file, or searches the working
// directory and ~/.config/vaultlens for vaultlens.yaml when file is
// empty. A missing config file is not an error; defaults and the
// environment still apply.
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("VAULTLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("vaultlens")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/vaultlens")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("vault.path", ".")
	v.SetDefault("vault.excluded_dirs", []string{".obsidian", ".trash", ".git", "templates"})
	v.SetDefault("vault.file_extensions", []string{".md"})

	v.SetDefault("model.dense.provider", embedder.ProviderOllama)
	v.SetDefault("model.dense.name", embedder.DefaultOllamaModel)
	v.SetDefault("model.dense.batch_size", 32)
	v.SetDefault("model.dense.max_length", 8192)
	v.SetDefault("model.dense.timeout_seconds", 60)
	v.SetDefault("model.rerank.name", embedder.DefaultRerankModel)
	v.SetDefault("model.rerank.batch_size", search.DefaultRerankBatchSize)

	v.SetDefault("search.default_top_k", search.DefaultTopK)
	v.SetDefault("search.similarity_threshold", 0.0)
	v.SetDefault("search.hybrid.semantic_weight", search.DefaultSemanticWeight)
	v.SetDefault("search.hybrid.keyword_weight", search.DefaultKeywordWeight)
	v.SetDefault("search.rrf_constant", search.DefaultRRFConstant)

	v.SetDefault("duplicates.similarity_threshold", dedup.DefaultThreshold)
	v.SetDefault("duplicates.min_word_count", dedup.DefaultMinWords)

	v.SetDefault("log_level", "info")
}

// CacheDir resolves the cache directory, defaulting to .vaultlens
// inside the vault.
func (c *Config) CacheDir() string {
	if c.Cache.Dir != "" {
		return c.Cache.Dir
	}
	return filepath.Join(c.Vault.Path, ".vaultlens")
}

// WalkOptions maps the vault section onto walker options.
func (c *Config) WalkOptions() vault.WalkOptions {
	return vault.WalkOptions{
		ExcludedDirs:   c.Vault.ExcludedDirs,
		ExcludedFiles:  c.Vault.ExcludedFiles,
		FileExtensions: c.Vault.FileExtensions,
		IncludeFolders: c.Vault.IncludeFolders,
		ExcludeFolders: c.Vault.ExcludeFolders,
	}
}

// SearchOptions maps the search section onto per-request defaults.
func (c *Config) SearchOptions() search.Options {
	return search.Options{
		K:           c.Search.DefaultTopK,
		Threshold:   c.Search.SimilarityThreshold,
		Alpha:       c.Search.Hybrid.SemanticWeight,
		Beta:        c.Search.Hybrid.KeywordWeight,
		RRFConstant: c.Search.RRFConstant,
	}
}

// DedupOptions maps the duplicates section onto detector options.
func (c *Config) DedupOptions() dedup.Options {
	return dedup.Options{
		Threshold: c.Duplicates.SimilarityThreshold,
		MinWords:  c.Duplicates.MinWordCount,
	}
}

// EmbedderConfig maps the model.dense section onto an encoder config.
func (c *Config) EmbedderConfig() embedder.Config {
	return embedder.Config{
		Provider:  c.Model.Dense.Provider,
		Model:     c.Model.Dense.Name,
		Dimension: c.Model.Dense.Dimension,
		BaseURL:   c.Model.Dense.BaseURL,
		Timeout:   time.Duration(c.Model.Dense.TimeoutSeconds) * time.Second,
		CacheSize: 10000,
	}
}
