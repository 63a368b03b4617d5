package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/vaultlens/vaultlens/internal/config"
	"github.com/vaultlens/vaultlens/internal/embedder"
	"github.com/vaultlens/vaultlens/internal/engine"
	"github.com/vaultlens/vaultlens/internal/store"
)

const cacheDBName = "embeddings.db"

// app bundles everything a command needs.
type app struct {
	cfg    *config.Config
	engine *engine.Engine
	logger *zap.Logger
}

func (a *app) close() {
	_ = a.engine.Close()
	_ = a.logger.Sync()
}

// newApp loads configuration and assembles the engine: sqlite store in
// the cache directory, dense encoder per model.dense.*, the local
// encoder doubling as token encoder, and a Jina cross-encoder when an
// API key is present.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	cacheDir := cfg.CacheDir()
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	st, err := store.NewSQLiteStore(filepath.Join(cacheDir, cacheDBName), cfg.Vault.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("opening embedding store: %w", err)
	}

	dense, err := embedder.New(cfg.EmbedderConfig())
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	// The deterministic local encoder is the only provider that also
	// produces token embeddings.
	var tokens embedder.TokenEncoder
	if local, ok := dense.(*embedder.LocalEncoder); ok {
		tokens = local
	}

	var cross embedder.CrossEncoder
	if key := os.Getenv(embedder.EnvJinaAPIKey); key != "" {
		cross, err = embedder.NewJinaReranker(key, cfg.Model.Rerank.Name, 0)
		if err != nil {
			logger.Warn("reranker unavailable", zap.Error(err))
			cross = nil
		}
	}

	eng := engine.New(engine.Config{
		Root:            cfg.Vault.Path,
		CacheDir:        cacheDir,
		BatchSize:       cfg.Model.Dense.BatchSize,
		RerankBatchSize: cfg.Model.Rerank.BatchSize,
		Walk:            cfg.WalkOptions(),
	}, st, dense, tokens, cross, logger)

	return &app{cfg: cfg, engine: eng, logger: logger}, nil
}
