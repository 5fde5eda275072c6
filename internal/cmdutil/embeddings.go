package cmdutil

import (
	"log/slog"

	"github.com/leefowlercu/memorizer/internal/cache"
	"github.com/leefowlercu/memorizer/internal/config"
	"github.com/leefowlercu/memorizer/internal/providers"
	"github.com/leefowlercu/memorizer/internal/providers/embeddings"
	"github.com/leefowlercu/memorizer/internal/query"
)

// EmbeddingsOptions builds the query-engine options for the configured
// embeddings provider, or nil when embeddings are disabled or the provider
// is not usable. Retrieval then degrades to the keyword+recency blend.
func EmbeddingsOptions(cfg *config.Config, logger *slog.Logger) []query.Option {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Embeddings.Enabled {
		return nil
	}

	provider := embeddingsProvider(cfg)
	if provider == nil {
		logger.Warn("unknown embeddings provider; semantic retrieval disabled",
			"provider", cfg.Embeddings.Provider)
		return nil
	}
	if !provider.Available() {
		logger.Warn("embeddings provider not available; semantic retrieval disabled",
			"provider", provider.Name())
		return nil
	}

	var store cache.VectorStore
	if cfg.Embeddings.CacheRedisAddr != "" {
		store = cache.NewRedisVectorCache(cache.RedisVectorCacheConfig{
			Addr: cfg.Embeddings.CacheRedisAddr,
		}, logger)
	} else {
		store = cache.NewVectorCache(cfg.Embeddings.MaxCacheEntries)
	}

	return []query.Option{
		query.WithEmbeddings(provider, query.NewSimilarityIndex(), store),
	}
}

func embeddingsProvider(cfg *config.Config) providers.EmbeddingsProvider {
	key := cfg.Embeddings.ResolveAPIKey()

	switch cfg.Embeddings.Provider {
	case "openai":
		return embeddings.NewOpenAIEmbeddingsProvider(
			embeddings.WithEmbeddingsModel(cfg.Embeddings.Model),
			embeddings.WithEmbeddingsDimensions(cfg.Embeddings.Dimensions),
			embeddings.WithEmbeddingsAPIKey(key),
		)
	case "google":
		return embeddings.NewGoogleEmbeddingsProvider(
			embeddings.WithGoogleEmbeddingsModel(cfg.Embeddings.Model),
			embeddings.WithGoogleEmbeddingsAPIKey(key),
		)
	default:
		return nil
	}
}
