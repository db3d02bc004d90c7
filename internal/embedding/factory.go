package embedding

import (
	"context"
	"fmt"
	"time"

	"ckexporter/internal/chunking"
	"ckexporter/internal/config"
	"ckexporter/internal/embedding/gemini"
	"ckexporter/internal/embedding/openai"
	"ckexporter/internal/ports"
)

// embeddingDims is the known output width for each supported model, used
// for zero-chunk and zero-norm vector construction. Unknown models fall
// back to 1536 (OpenAI's text-embedding-3-small width).
var embeddingDims = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
	"text-embedding-004":     768,
}

func dimsFor(model string) int {
	if d, ok := embeddingDims[model]; ok {
		return d
	}
	return 1536
}

// Build constructs the configured ports.Embedder: a RawEmbedder adapter
// selected by cfg.EmbedderProvider, wrapped in the shared Service (cache +
// pooling), with an optional Redis L1 tier when cfg.Redis.Addr is set.
func Build(ctx context.Context, cfg config.Config) (ports.Embedder, error) {
	var raw RawEmbedder
	switch cfg.EmbedderProvider {
	case "", "openai":
		raw = openai.New(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)
	case "gemini":
		client, err := gemini.New(ctx, cfg.Gemini.APIKey)
		if err != nil {
			return nil, err
		}
		raw = client
	default:
		return nil, fmt.Errorf("unknown embedder provider %q", cfg.EmbedderProvider)
	}

	var redisCache *RedisCache
	if cfg.Redis.Addr != "" {
		rc, err := NewRedisCache(cfg.Redis.Addr, 24*time.Hour)
		if err != nil {
			return nil, err
		}
		redisCache = rc
	}

	return &Service{
		Raw:       raw,
		Model:     cfg.EmbeddingModel,
		Dims:      dimsFor(cfg.EmbeddingModel),
		BatchSize: DefaultBatchSize,
		Redis:     redisCache,
		Tokenizer: chunking.TokenizerForModel(cfg.EmbeddingModel),
	}, nil
}
