// Package embedding implements the Embedder contract: chunked, cached,
// L2-normalized text embedding with normalized-mean pooling across
// chunks. Two adapters (internal/embedding/openai, internal/embedding/
// gemini) supply the raw per-batch embedding call; everything else —
// chunking, caching, retry, pooling — is shared here.
package embedding

import (
	"context"

	"ckexporter/internal/chunking"
	"ckexporter/internal/pipeline"
)

// DefaultBatchSize is spec §4.6's default batch_size for misses sent to
// the provider in one API call.
const DefaultBatchSize = 100

// RawEmbedder is the narrow per-adapter port: embed a batch of already-
// chunked strings against one model, with no chunking, caching, or
// pooling of its own.
type RawEmbedder interface {
	EmbedBatch(ctx context.Context, model string, texts []string) ([][]float32, error)
}

// Service implements ports.Embedder on top of a RawEmbedder, a local
// content-addressed file cache, and an optional Redis L1 tier.
type Service struct {
	Raw       RawEmbedder
	Model     string
	Dims      int
	BatchSize int
	Redis     *RedisCache
	Tokenizer chunking.Tokenizer
}

// Embed implements ports.Embedder.Embed: one L2-unit row per input text,
// with no chunking (callers needing chunked pooling use EmbedPooled).
func (s *Service) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	raw, err := s.embedWithCache(ctx, "", texts)
	if err != nil {
		return nil, err
	}
	out := make([][]float32, len(raw))
	for i, v := range raw {
		out[i] = l2Normalize(v)
	}
	return out, nil
}

// EmbedPooled implements spec §4.6's embed_pooled: chunk each text, embed
// and cache at chunk granularity, then pool chunk vectors per source text
// by normalized mean.
func (s *Service) EmbedPooled(ctx context.Context, texts []string, chunkTokens, overlapTokens int, pooling string, cacheDir string) ([][]float32, error) {
	tok := s.Tokenizer
	if tok == nil {
		tok = chunking.RuneTokenizer{}
	}

	var flat []string
	owner := make([]int, 0)

	for i, text := range texts {
		chunks := chunking.ChunkText(tok, text, chunkTokens, overlapTokens)
		chunkTexts := make([]string, len(chunks))
		for j, c := range chunks {
			chunkTexts[j] = c.Text
		}
		for range chunkTexts {
			owner = append(owner, i)
		}
		flat = append(flat, chunkTexts...)
	}

	flatVectors, err := s.embedWithCache(ctx, cacheDir, flat)
	if err != nil {
		return nil, err
	}

	byText := make([][][]float32, len(texts))
	for i, v := range flatVectors {
		t := owner[i]
		byText[t] = append(byText[t], v)
	}

	out := make([][]float32, len(texts))
	for i, chunks := range byText {
		out[i] = normalizedMeanPool(chunks, s.Dims)
	}
	return out, nil
}

// embedWithCache looks each text up by its cache key (model + pooling
// version + text), batches misses into calls of <= BatchSize with the
// shared retry policy, writes freshly embedded vectors to the file cache
// (and Redis if configured), copies file-cache hits into Redis, and returns
// vectors in the original input order.
func (s *Service) embedWithCache(ctx context.Context, cacheDir string, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, t := range texts {
		key := cacheKey(s.Model, t)
		if s.Redis != nil {
			if v, ok := s.Redis.Get(ctx, key); ok {
				out[i] = v
				continue
			}
		}
		if v, ok := loadCachedVector(cacheDir, key); ok {
			out[i] = v
			if s.Redis != nil {
				s.Redis.Set(ctx, key, v)
			}
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}

	batchSize := s.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	for start := 0; start < len(missTexts); start += batchSize {
		end := start + batchSize
		if end > len(missTexts) {
			end = len(missTexts)
		}
		batch := missTexts[start:end]

		vectors, err := pipeline.WithRetry(ctx, func(ctx context.Context) ([][]float32, error) {
			return s.Raw.EmbedBatch(ctx, s.Model, batch)
		})
		if err != nil {
			return nil, err
		}

		for j, v := range vectors {
			idx := missIdx[start+j]
			out[idx] = v
			key := cacheKey(s.Model, texts[idx])
			storeCachedVector(cacheDir, key, v)
			if s.Redis != nil {
				s.Redis.Set(ctx, key, v)
			}
		}
	}

	return out, nil
}
