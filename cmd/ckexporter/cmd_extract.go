package main

import (
	"context"
	"errors"
	"flag"
	"time"

	"github.com/rs/zerolog/log"

	"ckexporter/internal/chunking"
	"ckexporter/internal/config"
	"ckexporter/internal/conversation"
	"ckexporter/internal/extract"
	"ckexporter/internal/linearize"
	"ckexporter/internal/llmprovider"
	"ckexporter/internal/normalize"
	"ckexporter/internal/orchestrator"
	"ckexporter/internal/pipeline"
)

const dedupeTTL = 24 * time.Hour

// extractOneConversation runs one conversation through the extractor,
// consulting and updating the distributed dedupe store first when one is
// configured (cfg.Redis.Addr), on top of the extractor's own
// filesystem-based SkipExisting check.
func extractOneConversation(ctx context.Context, dedupe *orchestrator.RedisDedupeStore, extractor *extract.Extractor, conv *conversation.Conversation, messages []conversation.Message) error {
	dedupeKey := "ckexporter:extracted:" + conv.ID
	if done, _ := dedupe.Get(ctx, dedupeKey); done != "" {
		return nil
	}
	if _, err := extractor.Run(ctx, conv, messages); err != nil {
		return err
	}
	_ = dedupe.Set(ctx, dedupeKey, "1", dedupeTTL)
	return nil
}

// runExtract normalizes and linearizes every input conversation, then runs
// the two-pass extractor on each, bounded at the conversation level by
// max_conversations (spec §5); chunk-level fan-out happens inside
// Extractor.Run itself.
func runExtract(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	in := fs.String("in", "", "input directory of conversation exports (required)")
	atomsRoot := fs.String("atoms", cfg.AtomsRoot, "per-conversation atoms output directory")
	fs.Parse(args)

	if *in == "" {
		return errors.New("extract: -in is required")
	}

	convs, err := loadConversations(ctx, cfg, *in)
	if err != nil {
		return err
	}
	convs = normalize.ApplyLimit(convs, cfg.Limit)

	chat, err := llmprovider.BuildLLM(ctx, cfg)
	if err != nil {
		return err
	}
	sem := pipeline.NewLLMSemaphore(cfg.LLMMaxInflight)
	chat = pipeline.WithLLMSemaphore(chat, sem)

	dedupe, err := orchestrator.NewRedisDedupeStore(cfg.Redis.Addr)
	if err != nil {
		return err
	}
	defer dedupe.Close()

	extractor := &extract.Extractor{
		Chat: chat,
		Opts: extract.Options{
			FastModel:           cfg.FastModel,
			BigModel:            cfg.BigModel,
			ChunkMaxTokens:      cfg.ChunkMaxTokens,
			ChunkOverlapTokens:  cfg.ChunkOverlapTokens,
			ChunkMaxConcurrency: cfg.ChunkMaxConcurrency,
			MaxEvidencePerItem:  cfg.MaxEvidencePerItem,
			SkipExisting:        cfg.SkipExisting,
			AtomsRoot:           *atomsRoot,
			Tokenizer:           chunking.TokenizerForModel(cfg.FastModel),
		},
	}

	results := pipeline.PoolIsolated(ctx, cfg.MaxConversations, convs, func(ctx context.Context, conv *conversation.Conversation, _ int) error {
		messages, err := linearize.Linearize(conv)
		if err != nil {
			log.Warn().Err(err).Str("conversation_id", conv.ID).Msg("extract: skipping conversation")
			return nil
		}
		if err := extractOneConversation(ctx, dedupe, extractor, conv, messages); err != nil {
			log.Error().Err(err).Str("conversation_id", conv.ID).Msg("extract: write failed")
			return err
		}
		return nil
	})

	failed := 0
	for _, r := range results {
		if r != nil {
			failed++
		}
	}
	log.Info().Int("conversations", len(convs)).Int("write_failures", failed).Msg("extract: done")
	return nil
}
