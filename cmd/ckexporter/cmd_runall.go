package main

import (
	"context"
	"errors"
	"flag"
	"math"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"ckexporter/internal/chunking"
	"ckexporter/internal/clustering/kmeans"
	"ckexporter/internal/config"
	"ckexporter/internal/consolidate"
	"ckexporter/internal/conversation"
	"ckexporter/internal/documents"
	"ckexporter/internal/embedding"
	"ckexporter/internal/extract"
	"ckexporter/internal/linearize"
	"ckexporter/internal/llmprovider"
	"ckexporter/internal/normalize"
	"ckexporter/internal/orchestrator"
	"ckexporter/internal/pipeline"
	"ckexporter/internal/store/postgres"
	"ckexporter/internal/store/qdrant"
	"ckexporter/internal/topics"
)

// runAll drives every stage end to end: linearize+extract per conversation,
// consolidate, compile, discover topics, assign topics. Optional durable
// backends (Postgres, Qdrant, Kafka, ClickHouse) are wired unconditionally
// since every one of them is nil-safe when unconfigured.
func runAll(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("run-all", flag.ExitOnError)
	in := fs.String("in", "", "input directory of conversation exports (required)")
	out := fs.String("out", cfg.OutDir, "pipeline output root")
	fs.Parse(args)

	if *in == "" {
		return errors.New("run-all: -in is required")
	}

	evidenceRoot := filepath.Join(*out, "evidence")
	atomsRoot := filepath.Join(*out, "atoms")

	metrics, err := pipeline.OpenStageMetrics(ctx, cfg.ClickHouse.DSN)
	if err != nil {
		return err
	}
	defer metrics.Close()
	events := pipeline.NewEventPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer events.Close()

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
			AtomsRoot:           atomsRoot,
			Tokenizer:           chunking.TokenizerForModel(cfg.FastModel),
		},
	}

	pipeline.PoolIsolated(ctx, cfg.MaxConversations, convs, func(ctx context.Context, conv *conversation.Conversation, _ int) error {
		start := time.Now()
		messages, err := linearize.Linearize(conv)
		if err != nil {
			log.Warn().Err(err).Str("conversation_id", conv.ID).Msg("run-all: skipping conversation")
			return nil
		}
		if _, err := linearize.WriteEvidence(evidenceRoot, conv, messages); err != nil {
			log.Warn().Err(err).Str("conversation_id", conv.ID).Msg("run-all: failed to write evidence")
		}
		if err := extractOneConversation(ctx, dedupe, extractor, conv, messages); err != nil {
			log.Error().Err(err).Str("conversation_id", conv.ID).Msg("run-all: extraction write failed")
			return err
		}
		metrics.RecordStage(ctx, "extract", conv.ID, time.Since(start))
		_ = events.Publish(ctx, pipeline.StageEvent{Stage: "extract", ConversationID: conv.ID})
		return nil
	})

	consolidator := &consolidate.Consolidator{AtomsRoot: atomsRoot, MaxEvidencePerItem: cfg.MaxEvidencePerItem}
	merged, result, err := consolidator.Run()
	if err != nil {
		return err
	}
	if err := consolidate.WriteAtoms(*out, merged); err != nil {
		return err
	}
	if err := consolidate.WriteManifest(*out, result); err != nil {
		return err
	}
	if cfg.IncludeDocs {
		if docs, adrs, err := documents.CompileMarkdown(ctx, *in, "adr-"); err == nil {
			_ = documents.WriteFileAtomic(filepath.Join(*out, "project", "docs_concat.md"), docs)
			_ = documents.WriteFileAtomic(filepath.Join(*out, "project", "adrs_concat.md"), adrs)
		} else {
			log.Warn().Err(err).Msg("run-all: compile step failed")
		}
	}

	pg, err := postgres.Open(ctx, cfg.Postgres.DSN)
	if err != nil {
		return err
	}
	defer pg.Close()
	if err := pg.UpsertAtoms(ctx, merged); err != nil {
		log.Warn().Err(err).Msg("run-all: postgres atom upsert failed")
	}

	metas := conversationMetasFrom(convs)
	atomsByConv := groupAtomsByConversation(merged)

	embedder, err := embedding.Build(ctx, cfg)
	if err != nil {
		return err
	}
	labeler, err := llmprovider.BuildLabeler(ctx, cfg)
	if err != nil {
		return err
	}

	target := cfg.TargetTopics
	if target <= 0 {
		target = int(math.Round(math.Sqrt(float64(len(metas)))))
		if target < 1 {
			target = 1
		}
	}

	discoverer := &topics.Discoverer{
		Embedder:  embedder,
		Clusterer: &kmeans.Clusterer{},
		Labeler:   labeler,
		Opts: topics.DiscoverOptions{
			TargetTopics:        target,
			TopicMaxConcurrency: cfg.TopicMaxConcurrency,
			ChunkMaxTokens:      cfg.ChunkMaxTokens,
			ChunkOverlapTokens:  cfg.ChunkOverlapTokens,
			CacheDir:            cfg.CacheDir,
			EmbeddingModel:      cfg.EmbeddingModel,
			IncludedKinds:       topics.DefaultIncludedKinds,
		},
	}
	registry, err := discoverer.Discover(ctx, metas, atomsByConv, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return err
	}
	if err := topics.WriteRegistry(*out, registry); err != nil {
		return err
	}
	if err := pg.UpsertTopicRegistry(ctx, registry); err != nil {
		log.Warn().Err(err).Msg("run-all: postgres topic upsert failed")
	}

	qd, err := qdrant.Open(ctx, cfg.Qdrant.DSN, cfg.Qdrant.Collection, cfg.Qdrant.Dimensions)
	if err != nil {
		return err
	}
	defer qd.Close()
	for _, t := range registry.Topics {
		if err := qd.UpsertTopicCentroid(ctx, t.TopicID, t.Name, t.CentroidEmbedding); err != nil {
			log.Warn().Err(err).Int("topic_id", t.TopicID).Msg("run-all: qdrant centroid upsert failed")
		}
	}

	assigner := &topics.Assigner{
		Embedder: embedder,
		Opts: topics.AssignOptions{
			PrimaryThreshold:   cfg.PrimaryThreshold,
			SecondaryThreshold: cfg.SecondaryThreshold,
			ChunkMaxTokens:     cfg.ChunkMaxTokens,
			ChunkOverlapTokens: cfg.ChunkOverlapTokens,
			CacheDir:           cfg.CacheDir,
			EmbeddingModel:     cfg.EmbeddingModel,
			IncludedKinds:      topics.DefaultIncludedKinds,
		},
	}
	assignments, reviewQueue, err := assigner.Assign(ctx, registry, metas, atomsByConv)
	if err != nil {
		return err
	}
	if err := topics.WriteAssignments(*out, assignments); err != nil {
		return err
	}
	if err := topics.WriteReviewQueue(*out, reviewQueue); err != nil {
		return err
	}
	if err := pg.UpsertAssignments(ctx, assignments); err != nil {
		log.Warn().Err(err).Msg("run-all: postgres assignment upsert failed")
	}

	log.Info().
		Int("conversations", len(convs)).
		Int("atoms", result.OutputCount).
		Int("topics", len(registry.Topics)).
		Int("flagged_for_review", len(reviewQueue)).
		Msg("run-all: done")
	return nil
}
