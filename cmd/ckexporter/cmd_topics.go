package main

import (
	"context"
	"errors"
	"flag"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"ckexporter/internal/clustering/kmeans"
	"ckexporter/internal/config"
	"ckexporter/internal/consolidate"
	"ckexporter/internal/embedding"
	"ckexporter/internal/llmprovider"
	"ckexporter/internal/topics"
)

// runDiscoverTopics builds per-conversation documents from consolidated
// atoms, embeds and clusters them, labels each cluster, and writes the
// immutable topic registry.
func runDiscoverTopics(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("discover-topics", flag.ExitOnError)
	in := fs.String("in", "", "original conversation input directory, for titles (required)")
	atomsPath := fs.String("atoms", "", "consolidated project atoms.jsonl (required)")
	out := fs.String("out", cfg.OutDir, "topic registry output directory")
	targetTopics := fs.Int("target-topics", cfg.TargetTopics, "target cluster count (0 = auto)")
	fs.Parse(args)

	if *in == "" || *atomsPath == "" {
		return errors.New("discover-topics: -in and -atoms are required")
	}

	metas, err := loadConversationMetas(ctx, cfg, *in)
	if err != nil {
		return err
	}
	atomList, err := consolidate.ReadAtomsFile(*atomsPath)
	if err != nil {
		return err
	}
	atomsByConv := groupAtomsByConversation(atomList)

	embedder, err := embedding.Build(ctx, cfg)
	if err != nil {
		return err
	}
	labeler, err := llmprovider.BuildLabeler(ctx, cfg)
	if err != nil {
		return err
	}

	target := *targetTopics
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

	log.Info().Int("topics", len(registry.Topics)).Int("conversations", len(metas)).Msg("discover-topics: done")
	return nil
}

// runAssignTopics scores every conversation against an existing registry
// and writes per-conversation assignments plus the review queue.
func runAssignTopics(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("assign-topics", flag.ExitOnError)
	in := fs.String("in", "", "original conversation input directory, for titles (required)")
	atomsPath := fs.String("atoms", "", "consolidated project atoms.jsonl (required)")
	registryDir := fs.String("registry", "", "directory containing topics.json (required)")
	out := fs.String("out", cfg.OutDir, "assignment output directory")
	fs.Parse(args)

	if *in == "" || *atomsPath == "" || *registryDir == "" {
		return errors.New("assign-topics: -in, -atoms, and -registry are required")
	}

	registry, err := topics.ReadRegistry(*registryDir)
	if err != nil {
		return err
	}
	metas, err := loadConversationMetas(ctx, cfg, *in)
	if err != nil {
		return err
	}
	atomList, err := consolidate.ReadAtomsFile(*atomsPath)
	if err != nil {
		return err
	}
	atomsByConv := groupAtomsByConversation(atomList)

	embedder, err := embedding.Build(ctx, cfg)
	if err != nil {
		return err
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

	log.Info().Int("conversations", len(assignments)).Int("flagged_for_review", len(reviewQueue)).Msg("assign-topics: done")
	return nil
}
