package main

import (
	"context"
	"fmt"

	"ckexporter/internal/atoms"
	"ckexporter/internal/config"
	"ckexporter/internal/conversation"
	"ckexporter/internal/ingestsource"
	"ckexporter/internal/normalize"
	"ckexporter/internal/topics"
)

// loadConversations reads every conversation from inputDir, or from S3 when
// cfg.S3.Bucket is set, matching the Input Normalizer's source-selection
// rule: the filesystem is the default source, S3 is additive (spec
// expansion, internal/ingestsource).
func loadConversations(ctx context.Context, cfg config.Config, inputDir string) ([]*conversation.Conversation, error) {
	if cfg.S3.Bucket != "" {
		src, err := ingestsource.NewS3Source(ctx, cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("configure s3 source: %w", err)
		}
		return src.Load(ctx)
	}
	return normalize.LoadDirectory(inputDir)
}

// loadConversationMetas derives the lightweight identity (id, title,
// project) the Topic Discoverer/Assigner need for document headings, by
// re-normalizing the original input. Atom stores carry no title, so this
// is the only place that information survives to the topic stages.
func loadConversationMetas(ctx context.Context, cfg config.Config, inputDir string) ([]topics.ConversationMeta, error) {
	convs, err := loadConversations(ctx, cfg, inputDir)
	if err != nil {
		return nil, err
	}
	return conversationMetasFrom(convs), nil
}

// conversationMetasFrom projects already-loaded conversations into the
// lightweight metadata shape the topic stages need.
func conversationMetasFrom(convs []*conversation.Conversation) []topics.ConversationMeta {
	metas := make([]topics.ConversationMeta, 0, len(convs))
	for _, c := range convs {
		if c.ID == "" {
			continue
		}
		metas = append(metas, topics.ConversationMeta{ID: c.ID, Title: c.Title, ProjectName: c.ProjectName})
	}
	return metas
}

// groupAtomsByConversation buckets a flat atom list by every distinct
// conversation_id present in each atom's evidence, since a consolidated
// atom's evidence may span conversations after MergeEvidence.
func groupAtomsByConversation(atomList []atoms.Atom) map[string][]atoms.Atom {
	out := make(map[string][]atoms.Atom)
	for _, a := range atomList {
		seen := make(map[string]bool, len(a.Evidence))
		for _, e := range a.Evidence {
			if e.ConversationID == "" || seen[e.ConversationID] {
				continue
			}
			seen[e.ConversationID] = true
			out[e.ConversationID] = append(out[e.ConversationID], a)
		}
	}
	return out
}
