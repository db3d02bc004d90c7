package topics

import (
	"context"
	"fmt"
	"os"
	"sort"

	"ckexporter/internal/atoms"
	"ckexporter/internal/embedding"
	"ckexporter/internal/ports"
)

// AssignOptions parameterizes a Topic Assigner run.
type AssignOptions struct {
	PrimaryThreshold   float64
	SecondaryThreshold float64
	ChunkMaxTokens     int
	ChunkOverlapTokens int
	CacheDir           string
	EmbeddingModel     string
	IncludedKinds      map[atoms.Kind]bool
}

// Assigner scores each conversation document against a Topic Registry.
type Assigner struct {
	Embedder ports.Embedder
	Opts     AssignOptions
}

// Assign embeds each conversation's document and scores it against every
// topic centroid in registry, producing one Assignment per conversation
// and a review-queue entry for any flagged assignment.
func (a *Assigner) Assign(ctx context.Context, registry Registry, metas []ConversationMeta, atomsByConv map[string][]atoms.Atom) ([]Assignment, []ReviewItem, error) {
	if a.Opts.EmbeddingModel != "" && registry.EmbeddingModel != "" && a.Opts.EmbeddingModel != registry.EmbeddingModel {
		fmt.Fprintf(os.Stderr, "warning: configured embedding model %q differs from registry embedding model %q; scores may be meaningless\n",
			a.Opts.EmbeddingModel, registry.EmbeddingModel)
	}

	if len(metas) == 0 {
		return nil, nil, nil
	}

	texts := make([]string, len(metas))
	for i, m := range metas {
		texts[i] = BuildDocument(m, atomsByConv[m.ID], a.Opts.IncludedKinds)
	}

	vectors, err := a.Embedder.EmbedPooled(ctx, texts, a.Opts.ChunkMaxTokens, a.Opts.ChunkOverlapTokens, "mean", a.Opts.CacheDir)
	if err != nil {
		return nil, nil, err
	}

	primaryThreshold := a.Opts.PrimaryThreshold
	if primaryThreshold == 0 {
		primaryThreshold = 0.60
	}
	secondaryThreshold := a.Opts.SecondaryThreshold
	if secondaryThreshold == 0 {
		secondaryThreshold = 0.55
	}

	assignments := make([]Assignment, 0, len(metas))
	var reviewQueue []ReviewItem

	for i, m := range metas {
		assignment := Assignment{
			ConversationID: m.ID,
			Title:          m.Title,
			ProjectName:    m.ProjectName,
			AtomCount:      len(atomsByConv[m.ID]),
		}

		if len(registry.Topics) == 0 {
			assignments = append(assignments, assignment)
			continue
		}

		type scored struct {
			topic Topic
			score float64
		}
		scores := make([]scored, 0, len(registry.Topics))
		for _, t := range registry.Topics {
			s := clampUnit(embedding.CosineSimilarity(vectors[i], t.CentroidEmbedding))
			scores = append(scores, scored{topic: t, score: s})
		}
		sort.Slice(scores, func(a, b int) bool { return scores[a].score > scores[b].score })

		primary := scores[0]
		assignment.Topics = append(assignment.Topics, AssignedTopic{
			TopicID: primary.topic.TopicID,
			Name:    primary.topic.Name,
			Score:   primary.score,
			Rank:    "primary",
		})

		var secondary *scored
		for j := 1; j < len(scores); j++ {
			cand := scores[j]
			if cand.score >= secondaryThreshold && primary.score-cand.score <= 0.25 {
				assignment.Topics = append(assignment.Topics, AssignedTopic{
					TopicID: cand.topic.TopicID,
					Name:    cand.topic.Name,
					Score:   cand.score,
					Rank:    "secondary",
				})
				if secondary == nil {
					c := cand
					secondary = &c
				}
			}
		}

		reviewFlag := primary.score < primaryThreshold
		var reason ReviewReason
		if reviewFlag {
			reason = ReasonLowConfidence
		}
		if secondary != nil && secondary.score >= secondaryThreshold && primary.score-secondary.score < 0.08 {
			reviewFlag = true
			reason = ReasonAmbiguous
		}
		assignment.ReviewFlag = reviewFlag

		assignments = append(assignments, assignment)

		if reviewFlag {
			reviewQueue = append(reviewQueue, ReviewItem{
				ConversationID: m.ID,
				Title:          m.Title,
				ProjectName:    m.ProjectName,
				PrimaryTopic:   primary.topic.Name,
				PrimaryScore:   primary.score,
				Reason:         reason,
			})
		}
	}

	return assignments, reviewQueue, nil
}

// clampUnit clamps a cosine score into [0,1], tolerating the small negative
// float error a near-zero dot product can produce.
func clampUnit(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
