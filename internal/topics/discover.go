package topics

import (
	"context"
	"sort"
	"strconv"

	"ckexporter/internal/atoms"
	"ckexporter/internal/pipeline"
	"ckexporter/internal/ports"
)

// DiscoverOptions bounds the Topic Discoverer run.
type DiscoverOptions struct {
	TargetTopics        int
	TopicMaxConcurrency int
	ChunkMaxTokens      int
	ChunkOverlapTokens  int
	CacheDir            string
	EmbeddingModel      string
	// IncludedKinds overrides DefaultIncludedKinds when non-nil.
	IncludedKinds map[atoms.Kind]bool
}

// Discoverer builds a Topic Registry from a set of conversation documents.
type Discoverer struct {
	Embedder  ports.Embedder
	Clusterer ports.Clusterer
	Labeler   ports.TopicLabeler
	Opts      DiscoverOptions
}

// docEntry pairs a built document with the conversation it came from,
// preserving the input order the spec requires for representative-document
// selection ("first three assigned to that cluster, preserving document
// order").
type docEntry struct {
	convID string
	text   string
}

// Discover builds one document per conversation (title + included-kind
// atoms under fixed headings), embeds them with chunked pooling, clusters
// the embeddings, labels each non-outlier cluster via a bounded pool, and
// returns a registry sorted by topic_id ascending. generatedAt is supplied
// by the caller rather than stamped here, since this package never calls
// the wall clock.
func (d *Discoverer) Discover(ctx context.Context, metas []ConversationMeta, atomsByConv map[string][]atoms.Atom, generatedAt string) (Registry, error) {
	docs := make([]docEntry, 0, len(metas))
	for _, m := range metas {
		text := BuildDocument(m, atomsByConv[m.ID], d.Opts.IncludedKinds)
		docs = append(docs, docEntry{convID: m.ID, text: text})
	}

	if len(docs) == 0 {
		return Registry{GeneratedAt: generatedAt, EmbeddingModel: d.Opts.EmbeddingModel}, nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.text
	}

	vectors, err := d.Embedder.EmbedPooled(ctx, texts, d.Opts.ChunkMaxTokens, d.Opts.ChunkOverlapTokens, "mean", d.Opts.CacheDir)
	if err != nil {
		return Registry{}, err
	}

	target := d.Opts.TargetTopics
	if target <= 0 {
		target = 1
	}
	clusterResult, err := d.Clusterer.Cluster(ctx, vectors, target)
	if err != nil {
		return Registry{}, err
	}

	members := map[int][]int{} // cluster id -> doc indices, in input order
	for i, label := range clusterResult.Labels {
		if label == -1 {
			continue
		}
		members[label] = append(members[label], i)
	}

	clusterIDs := make([]int, 0, len(members))
	for id := range members {
		clusterIDs = append(clusterIDs, id)
	}
	sort.Ints(clusterIDs)

	bound := d.Opts.TopicMaxConcurrency
	if bound <= 0 {
		bound = 1
	}

	type labelJob struct {
		clusterID int
		repDocs   []string
		keywords  []string
		convIDs   []string
		centroid  []float32
	}

	jobs := make([]labelJob, 0, len(clusterIDs))
	for _, cid := range clusterIDs {
		idxs := members[cid]

		repCount := 3
		if len(idxs) < repCount {
			repCount = len(idxs)
		}
		repDocs := make([]string, 0, repCount)
		convIDs := make([]string, 0, repCount)
		for _, idx := range idxs[:repCount] {
			repDocs = append(repDocs, docs[idx].text)
			convIDs = append(convIDs, docs[idx].convID)
		}

		memberTexts := make([]string, len(idxs))
		for j, idx := range idxs {
			memberTexts[j] = docs[idx].text
		}
		keywords := clusterResult.Keywords[cid]
		if len(keywords) == 0 {
			keywords = extractKeywords(memberTexts, 10)
		}

		dims := 0
		if len(vectors) > 0 {
			dims = len(vectors[0])
		}
		centroid := make([]float32, dims)
		for _, idx := range idxs {
			for d := 0; d < dims && d < len(vectors[idx]); d++ {
				centroid[d] += vectors[idx][d]
			}
		}
		if len(idxs) > 0 {
			for d := range centroid {
				centroid[d] /= float32(len(idxs))
			}
		}

		jobs = append(jobs, labelJob{
			clusterID: cid,
			repDocs:   repDocs,
			keywords:  keywords,
			convIDs:   convIDs,
			centroid:  centroid,
		})
	}

	labels := pipeline.PoolIsolated(ctx, bound, jobs, func(ctx context.Context, job labelJob, _ int) Topic {
		name, desc := labelOrFallback(ctx, d.Labeler, job.clusterID, job.repDocs, job.keywords)
		return Topic{
			TopicID:               job.clusterID,
			Name:                  name,
			Description:           desc,
			Keywords:              job.keywords,
			RepresentativeConvIDs: job.convIDs,
			CentroidEmbedding:     job.centroid,
		}
	})

	sort.Slice(labels, func(i, j int) bool { return labels[i].TopicID < labels[j].TopicID })

	return Registry{
		GeneratedAt:    generatedAt,
		EmbeddingModel: d.Opts.EmbeddingModel,
		Topics:         labels,
	}, nil
}

func labelOrFallback(ctx context.Context, labeler ports.TopicLabeler, topicID int, repDocs, keywords []string) (string, string) {
	if labeler == nil {
		return fallbackName(topicID), fallbackDescription()
	}
	label, err := labeler.Label(ctx, topicID, repDocs, keywords)
	if err != nil || label.Name == "" {
		return fallbackName(topicID), fallbackDescription()
	}
	return label.Name, label.Description
}

func fallbackName(topicID int) string {
	return "Topic " + strconv.Itoa(topicID)
}

func fallbackDescription() string { return "No description available" }
