package topics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ckexporter/internal/atoms"
	"ckexporter/internal/ports"
)

// fakeEmbedder returns a fixed vector per input text, looked up by exact
// string match, so tests can control clustering deterministically.
type fakeEmbedder struct {
	byText map[string][]float32
	dims   int
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return f.EmbedPooled(ctx, texts, 0, 0, "mean", "")
}

func (f *fakeEmbedder) EmbedPooled(ctx context.Context, texts []string, _, _ int, _ string, _ string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, ok := f.byText[t]
		if !ok {
			v = make([]float32, f.dims)
		}
		out[i] = v
	}
	return out, nil
}

// fakeClusterer assigns labels by the order given in labels, ignoring the
// actual embeddings (discover tests care about wiring, not math — that's
// internal/clustering/kmeans's job).
type fakeClusterer struct {
	labels []int
}

func (f *fakeClusterer) Cluster(ctx context.Context, embeddings [][]float32, targetClusters int) (ports.ClusterResult, error) {
	return ports.ClusterResult{Labels: f.labels, Keywords: map[int][]string{}}, nil
}

type fakeLabeler struct {
	fail bool
}

func (f *fakeLabeler) Label(ctx context.Context, topicID int, docs []string, keywords []string) (ports.TopicLabel, error) {
	if f.fail {
		return ports.TopicLabel{}, assert.AnError
	}
	return ports.TopicLabel{Name: "Infra Topic", Description: "about infra"}, nil
}

func TestDiscoverDropsOutlierClusterAndSortsByTopicID(t *testing.T) {
	metas := []ConversationMeta{
		{ID: "c1", Title: "Conv 1"},
		{ID: "c2", Title: "Conv 2"},
		{ID: "c3", Title: "Conv 3 (outlier)"},
	}
	atomsByConv := map[string][]atoms.Atom{
		"c1": {atoms.New(atoms.KindFact, "fact one")},
		"c2": {atoms.New(atoms.KindFact, "fact two")},
		"c3": {atoms.New(atoms.KindFact, "fact three")},
	}

	embedder := &fakeEmbedder{dims: 2, byText: map[string][]float32{
		BuildDocument(metas[0], atomsByConv["c1"], nil): {1, 0},
		BuildDocument(metas[1], atomsByConv["c2"], nil): {1, 0},
		BuildDocument(metas[2], atomsByConv["c3"], nil): {0, 1},
	}}
	clusterer := &fakeClusterer{labels: []int{1, 1, -1}}
	labeler := &fakeLabeler{}

	d := &Discoverer{
		Embedder:  embedder,
		Clusterer: clusterer,
		Labeler:   labeler,
		Opts:      DiscoverOptions{TargetTopics: 2, TopicMaxConcurrency: 2},
	}

	registry, err := d.Discover(context.Background(), metas, atomsByConv, "2026-07-31T00:00:00Z")
	require.NoError(t, err)
	require.Len(t, registry.Topics, 1)
	assert.Equal(t, 1, registry.Topics[0].TopicID)
	assert.Equal(t, "Infra Topic", registry.Topics[0].Name)
	assert.ElementsMatch(t, []string{"c1", "c2"}, registry.Topics[0].RepresentativeConvIDs)
}

func TestDiscoverFallsBackOnLabelingFailure(t *testing.T) {
	metas := []ConversationMeta{{ID: "c1", Title: "Conv 1"}}
	atomsByConv := map[string][]atoms.Atom{"c1": {atoms.New(atoms.KindFact, "fact one")}}

	embedder := &fakeEmbedder{dims: 2, byText: map[string][]float32{
		BuildDocument(metas[0], atomsByConv["c1"], nil): {1, 0},
	}}
	clusterer := &fakeClusterer{labels: []int{0}}
	labeler := &fakeLabeler{fail: true}

	d := &Discoverer{Embedder: embedder, Clusterer: clusterer, Labeler: labeler, Opts: DiscoverOptions{TargetTopics: 1}}

	registry, err := d.Discover(context.Background(), metas, atomsByConv, "2026-07-31T00:00:00Z")
	require.NoError(t, err)
	require.Len(t, registry.Topics, 1)
	assert.Equal(t, "Topic 0", registry.Topics[0].Name)
	assert.Equal(t, "No description available", registry.Topics[0].Description)
}

func TestDiscoverEmptyInputReturnsEmptyRegistry(t *testing.T) {
	d := &Discoverer{Embedder: &fakeEmbedder{}, Clusterer: &fakeClusterer{}, Labeler: &fakeLabeler{}}
	registry, err := d.Discover(context.Background(), nil, nil, "2026-07-31T00:00:00Z")
	require.NoError(t, err)
	assert.Empty(t, registry.Topics)
}
