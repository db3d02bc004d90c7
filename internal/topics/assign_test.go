package topics

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ckexporter/internal/atoms"
)

func TestAssignPrimaryAlwaysSetEvenBelowThreshold(t *testing.T) {
	metas := []ConversationMeta{{ID: "c1", Title: "Conv 1"}}
	registry := Registry{
		EmbeddingModel: "m",
		Topics: []Topic{
			{TopicID: 0, Name: "Only Topic", CentroidEmbedding: []float32{0, 1}},
		},
	}
	embedder := &fakeEmbedder{dims: 2, byText: map[string][]float32{
		BuildDocument(metas[0], nil, nil): {1, 0},
	}}

	a := &Assigner{Embedder: embedder, Opts: AssignOptions{PrimaryThreshold: 0.6, SecondaryThreshold: 0.55}}
	assignments, review, err := a.Assign(context.Background(), registry, metas, nil)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	require.Len(t, assignments[0].Topics, 1)
	assert.Equal(t, "primary", assignments[0].Topics[0].Rank)
	assert.InDelta(t, 0.0, assignments[0].Topics[0].Score, 1e-9)
	assert.True(t, assignments[0].ReviewFlag)
	require.Len(t, review, 1)
	assert.Equal(t, ReasonLowConfidence, review[0].Reason)
}

func TestAssignAmbiguousSecondaryFlagsReview(t *testing.T) {
	metas := []ConversationMeta{{ID: "c1", Title: "Conv 1"}}
	doc := BuildDocument(metas[0], nil, nil)

	// Three topics whose centroids (in doc-vector space after cosine) will
	// score 0.75, 0.72, 0.60 against a probe vector built by hand below.
	registry := Registry{
		Topics: []Topic{
			{TopicID: 0, Name: "A", CentroidEmbedding: cosineTarget(0.75)},
			{TopicID: 1, Name: "B", CentroidEmbedding: cosineTarget(0.72)},
			{TopicID: 2, Name: "C", CentroidEmbedding: cosineTarget(0.60)},
		},
	}
	embedder := &fakeEmbedder{dims: 2, byText: map[string][]float32{doc: {1, 0}}}

	a := &Assigner{Embedder: embedder, Opts: AssignOptions{PrimaryThreshold: 0.60, SecondaryThreshold: 0.55}}
	assignments, review, err := a.Assign(context.Background(), registry, metas, nil)
	require.NoError(t, err)
	require.Len(t, assignments, 1)

	topics := assignments[0].Topics
	require.GreaterOrEqual(t, len(topics), 2)
	assert.Equal(t, "primary", topics[0].Rank)
	assert.InDelta(t, 0.75, topics[0].Score, 1e-6)
	assert.Equal(t, "secondary", topics[1].Rank)
	assert.True(t, assignments[0].ReviewFlag)
	require.Len(t, review, 1)
	assert.Equal(t, ReasonAmbiguous, review[0].Reason)
}

func TestAssignNoTopicsProducesEmptyAssignment(t *testing.T) {
	metas := []ConversationMeta{{ID: "c1", Title: "Conv 1"}}
	embedder := &fakeEmbedder{dims: 2}
	a := &Assigner{Embedder: embedder}
	assignments, review, err := a.Assign(context.Background(), Registry{}, metas, map[string][]atoms.Atom{})
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Empty(t, assignments[0].Topics)
	assert.False(t, assignments[0].ReviewFlag)
	assert.Empty(t, review)
}

// cosineTarget returns a 2D vector whose cosine similarity with {1,0} is
// approximately cos, via simple trigonometric placement.
func cosineTarget(cos float64) []float32 {
	sin := math.Sqrt(1 - cos*cos)
	return []float32{float32(cos), float32(sin)}
}
