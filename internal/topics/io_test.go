package topics

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndReadRegistryRoundTrips(t *testing.T) {
	dir := t.TempDir()
	registry := Registry{
		GeneratedAt:    "2026-07-31T00:00:00Z",
		EmbeddingModel: "text-embedding-3-small",
		Topics: []Topic{
			{TopicID: 0, Name: "A", Description: "desc", Keywords: []string{"x"}, CentroidEmbedding: []float32{0.1, 0.2}},
		},
	}
	require.NoError(t, WriteRegistry(dir, registry))

	got, err := ReadRegistry(dir)
	require.NoError(t, err)
	assert.Equal(t, registry, got)
}

func TestWriteAssignmentsAndReviewQueue(t *testing.T) {
	dir := t.TempDir()
	assignments := []Assignment{{ConversationID: "c1", Title: "t", ReviewFlag: true}}
	review := []ReviewItem{{ConversationID: "c1", Title: "t", Reason: ReasonLowConfidence}}

	require.NoError(t, WriteAssignments(dir, assignments))
	require.NoError(t, WriteReviewQueue(dir, review))

	assert.FileExists(t, filepath.Join(dir, "assignments.jsonl"))
	assert.FileExists(t, filepath.Join(dir, "review_queue.jsonl"))
}
