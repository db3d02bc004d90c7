package qdrant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenEmptyDSNReturnsNilIndexDisabled(t *testing.T) {
	idx, err := Open(context.Background(), "", "topics", 128)
	require.NoError(t, err)
	assert.Nil(t, idx)
}

func TestOpenRequiresCollectionName(t *testing.T) {
	_, err := Open(context.Background(), "localhost:6334", "", 128)
	assert.Error(t, err)
}

func TestOpenRequiresPositiveDimensions(t *testing.T) {
	_, err := Open(context.Background(), "localhost:6334", "topics", 0)
	assert.Error(t, err)
}

func TestNilIndexMethodsAreNoOps(t *testing.T) {
	var idx *Index
	assert.NoError(t, idx.UpsertTopicCentroid(context.Background(), 0, "t", nil))
	assert.NoError(t, idx.UpsertConversationEmbedding(context.Background(), "c1", "t", nil))
	matches, err := idx.SimilarTopics(context.Background(), nil, 5)
	assert.NoError(t, err)
	assert.Nil(t, matches)
	assert.NoError(t, idx.Close())
}
