package kmeans

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClusterEmptyInputReturnsEmptyResult(t *testing.T) {
	c := Clusterer{}
	res, err := c.Cluster(context.Background(), nil, 3)
	require.NoError(t, err)
	assert.Nil(t, res.Labels)
}

func TestClusterSeparatesTwoObviousGroups(t *testing.T) {
	c := Clusterer{}
	embeddings := [][]float32{
		{1, 0, 0, 0},
		{0.98, 0.02, 0, 0},
		{0.95, 0.05, 0, 0},
		{0, 0, 1, 0},
		{0, 0.02, 0.98, 0},
		{0, 0.05, 0.95, 0},
	}
	res, err := c.Cluster(context.Background(), embeddings, 2)
	require.NoError(t, err)
	require.Len(t, res.Labels, 6)

	assert.Equal(t, res.Labels[0], res.Labels[1])
	assert.Equal(t, res.Labels[0], res.Labels[2])
	assert.Equal(t, res.Labels[3], res.Labels[4])
	assert.Equal(t, res.Labels[3], res.Labels[5])
	assert.NotEqual(t, res.Labels[0], res.Labels[3])
}

func TestClusterIsDeterministicAcrossRuns(t *testing.T) {
	c := Clusterer{}
	embeddings := [][]float32{
		{1, 0}, {0.9, 0.1}, {0, 1}, {0.1, 0.9}, {0.5, 0.5},
	}
	res1, err := c.Cluster(context.Background(), embeddings, 2)
	require.NoError(t, err)
	res2, err := c.Cluster(context.Background(), embeddings, 2)
	require.NoError(t, err)
	assert.Equal(t, res1.Labels, res2.Labels)
}

func TestClusterRelocatesFarPointToOutlier(t *testing.T) {
	c := Clusterer{OutlierCosineFloor: 0.9}
	embeddings := [][]float32{
		{1, 0, 0},
		{0.99, 0.01, 0},
		{0.98, 0.02, 0},
		{-1, 0, 0},
	}
	res, err := c.Cluster(context.Background(), embeddings, 1)
	require.NoError(t, err)
	assert.Equal(t, -1, res.Labels[3])
	assert.NotEqual(t, -1, res.Labels[0])
}

func TestClusterTargetExceedingDistinctPointsShrinksK(t *testing.T) {
	c := Clusterer{}
	embeddings := [][]float32{{1, 0}, {1, 0}, {1, 0}}
	res, err := c.Cluster(context.Background(), embeddings, 5)
	require.NoError(t, err)
	require.Len(t, res.Labels, 3)
	assert.Equal(t, res.Labels[0], res.Labels[1])
	assert.Equal(t, res.Labels[1], res.Labels[2])
}
