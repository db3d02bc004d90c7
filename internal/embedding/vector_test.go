package embedding

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestL2NormalizeUnitLength(t *testing.T) {
	v := l2Normalize([]float32{3, 4})
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sumSquares), 1e-6)
}

func TestL2NormalizeZeroVectorStaysZero(t *testing.T) {
	v := l2Normalize([]float32{0, 0, 0})
	assert.Equal(t, []float32{0, 0, 0}, v)
}

func TestNormalizedMeanPoolEmptyChunksYieldsZeroVector(t *testing.T) {
	v := normalizedMeanPool(nil, 4)
	assert.Equal(t, []float32{0, 0, 0, 0}, v)
}

func TestNormalizedMeanPoolAveragesNormalizedChunks(t *testing.T) {
	v := normalizedMeanPool([][]float32{{1, 0}, {0, 1}}, 2)
	// Both inputs are already unit vectors; their mean is (0.5, 0.5),
	// renormalized to (1/sqrt2, 1/sqrt2).
	assert.InDelta(t, 1/math.Sqrt2, float64(v[0]), 1e-6)
	assert.InDelta(t, 1/math.Sqrt2, float64(v[1]), 1e-6)
}

func TestCosineSimilarityOrthogonalIsZero(t *testing.T) {
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
}

func TestCosineSimilarityIdenticalIsOne(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-9)
}

func TestCosineSimilarityZeroVectorIsZero(t *testing.T) {
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}
