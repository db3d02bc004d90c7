package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRawEmbedder returns a deterministic two-dimension vector per input
// (its length, then 1) and counts calls so tests can assert the
// cache actually avoids re-embedding.
type fakeRawEmbedder struct {
	calls int
}

func (f *fakeRawEmbedder) EmbedBatch(ctx context.Context, model string, texts []string) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

func TestEmbedReturnsUnitVectors(t *testing.T) {
	raw := &fakeRawEmbedder{}
	svc := &Service{Raw: raw, Model: "test-model", Dims: 2}

	vecs, err := svc.Embed(context.Background(), []string{"abc", "de"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	for _, v := range vecs {
		var sumSquares float64
		for _, x := range v {
			sumSquares += float64(x) * float64(x)
		}
		assert.InDelta(t, 1.0, sumSquares, 1e-5)
	}
}

func TestEmbedCachesByContent(t *testing.T) {
	raw := &fakeRawEmbedder{}
	dir := t.TempDir()
	svc := &Service{Raw: raw, Model: "test-model", Dims: 2}

	_, err := svc.embedWithCache(context.Background(), dir, []string{"same text", "same text"})
	require.NoError(t, err)
	assert.Equal(t, 1, raw.calls)

	_, err = svc.embedWithCache(context.Background(), dir, []string{"same text"})
	require.NoError(t, err)
	assert.Equal(t, 1, raw.calls, "second call should hit the file cache, not re-embed")
}

func TestEmbedPooledHandlesEmptyText(t *testing.T) {
	raw := &fakeRawEmbedder{}
	svc := &Service{Raw: raw, Model: "test-model", Dims: 2}

	vecs, err := svc.EmbedPooled(context.Background(), []string{"   ", "real content here"}, 50, 5, "mean", "")
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float32{0, 0}, vecs[0])
}

func TestEmbedPooledPreservesRowOrder(t *testing.T) {
	raw := &fakeRawEmbedder{}
	svc := &Service{Raw: raw, Model: "test-model", Dims: 2}

	vecs, err := svc.EmbedPooled(context.Background(), []string{"first text", "second text"}, 50, 5, "mean", "")
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	for _, v := range vecs {
		assert.NotEqual(t, []float32{0, 0}, v)
	}
}
