package ingestsource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ckexporter/internal/config"
)

func TestNewS3SourceRequiresBucket(t *testing.T) {
	_, err := NewS3Source(context.Background(), config.S3Config{})
	require.Error(t, err)
}

func TestSplitStemExt(t *testing.T) {
	stem, ext := splitStemExt("exports/2026-07/conversation-1.json")
	assert.Equal(t, "conversation-1", stem)
	assert.Equal(t, ".json", ext)
}

func TestSplitStemExtNoExtension(t *testing.T) {
	stem, ext := splitStemExt("exports/readme")
	assert.Equal(t, "readme", stem)
	assert.Equal(t, "", ext)
}
