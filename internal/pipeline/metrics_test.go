package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStageMetricsEmptyDSNReturnsNilDisabled(t *testing.T) {
	m, err := OpenStageMetrics(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestNilStageMetricsMethodsAreNoOps(t *testing.T) {
	var m *StageMetrics
	m.RecordStage(context.Background(), "extract", "conv-1", time.Second)
	assert.NoError(t, m.Close())
}
