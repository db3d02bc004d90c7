package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLLM struct {
	calls int
}

func (r *recordingLLM) Chat(ctx context.Context, model, system, user string, temperature float64, jsonObject bool, maxTokens int) (string, error) {
	r.calls++
	return "reply", nil
}

func TestWithLLMSemaphoreForwardsCallsAndReleasesSlot(t *testing.T) {
	inner := &recordingLLM{}
	sem := NewLLMSemaphore(1)
	wrapped := WithLLMSemaphore(inner, sem)

	reply, err := wrapped.Chat(context.Background(), "model", "sys", "user", 0.2, true, 100)
	require.NoError(t, err)
	assert.Equal(t, "reply", reply)
	assert.Equal(t, 1, inner.calls)

	// The slot must have been released: a second call should not block.
	done := make(chan struct{})
	go func() {
		_, _ = wrapped.Chat(context.Background(), "model", "sys", "user", 0.2, true, 100)
		close(done)
	}()
	<-done
	assert.Equal(t, 2, inner.calls)
}
