package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewEventPublisherNoBrokersReturnsNilDisabled(t *testing.T) {
	assert.Nil(t, NewEventPublisher(nil, "topic"))
	assert.Nil(t, NewEventPublisher([]string{"localhost:9092"}, ""))
}

func TestNilEventPublisherMethodsAreNoOps(t *testing.T) {
	var p *EventPublisher
	assert.NoError(t, p.Publish(context.Background(), StageEvent{Stage: "consolidation"}))
	assert.NoError(t, p.Close())
}
