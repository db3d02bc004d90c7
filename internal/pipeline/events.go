package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// StageEvent is one stage-boundary notification. run-all publishes one
// with Stage "extract" for each conversation whose atoms it wrote.
type StageEvent struct {
	Stage          string `json:"stage"`
	ConversationID string `json:"conversation_id,omitempty"`
	Detail         string `json:"detail,omitempty"`
}

// EventPublisher emits stage-boundary events onto a Kafka topic, grounded
// on the teacher's internal/orchestrator/kafka.go producer usage
// (simplified to a fire-and-forget publisher; this pipeline has no
// consumer side). A nil *EventPublisher is safe to call on.
type EventPublisher struct {
	writer *kafka.Writer
}

// NewEventPublisher builds a publisher for topic over brokers. Pass no
// brokers to get a nil *EventPublisher (event publishing disabled).
func NewEventPublisher(brokers []string, topic string) *EventPublisher {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	return &EventPublisher{writer: &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}}
}

// Publish writes one stage event. Errors are returned rather than
// swallowed, since a caller that explicitly configured Kafka likely wants
// to know publishing is broken; callers that want best-effort semantics
// can log and continue.
func (p *EventPublisher) Publish(ctx context.Context, event StageEvent) error {
	if p == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal stage event: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Stage),
		Value: payload,
	})
}

// Close flushes and closes the underlying writer. Safe to call on a nil
// *EventPublisher.
func (p *EventPublisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
