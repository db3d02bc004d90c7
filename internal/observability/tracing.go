package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// InitTracing installs a process-wide TracerProvider. With no OTLP
// collector configured, spans are still created and carry context values
// across goroutine boundaries; they are simply never exported anywhere.
// Returns a shutdown func.
func InitTracing(serviceName string) func(context.Context) error {
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	return tp.Shutdown
}

// Tracer is the package-wide tracer used to annotate pipeline stages.
func Tracer() trace.Tracer {
	return otel.Tracer("ckexporter")
}

// StartSpan starts a span carrying the conversation/chunk/step tracing
// metadata spec §9 requires to cross goroutine boundaries via context
// values rather than a mutable thread-local.
func StartSpan(ctx context.Context, name string, conversationID string, chunkIndex int, step string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("step", step),
	}
	if conversationID != "" {
		attrs = append(attrs, attribute.String("conversation_id", conversationID))
	}
	if chunkIndex >= 0 {
		attrs = append(attrs, attribute.Int("chunk_index", chunkIndex))
	}
	return Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// WithConversation attaches conversation_id to the context's active span,
// if any is recording.
func WithConversation(ctx context.Context, conversationID string) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(attribute.String("conversation_id", conversationID))
	}
}
