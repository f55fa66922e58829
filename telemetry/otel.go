package telemetry

import (
	"context"
	"sync"

	ai "github.com/bitop-dev/ai-sdk-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/bitop-dev/ai-sdk-go/telemetry"

// Tracer records each storage operation as a span named "storage.<op>".
// Retried attempts become span events; the span ends on success or on the
// final error.
//
// The span is parented on the context passed to OnOperationStart, but the
// hooks cannot hand a context back, so work inside the storage call does not
// see the span as its parent.
type Tracer struct {
	tracer trace.Tracer

	mu    sync.Mutex
	spans map[spanKey][]trace.Span
}

type spanKey struct{ op, resource string }

// NewTracer uses tp, or the global provider when tp is nil.
func NewTracer(tp trace.TracerProvider) *Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Tracer{
		tracer: tp.Tracer(instrumentationName),
		spans:  map[spanKey][]trace.Span{},
	}
}

func (t *Tracer) OnOperationStart(ctx context.Context, e ai.StorageOperationEvent) {
	_, span := t.tracer.Start(ctx, "storage."+e.Operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("ai.storage.operation", e.Operation),
			attribute.String("ai.storage.resource_id", e.ResourceID),
		))
	k := spanKey{e.Operation, e.ResourceID}
	t.mu.Lock()
	t.spans[k] = append(t.spans[k], span)
	t.mu.Unlock()
}

func (t *Tracer) OnOperationSuccess(ctx context.Context, e ai.StorageOperationEvent) {
	span := t.pop(e)
	if span == nil {
		return
	}
	span.SetAttributes(attribute.Int64("ai.storage.elapsed_ms", e.Elapsed.Milliseconds()))
	span.SetStatus(codes.Ok, "")
	span.End()
}

func (t *Tracer) OnOperationError(ctx context.Context, e ai.StorageOperationEvent) {
	if !e.Final {
		if span := t.peek(e); span != nil {
			span.AddEvent("attempt failed", trace.WithAttributes(
				attribute.Int("ai.storage.attempt", e.Attempt),
				attribute.String("error", errString(e.Err)),
			))
		}
		return
	}
	span := t.pop(e)
	if span == nil {
		return
	}
	span.SetAttributes(
		attribute.Int("ai.storage.attempts", e.Attempt),
		attribute.Int64("ai.storage.elapsed_ms", e.Elapsed.Milliseconds()),
	)
	if e.Err != nil {
		span.RecordError(e.Err)
	}
	span.SetStatus(codes.Error, errString(e.Err))
	span.End()
}

func (t *Tracer) peek(e ai.StorageOperationEvent) trace.Span {
	t.mu.Lock()
	defer t.mu.Unlock()
	stack := t.spans[spanKey{e.Operation, e.ResourceID}]
	if len(stack) == 0 {
		return nil
	}
	return stack[len(stack)-1]
}

func (t *Tracer) pop(e ai.StorageOperationEvent) trace.Span {
	k := spanKey{e.Operation, e.ResourceID}
	t.mu.Lock()
	defer t.mu.Unlock()
	stack := t.spans[k]
	if len(stack) == 0 {
		return nil
	}
	span := stack[len(stack)-1]
	if len(stack) == 1 {
		delete(t.spans, k)
	} else {
		t.spans[k] = stack[:len(stack)-1]
	}
	return span
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
