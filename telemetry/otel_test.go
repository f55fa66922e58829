package telemetry

import (
	"context"
	"errors"
	"testing"

	ai "github.com/bitop-dev/ai-sdk-go"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecorded() (*Tracer, *tracetest.SpanRecorder) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	return NewTracer(tp), sr
}

func TestTracer_Success(t *testing.T) {
	tr, sr := newRecorded()
	ctx := context.Background()
	ev := ai.StorageOperationEvent{Operation: "store_messages", ResourceID: "s1"}

	tr.OnOperationStart(ctx, ev)
	tr.OnOperationSuccess(ctx, ev)

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("spans=%d", len(spans))
	}
	if spans[0].Name() != "storage.store_messages" || spans[0].Status().Code != codes.Ok {
		t.Fatalf("name=%q status=%v", spans[0].Name(), spans[0].Status())
	}
}

func TestTracer_RetriedThenFailed(t *testing.T) {
	tr, sr := newRecorded()
	ctx := context.Background()
	ev := ai.StorageOperationEvent{Operation: "get_messages", ResourceID: "s1"}
	boom := errors.New("boom")

	tr.OnOperationStart(ctx, ev)
	for attempt := 1; attempt <= 2; attempt++ {
		e := ev
		e.Attempt, e.Err = attempt, boom
		tr.OnOperationError(ctx, e)
	}
	if n := len(sr.Ended()); n != 0 {
		t.Fatalf("ended before final error: %d", n)
	}
	final := ev
	final.Attempt, final.Err, final.Final = 3, boom, true
	tr.OnOperationError(ctx, final)

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("spans=%d", len(spans))
	}
	s := spans[0]
	if s.Status().Code != codes.Error {
		t.Fatalf("status=%v", s.Status())
	}
	// Two retry events plus the recorded error.
	if len(s.Events()) != 3 {
		t.Fatalf("events=%d", len(s.Events()))
	}
}

func TestTracer_UnmatchedEventsIgnored(t *testing.T) {
	tr, sr := newRecorded()
	ctx := context.Background()
	tr.OnOperationSuccess(ctx, ai.StorageOperationEvent{Operation: "x"})
	tr.OnOperationError(ctx, ai.StorageOperationEvent{Operation: "x", Final: true})
	if len(sr.Ended()) != 0 {
		t.Fatalf("unexpected spans")
	}
}

func TestMulti(t *testing.T) {
	tr1, sr1 := newRecorded()
	tr2, sr2 := newRecorded()
	m := Multi{tr1, Noop{}, tr2}
	ev := ai.StorageOperationEvent{Operation: "op", ResourceID: "r"}
	m.OnOperationStart(context.Background(), ev)
	m.OnOperationSuccess(context.Background(), ev)
	if len(sr1.Ended()) != 1 || len(sr2.Ended()) != 1 {
		t.Fatalf("fan out failed")
	}
}
