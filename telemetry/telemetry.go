// Package telemetry provides ai.StorageTelemetry implementations.
//
// Events carry only operational metadata: operation names, session ids,
// attempt numbers and errors. Message content never reaches a hook.
package telemetry

import (
	"context"
	"log/slog"

	ai "github.com/bitop-dev/ai-sdk-go"
)

// Noop discards every event.
type Noop struct{}

func (Noop) OnOperationStart(context.Context, ai.StorageOperationEvent)   {}
func (Noop) OnOperationSuccess(context.Context, ai.StorageOperationEvent) {}
func (Noop) OnOperationError(context.Context, ai.StorageOperationEvent)   {}

// Logger writes events to a slog.Logger: starts and successes at debug,
// retried errors at info, final errors at warn.
type Logger struct {
	L *slog.Logger
}

func (l Logger) OnOperationStart(ctx context.Context, e ai.StorageOperationEvent) {
	l.L.DebugContext(ctx, "storage operation started", "op", e.Operation, "resource", e.ResourceID)
}

func (l Logger) OnOperationSuccess(ctx context.Context, e ai.StorageOperationEvent) {
	l.L.DebugContext(ctx, "storage operation succeeded", "op", e.Operation, "resource", e.ResourceID, "elapsed", e.Elapsed)
}

func (l Logger) OnOperationError(ctx context.Context, e ai.StorageOperationEvent) {
	level := slog.LevelInfo
	if e.Final {
		level = slog.LevelWarn
	}
	l.L.Log(ctx, level, "storage operation failed", "op", e.Operation, "resource", e.ResourceID, "attempt", e.Attempt, "final", e.Final, "error", e.Err)
}

// Multi fans events out to several hooks in order.
type Multi []ai.StorageTelemetry

func (m Multi) OnOperationStart(ctx context.Context, e ai.StorageOperationEvent) {
	for _, h := range m {
		h.OnOperationStart(ctx, e)
	}
}

func (m Multi) OnOperationSuccess(ctx context.Context, e ai.StorageOperationEvent) {
	for _, h := range m {
		h.OnOperationSuccess(ctx, e)
	}
}

func (m Multi) OnOperationError(ctx context.Context, e ai.StorageOperationEvent) {
	for _, h := range m {
		h.OnOperationError(ctx, e)
	}
}
