package ai

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bitop-dev/ai-sdk-go/internal/retry"
)

type StorageErrorMode int

const (
	// StorageLogWarning logs the failure and continues the call.
	StorageLogWarning StorageErrorMode = iota
	// StorageReturnError fails the call.
	StorageReturnError
	// StorageRetryThenLog retries transient failures with exponential
	// backoff, then logs and continues.
	StorageRetryThenLog
)

// StorageErrorBehavior decides what an Agent does when its Storage fails.
// The zero value logs a warning and continues.
type StorageErrorBehavior struct {
	Mode StorageErrorMode

	// Retry parameters, used by StorageRetryThenLog. MaxRetries nil means 3;
	// zero disables retries.
	MaxRetries   *int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

const defaultStorageRetries = 3

// RetryStorageErrors returns a StorageRetryThenLog behavior with 3 retries
// starting at 100ms, doubling up to 5s.
func RetryStorageErrors() StorageErrorBehavior {
	n := defaultStorageRetries
	return StorageErrorBehavior{
		Mode:         StorageRetryThenLog,
		MaxRetries:   &n,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2,
	}
}

func (b StorageErrorBehavior) policy() retry.Policy {
	d := RetryStorageErrors()
	p := retry.Policy{
		MaxRetries:   defaultStorageRetries,
		InitialDelay: b.InitialDelay,
		MaxDelay:     b.MaxDelay,
		Multiplier:   b.Multiplier,
	}
	if b.MaxRetries != nil {
		p.MaxRetries = *b.MaxRetries
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = d.InitialDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = d.MaxDelay
	}
	if p.Multiplier < 1 {
		p.Multiplier = d.Multiplier
	}
	return p
}

// StorageTelemetry observes storage operations. Every started operation
// ends with either a success or a final error event.
type StorageTelemetry interface {
	OnOperationStart(ctx context.Context, event StorageOperationEvent)
	OnOperationSuccess(ctx context.Context, event StorageOperationEvent)
	OnOperationError(ctx context.Context, event StorageOperationEvent)
}

type StorageOperationEvent struct {
	Operation  string
	ResourceID string

	// Attempt is the 1-indexed attempt that failed.
	Attempt int
	Err     error
	// Final marks the error that ends the operation.
	Final bool

	// Elapsed is set on success and final error events.
	Elapsed time.Duration
}

type StorageConfig struct {
	ErrorBehavior StorageErrorBehavior
	Logger        *slog.Logger
	Telemetry     StorageTelemetry
}

// storageGuard runs storage operations under a StorageConfig.
type storageGuard struct {
	cfg    StorageConfig
	logger *slog.Logger
}

func newStorageGuard(cfg StorageConfig, fallback *slog.Logger) storageGuard {
	logger := cfg.Logger
	if logger == nil {
		logger = fallback
	}
	return storageGuard{cfg: cfg, logger: orDiscard(logger)}
}

// do runs fn and applies the error behavior. ok is false when fn failed;
// err is only returned under StorageReturnError.
func (g storageGuard) do(ctx context.Context, op, resourceID string, fn func(ctx context.Context) error) (ok bool, err error) {
	tel := g.cfg.Telemetry
	ev := StorageOperationEvent{Operation: op, ResourceID: resourceID}
	if tel != nil {
		tel.OnOperationStart(ctx, ev)
	}
	start := time.Now()

	last := 0
	attempt := func(ctx context.Context, n int) (struct{}, error) {
		last = n
		return struct{}{}, fn(ctx)
	}

	b := g.cfg.ErrorBehavior
	if b.Mode == StorageRetryThenLog {
		notify := func(n int, err error, delay time.Duration) {
			g.logger.Debug("retrying storage operation", "op", op, "resource", resourceID, "attempt", n, "delay", delay, "error", err)
			if tel != nil {
				e := ev
				e.Attempt, e.Err = n, err
				tel.OnOperationError(ctx, e)
			}
		}
		_, err = retry.Do(ctx, b.policy(), isTransientStorage, notify, attempt)
	} else {
		_, err = attempt(ctx, 1)
	}

	ev.Elapsed = time.Since(start)
	if err == nil {
		if tel != nil {
			tel.OnOperationSuccess(ctx, ev)
		}
		return true, nil
	}
	if tel != nil {
		e := ev
		e.Attempt, e.Err, e.Final = last, err, true
		tel.OnOperationError(ctx, e)
	}
	if b.Mode == StorageReturnError {
		return false, err
	}
	g.logger.Warn("storage operation failed", "op", op, "resource", resourceID, "error", err)
	return false, nil
}

func isTransientStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se) && se.Transient()
}
