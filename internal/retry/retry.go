package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bitop-dev/ai-sdk-go/provider"
	"github.com/cenkalti/backoff/v4"
)

// ErrAborted is reported when the context is done before or between attempts.
var ErrAborted = errors.New("aborted")

type Policy struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// RandomizationFactor spreads delays by +/- the given fraction.
	RandomizationFactor float64
}

func (p Policy) withDefaults() Policy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = 100 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 20 * time.Second
	}
	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = p.InitialDelay
	}
	if p.Multiplier < 1 {
		p.Multiplier = 2
	}
	return p
}

func (p Policy) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialDelay
	b.MaxInterval = p.MaxDelay
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = p.RandomizationFactor
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithMaxRetries(b, uint64(p.MaxRetries))
}

type Reason string

const (
	MaxRetriesExceeded Reason = "maxRetriesExceeded"
	NotRetryable       Reason = "errorNotRetryable"
)

// Error is returned once at least one retry happened and the operation still
// failed.
type Error struct {
	Reason Reason
	Errors []error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	last := e.Last()
	switch e.Reason {
	case MaxRetriesExceeded:
		return fmt.Sprintf("failed after %d attempts: %v", len(e.Errors), last)
	default:
		return fmt.Sprintf("failed after %d attempts with non-retryable error: %v", len(e.Errors), last)
	}
}

func (e *Error) Last() error {
	if e == nil || len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[len(e.Errors)-1]
}

func (e *Error) Unwrap() error { return e.Last() }

// Notify is called before sleeping ahead of a retry. attempt is the 1-indexed
// number of the attempt that failed.
type Notify func(attempt int, err error, delay time.Duration)

// Do calls fn until it succeeds, fails with a non-retryable error, or the
// policy runs out of retries. fn receives the 1-indexed attempt number.
//
// A failure on the first attempt that is not retryable is returned as is.
// Cancellation between attempts yields an error wrapping both ErrAborted and
// the context error.
func Do[T any](ctx context.Context, p Policy, retryable func(error) bool, notify Notify, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	p = p.withDefaults()
	if retryable == nil {
		retryable = IsTransient
	}
	b := p.newBackOff()

	var errs []error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, aborted(ctx)
		}

		v, err := fn(ctx, attempt)
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil && isContextErr(err) {
			return zero, aborted(ctx)
		}
		errs = append(errs, err)

		if !retryable(err) {
			if attempt == 1 {
				return zero, err
			}
			return zero, &Error{Reason: NotRetryable, Errors: errs}
		}

		delay := b.NextBackOff()
		if delay == backoff.Stop {
			if attempt == 1 {
				return zero, err
			}
			return zero, &Error{Reason: MaxRetriesExceeded, Errors: errs}
		}
		if ra, ok := RetryAfterHint(err); ok && ra > delay {
			delay = ra
		}
		if notify != nil {
			notify(attempt, err, delay)
		}
		if err := Sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		if ctx.Err() != nil {
			return aborted(ctx)
		}
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return aborted(ctx)
	case <-timer.C:
		return nil
	}
}

func aborted(ctx context.Context) error {
	return fmt.Errorf("%w: %w", ErrAborted, context.Cause(ctx))
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// IsTransient reports whether err looks like a network failure, a rate
// limit, or a server side error.
func IsTransient(err error) bool {
	if err == nil || isContextErr(err) {
		return false
	}
	var pe *provider.Error
	if errors.As(err, &pe) {
		return pe.Retryable || ShouldRetryStatus(pe.Status)
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	var oe *net.OpError
	return errors.As(err, &oe)
}

func ShouldRetryStatus(status int) bool {
	return status == http.StatusRequestTimeout ||
		status == http.StatusConflict ||
		status == http.StatusTooManyRequests ||
		(status >= 500 && status <= 599)
}

// RetryAfterHint extracts a server supplied delay from a provider error.
func RetryAfterHint(err error) (time.Duration, bool) {
	var pe *provider.Error
	if errors.As(err, &pe) && pe.RetryAfter > 0 {
		return pe.RetryAfter, true
	}
	return 0, false
}

// ParseRetryAfter parses a Retry-After header value (seconds or HTTP date).
// Model implementations use it to fill provider.Error.RetryAfter.
func ParseRetryAfter(v string) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(v); err == nil && n >= 0 {
		return time.Duration(n) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}
