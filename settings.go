package ai

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/bitop-dev/ai-sdk-go/internal/retry"
)

// CallSettings are the model settings shared by every generation call.
// Cancellation is carried by the context passed to the call.
type CallSettings struct {
	MaxOutputTokens  *int
	Temperature      *float64
	TopP             *float64
	TopK             *int
	PresencePenalty  *float64
	FrequencyPenalty *float64
	StopSequences    []string
	Seed             *int

	// MaxRetries defaults to 2. Zero disables retries.
	MaxRetries *int
	Headers    map[string]string
}

// PreparedCallSettings are validated settings without retry and header
// configuration.
type PreparedCallSettings struct {
	MaxOutputTokens  *int
	Temperature      *float64
	TopP             *float64
	TopK             *int
	PresencePenalty  *float64
	FrequencyPenalty *float64
	StopSequences    []string
	Seed             *int
}

func PrepareCallSettings(s CallSettings) (PreparedCallSettings, error) {
	if s.MaxOutputTokens != nil && *s.MaxOutputTokens < 1 {
		return PreparedCallSettings{}, &InvalidArgumentError{
			Parameter: "maxOutputTokens",
			Value:     *s.MaxOutputTokens,
			Reason:    "must be >= 1",
		}
	}
	finite := []struct {
		name string
		v    *float64
	}{
		{"temperature", s.Temperature},
		{"topP", s.TopP},
		{"presencePenalty", s.PresencePenalty},
		{"frequencyPenalty", s.FrequencyPenalty},
	}
	for _, f := range finite {
		if f.v != nil && (math.IsNaN(*f.v) || math.IsInf(*f.v, 0)) {
			return PreparedCallSettings{}, &InvalidArgumentError{
				Parameter: f.name,
				Value:     *f.v,
				Reason:    "must be a finite number",
			}
		}
	}
	return PreparedCallSettings{
		MaxOutputTokens:  s.MaxOutputTokens,
		Temperature:      s.Temperature,
		TopP:             s.TopP,
		TopK:             s.TopK,
		PresencePenalty:  s.PresencePenalty,
		FrequencyPenalty: s.FrequencyPenalty,
		StopSequences:    s.StopSequences,
		Seed:             s.Seed,
	}, nil
}

const defaultMaxRetries = 2

// retryInitialDelay is a variable so tests can shorten it.
var retryInitialDelay = 2 * time.Second

// Retrier runs model calls with exponential backoff on transient errors.
type Retrier struct {
	policy retry.Policy
	logger *slog.Logger
}

// PrepareRetries validates maxRetries (nil means 2) and returns a Retrier.
func PrepareRetries(maxRetries *int, logger *slog.Logger) (*Retrier, error) {
	n := defaultMaxRetries
	if maxRetries != nil {
		n = *maxRetries
	}
	if n < 0 {
		return nil, &InvalidArgumentError{Parameter: "maxRetries", Value: n, Reason: "must be >= 0"}
	}
	return &Retrier{
		policy: retry.Policy{
			MaxRetries:          n,
			InitialDelay:        retryInitialDelay,
			Multiplier:          2,
			RandomizationFactor: 0.1,
		},
		logger: orDiscard(logger),
	}, nil
}

func (r *Retrier) MaxRetries() int { return r.policy.MaxRetries }

// Do runs fn until it succeeds or retrying stops. Errors are mapped into the
// SDK taxonomy.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := retryCall(ctx, r, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func retryCall[T any](ctx context.Context, r *Retrier, fn func(ctx context.Context) (T, error)) (T, error) {
	v, err := retry.Do(ctx, r.policy, retry.IsTransient,
		func(attempt int, err error, delay time.Duration) {
			r.logger.Debug("retrying model call", "attempt", attempt, "delay", delay, "error", err)
		},
		func(ctx context.Context, _ int) (T, error) {
			return fn(ctx)
		})
	if err != nil {
		return v, mapModelError(err)
	}
	return v, nil
}

func orDiscard(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

func applyTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
