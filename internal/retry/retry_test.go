package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bitop-dev/ai-sdk-go/provider"
)

var fast = Policy{InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

func TestDo_RetriesTransientUntilSuccess(t *testing.T) {
	p := fast
	p.MaxRetries = 2
	var attempts []int
	v, err := Do(context.Background(), p, nil, nil, func(ctx context.Context, attempt int) (string, error) {
		attempts = append(attempts, attempt)
		if attempt < 3 {
			return "", &provider.Error{Status: 503, Message: "unavailable"}
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if v != "ok" || len(attempts) != 3 || attempts[2] != 3 {
		t.Fatalf("v=%q attempts=%v", v, attempts)
	}
}

func TestDo_MaxRetriesExceeded(t *testing.T) {
	p := fast
	p.MaxRetries = 2
	calls := 0
	_, err := Do(context.Background(), p, nil, nil, func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 0, &provider.Error{Status: 429, Message: "slow down"}
	})
	var re *Error
	if !errors.As(err, &re) {
		t.Fatalf("err=%v", err)
	}
	if re.Reason != MaxRetriesExceeded || len(re.Errors) != 3 || calls != 3 {
		t.Fatalf("reason=%s errors=%d calls=%d", re.Reason, len(re.Errors), calls)
	}
}

func TestDo_ZeroRetriesMakesOneAttempt(t *testing.T) {
	calls := 0
	boom := &provider.Error{Status: 500, Message: "boom"}
	_, err := Do(context.Background(), fast, nil, nil, func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 0, boom
	})
	if calls != 1 {
		t.Fatalf("calls=%d", calls)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
}

func TestDo_NonRetryableBypassesRetry(t *testing.T) {
	p := fast
	p.MaxRetries = 5
	calls := 0
	bad := &provider.Error{Status: 400, Message: "bad request"}
	_, err := Do(context.Background(), p, nil, nil, func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 0, bad
	})
	if calls != 1 || err != bad {
		t.Fatalf("calls=%d err=%v", calls, err)
	}
}

func TestDo_NoAttemptAfterAbort(t *testing.T) {
	p := fast
	p.MaxRetries = 5
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Do(ctx, p, nil, nil, func(ctx context.Context, attempt int) (int, error) {
		calls++
		cancel()
		return 0, &provider.Error{Status: 503}
	})
	if calls != 1 {
		t.Fatalf("calls=%d", calls)
	}
	if !errors.Is(err, ErrAborted) || !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v", err)
	}
}

func TestDo_NotifyAndRetryAfter(t *testing.T) {
	p := fast
	p.MaxRetries = 1
	var delays []time.Duration
	_, _ = Do(context.Background(), p, nil, func(attempt int, err error, d time.Duration) {
		delays = append(delays, d)
	}, func(ctx context.Context, attempt int) (int, error) {
		return 0, &provider.Error{Status: 429, RetryAfter: 5 * time.Millisecond}
	})
	if len(delays) != 1 || delays[0] != 5*time.Millisecond {
		t.Fatalf("delays=%v", delays)
	}
}

func TestParseRetryAfter(t *testing.T) {
	if d, ok := ParseRetryAfter("3"); !ok || d != 3*time.Second {
		t.Fatalf("d=%v ok=%v", d, ok)
	}
	if _, ok := ParseRetryAfter("soon"); ok {
		t.Fatalf("expected parse failure")
	}
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{&provider.Error{Status: 500}, true},
		{&provider.Error{Status: 401}, false},
		{&provider.Error{Retryable: true}, true},
		{context.Canceled, false},
		{errors.New("plain"), false},
	}
	for _, c := range cases {
		if got := IsTransient(c.err); got != c.want {
			t.Fatalf("IsTransient(%v)=%v", c.err, got)
		}
	}
}
