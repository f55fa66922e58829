package ai

import (
	"context"
	"strings"
	"time"
)

type TransformOptions struct {
	Tools ToolSet
	// StopStream ends the whole pipeline. The driver stops without emitting
	// StreamAbort or StreamFinish.
	StopStream func()
}

// StreamTransform rewrites the part stream. Implementations must close the
// returned channel once in is closed or ctx is done.
type StreamTransform func(ctx context.Context, in <-chan StreamPart, opts TransformOptions) <-chan StreamPart

func sendPart(ctx context.Context, out chan<- StreamPart, p StreamPart) bool {
	select {
	case out <- p:
		return true
	case <-ctx.Done():
		return false
	}
}

// FilterTransform drops parts for which keep returns false.
func FilterTransform(keep func(StreamPart) bool) StreamTransform {
	return func(ctx context.Context, in <-chan StreamPart, _ TransformOptions) <-chan StreamPart {
		out := make(chan StreamPart)
		go func() {
			defer close(out)
			for p := range in {
				if keep(p) && !sendPart(ctx, out, p) {
					return
				}
			}
		}()
		return out
	}
}

// MapTransform replaces each part with fn(part). A nil result drops the part.
func MapTransform(fn func(StreamPart) StreamPart) StreamTransform {
	return func(ctx context.Context, in <-chan StreamPart, _ TransformOptions) <-chan StreamPart {
		out := make(chan StreamPart)
		go func() {
			defer close(out)
			for p := range in {
				q := fn(p)
				if q == nil {
					continue
				}
				if !sendPart(ctx, out, q) {
					return
				}
			}
		}()
		return out
	}
}

// ThrottleTransform waits delay before forwarding each part.
func ThrottleTransform(delay time.Duration) StreamTransform {
	return func(ctx context.Context, in <-chan StreamPart, _ TransformOptions) <-chan StreamPart {
		out := make(chan StreamPart)
		go func() {
			defer close(out)
			for p := range in {
				select {
				case <-time.After(delay):
				case <-ctx.Done():
					return
				}
				if !sendPart(ctx, out, p) {
					return
				}
			}
		}()
		return out
	}
}

// BatchTextTransform merges consecutive text deltas of the same text block.
// A batch is flushed once it holds maxSize bytes or is older than maxDelay,
// before any other part, and at the end of the stream. The flushed delta
// carries the provider metadata of the last delta in the batch.
func BatchTextTransform(maxSize int, maxDelay time.Duration) StreamTransform {
	return func(ctx context.Context, in <-chan StreamPart, _ TransformOptions) <-chan StreamPart {
		out := make(chan StreamPart)
		go func() {
			defer close(out)

			var (
				buf     strings.Builder
				id      string
				md      ProviderMetadata
				started time.Time
			)
			flush := func() bool {
				if buf.Len() == 0 {
					return true
				}
				p := StreamTextDelta{ID: id, Text: buf.String(), ProviderMetadata: md}
				buf.Reset()
				md = nil
				return sendPart(ctx, out, p)
			}

			for p := range in {
				d, ok := p.(StreamTextDelta)
				if !ok {
					if !flush() || !sendPart(ctx, out, p) {
						return
					}
					continue
				}
				if buf.Len() > 0 && d.ID != id {
					if !flush() {
						return
					}
				}
				if buf.Len() == 0 {
					id = d.ID
					started = time.Now()
				}
				buf.WriteString(d.Text)
				if d.ProviderMetadata != nil {
					md = d.ProviderMetadata
				}
				if (maxSize > 0 && buf.Len() >= maxSize) || time.Since(started) >= maxDelay {
					if !flush() {
						return
					}
				}
			}
			flush()
		}()
		return out
	}
}
