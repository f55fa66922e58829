package ai

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
)

// StreamResult is the handle returned by StreamText.
//
// Consume the parts with FullStream, TextStream or Reader. The accessors
// (Text, Steps, Err, ...) block until the stream is complete; when nothing
// consumes the stream they drain it themselves. Call Close to abandon a
// stream early.
type StreamResult struct {
	parts   <-chan StreamPart
	done    chan struct{}
	claimed atomic.Bool
	stop    func()
	req     StreamTextRequest

	mu         sync.Mutex
	steps      []StepResult
	finish     *StreamFinish
	err        error
	totalUsage Usage
}

// FullStream returns every part, including tool events and errors. It must
// be consumed by a single reader.
func (s *StreamResult) FullStream() <-chan StreamPart {
	s.claimed.Store(true)
	return s.parts
}

// TextStream yields only the text deltas.
func (s *StreamResult) TextStream() <-chan string {
	parts := s.FullStream()
	out := make(chan string)
	go func() {
		defer close(out)
		for p := range parts {
			if d, ok := p.(StreamTextDelta); ok {
				out <- d.Text
			}
		}
	}()
	return out
}

// Reader exposes the text deltas as an io.Reader. Read returns Err() once
// the stream fails.
func (s *StreamResult) Reader() io.Reader {
	return &textStreamReader{result: s, deltas: s.TextStream()}
}

type textStreamReader struct {
	result *StreamResult
	deltas <-chan string
	buf    []byte
	done   bool
}

func (r *textStreamReader) Read(p []byte) (int, error) {
	if r.done && len(r.buf) == 0 {
		return 0, io.EOF
	}
	for len(r.buf) == 0 {
		d, ok := <-r.deltas
		if ok {
			r.buf = []byte(d)
			continue
		}
		r.done = true
		if err := r.result.Err(); err != nil {
			return 0, err
		}
		return 0, io.EOF
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

// Close stops the stream and releases its goroutines.
func (s *StreamResult) Close() error {
	s.stop()
	s.wait()
	return nil
}

func (s *StreamResult) wait() {
	if s.claimed.CompareAndSwap(false, true) {
		go func() {
			for range s.parts {
			}
		}()
	}
	<-s.done
}

func (s *StreamResult) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// observe records state and runs callbacks for every part before handing it
// to the consumer.
func (s *StreamResult) observe(ctx context.Context, in <-chan StreamPart) <-chan StreamPart {
	out := make(chan StreamPart)
	go func() {
		defer close(s.done)
		defer close(out)
		for p := range in {
			s.record(p)
			select {
			case out <- p:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (s *StreamResult) record(p StreamPart) {
	if isChunk(p) && s.req.OnChunk != nil {
		s.req.OnChunk(ChunkEvent{Part: p})
	}
	switch v := p.(type) {
	case StreamError:
		if s.req.OnError != nil {
			s.req.OnError(ErrorEvent{Err: v.Err})
		}
	case StreamFinishStep:
		s.mu.Lock()
		s.steps = append(s.steps, v.Step)
		s.mu.Unlock()
		if s.req.OnStepFinish != nil {
			s.req.OnStepFinish(StepFinishEvent{Step: v.Step})
		}
	case StreamFinish:
		s.mu.Lock()
		f := v
		s.finish = &f
		s.totalUsage = v.TotalUsage
		steps := append([]StepResult(nil), s.steps...)
		s.mu.Unlock()
		if s.req.OnFinish != nil {
			res := newGenerateResult(steps)
			s.req.OnFinish(FinishEvent{Steps: steps, TotalUsage: v.TotalUsage, Result: res})
		}
	case StreamAbort:
		if s.req.OnAbort != nil {
			s.req.OnAbort(AbortEvent{Steps: v.Steps})
		}
	}
}

// Result waits for the stream and returns the same views GenerateText would.
func (s *StreamResult) Result() (*GenerateResult, error) {
	s.wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	res := newGenerateResult(append([]StepResult(nil), s.steps...))
	if s.finish != nil {
		res.FinishReason = s.finish.FinishReason
		res.TotalUsage = s.finish.TotalUsage
	}
	return res, s.err
}

func (s *StreamResult) Text() string {
	res, _ := s.Result()
	return res.Text
}

func (s *StreamResult) ReasoningText() string {
	res, _ := s.Result()
	return res.ReasoningText
}

func (s *StreamResult) FinishReason() FinishReason {
	res, _ := s.Result()
	return res.FinishReason
}

// Usage is the final step's usage.
func (s *StreamResult) Usage() Usage {
	res, _ := s.Result()
	return res.Usage
}

func (s *StreamResult) TotalUsage() Usage {
	res, _ := s.Result()
	return res.TotalUsage
}

func (s *StreamResult) Steps() []StepResult {
	res, _ := s.Result()
	return res.Steps
}

func (s *StreamResult) ToolCalls() []ToolCall {
	res, _ := s.Result()
	return res.ToolCalls
}

func (s *StreamResult) ToolResults() []ToolResult {
	res, _ := s.Result()
	return res.ToolResults
}

func (s *StreamResult) Response() ResponseMetadata {
	res, _ := s.Result()
	return res.Response
}

// Err reports the error that ended the stream, if any. Cancellation yields
// an error matching ErrAborted.
func (s *StreamResult) Err() error {
	_, err := s.Result()
	return err
}
