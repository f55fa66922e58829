// Package stitch joins sources that are added over time into a single,
// strictly ordered channel.
package stitch

import "sync"

// Stream forwards the items of each added source, one source at a time, in
// the order the sources were added.
type Stream[T any] struct {
	mu         sync.Mutex
	queue      []<-chan T
	closed     bool
	terminated bool

	wake chan struct{}
	stop chan struct{}
	out  chan T
}

func New[T any]() *Stream[T] {
	s := &Stream[T]{
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
		out:  make(chan T),
	}
	go s.pump()
	return s
}

// Out is the consumer side. It is closed once every source is drained after
// Close, or right away after Terminate.
func (s *Stream[T]) Out() <-chan T { return s.out }

// Add enqueues src. It reports false (and does nothing) after Close or
// Terminate.
func (s *Stream[T]) Add(src <-chan T) bool {
	s.mu.Lock()
	if s.closed || s.terminated {
		s.mu.Unlock()
		return false
	}
	s.queue = append(s.queue, src)
	s.mu.Unlock()
	s.signal()
	return true
}

// Close marks the end of sources. Queued sources are still drained.
func (s *Stream[T]) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.signal()
}

// Terminate drops queued sources and stops forwarding immediately.
func (s *Stream[T]) Terminate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminated {
		return
	}
	s.terminated = true
	s.queue = nil
	close(s.stop)
}

func (s *Stream[T]) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Stream[T]) next() (<-chan T, bool) {
	for {
		s.mu.Lock()
		if s.terminated {
			s.mu.Unlock()
			return nil, false
		}
		if len(s.queue) > 0 {
			src := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return src, true
		}
		if s.closed {
			s.mu.Unlock()
			return nil, false
		}
		s.mu.Unlock()

		select {
		case <-s.wake:
		case <-s.stop:
		}
	}
}

func (s *Stream[T]) pump() {
	defer close(s.out)
	for {
		src, ok := s.next()
		if !ok {
			return
		}
		if !s.drain(src) {
			return
		}
	}
}

func (s *Stream[T]) drain(src <-chan T) bool {
	for {
		select {
		case v, ok := <-src:
			if !ok {
				return true
			}
			select {
			case s.out <- v:
			case <-s.stop:
				return false
			}
		case <-s.stop:
			return false
		}
	}
}
