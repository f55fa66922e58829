package stitch

import (
	"sync"
	"testing"
	"time"
)

func source(vals ...int) <-chan int {
	ch := make(chan int, len(vals))
	for _, v := range vals {
		ch <- v
	}
	close(ch)
	return ch
}

func collect(s *Stream[int]) []int {
	var out []int
	for v := range s.Out() {
		out = append(out, v)
	}
	return out
}

func TestStream_ConcatenatesInAddOrder(t *testing.T) {
	s := New[int]()
	s.Add(source(1, 2, 3))
	s.Add(source(4, 5))
	s.Close()

	got := collect(s)
	want := []int{1, 2, 3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("got=%v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got=%v", got)
		}
	}
}

func TestStream_SlowFirstSourceStillFirst(t *testing.T) {
	s := New[int]()
	slow := make(chan int)
	s.Add(slow)
	s.Add(source(3, 4))
	go func() {
		time.Sleep(10 * time.Millisecond)
		slow <- 1
		slow <- 2
		close(slow)
	}()
	s.Close()

	got := collect(s)
	if len(got) != 4 || got[0] != 1 || got[1] != 2 || got[2] != 3 || got[3] != 4 {
		t.Fatalf("got=%v", got)
	}
}

func TestStream_AddAfterCloseIsNoop(t *testing.T) {
	s := New[int]()
	s.Add(source(1))
	s.Close()
	if s.Add(source(2)) {
		t.Fatalf("Add after Close should report false")
	}
	got := collect(s)
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("got=%v", got)
	}
}

func TestStream_EmptyClose(t *testing.T) {
	s := New[int]()
	s.Close()
	if got := collect(s); len(got) != 0 {
		t.Fatalf("got=%v", got)
	}
}

func TestStream_TerminateCompletesImmediately(t *testing.T) {
	s := New[int]()
	blocked := make(chan int)
	s.Add(source(1))
	s.Add(blocked)

	if v := <-s.Out(); v != 1 {
		t.Fatalf("v=%d", v)
	}
	s.Terminate()

	select {
	case _, ok := <-s.Out():
		if ok {
			t.Fatalf("expected closed output")
		}
	case <-time.After(time.Second):
		t.Fatalf("output not closed after Terminate")
	}
	if s.Add(source(9)) {
		t.Fatalf("Add after Terminate should report false")
	}
}

func TestStream_ConcurrentAdds(t *testing.T) {
	s := New[int]()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Add(source(i, i))
		}(i)
	}
	go func() {
		wg.Wait()
		s.Close()
	}()

	got := collect(s)
	if len(got) != 40 {
		t.Fatalf("len=%d", len(got))
	}
	// Items from one source stay adjacent.
	for i := 0; i < len(got); i += 2 {
		if got[i] != got[i+1] {
			t.Fatalf("interleaved output: %v", got)
		}
	}
}
