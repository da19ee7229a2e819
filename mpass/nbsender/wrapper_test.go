package nbsender

import (
	"sync"
	"testing"
	"time"

	"github.com/qorix-group/lola-messaging/frame"
)

// recordingSender is a test-only mpass.Sender that always succeeds and
// records the order frames were delivered in.
type recordingSender struct {
	mu  sync.Mutex
	got []int64
}

func (s *recordingSender) TrySend(f *frame.Short) error {
	s.mu.Lock()
	s.got = append(s.got, int64(f.Payload))
	s.mu.Unlock()
	return nil
}

func (s *recordingSender) TrySendMedium(*frame.Medium) error { return nil }
func (s *recordingSender) HasNonBlockingGuarantee() bool     { return false }
func (s *recordingSender) Close() error                     { return nil }

func (s *recordingSender) snapshot() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, len(s.got))
	copy(out, s.got)
	return out
}

func TestWrapperFIFORoundTrip(t *testing.T) {
	inner := &recordingSender{}
	w := Wrap(inner, 10)
	defer w.Close()

	const n = 20
	for i := 0; i < n; i++ {
		if err := w.TrySend(&frame.Short{Kind: frame.NotifyUpdate, Payload: uint64(i)}); err != nil {
			t.Fatalf("TrySend(%d): %v", i, err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(inner.snapshot()) == n {
			break
		}
		time.Sleep(time.Millisecond)
	}

	got := inner.snapshot()
	if len(got) != n {
		t.Fatalf("delivered %d frames, want %d", len(got), n)
	}
	for i, v := range got {
		if v != int64(i) {
			t.Fatalf("out of FIFO order at %d: got %d", i, v)
		}
	}
}

func TestWrapperHasNonBlockingGuarantee(t *testing.T) {
	w := Wrap(&recordingSender{}, 1)
	defer w.Close()
	if !w.HasNonBlockingGuarantee() {
		t.Fatal("wrapper must always report a non-blocking guarantee")
	}
}

func TestWrapperRejectsWhenFull(t *testing.T) {
	blocking := make(chan struct{})
	inner := &blockingSender{release: blocking}
	w := Wrap(inner, 2)
	defer func() {
		close(blocking)
		w.Close()
	}()

	if err := w.TrySend(&frame.Short{}); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	// give the drain goroutine a chance to pick up the first item and block
	// on it mid-send (the item remains queued, occupying one slot, while
	// the drain task's call to the inner sender is outstanding).
	time.Sleep(20 * time.Millisecond)
	if err := w.TrySend(&frame.Short{}); err != nil {
		t.Fatalf("second enqueue (one slot still free): %v", err)
	}
	if err := w.TrySend(&frame.Short{}); err == nil {
		t.Fatal("expected ErrAgain once both queue slots are occupied")
	}
}

type blockingSender struct{ release chan struct{} }

func (s *blockingSender) TrySend(*frame.Short) error { <-s.release; return nil }
func (s *blockingSender) TrySendMedium(*frame.Medium) error { <-s.release; return nil }
func (s *blockingSender) HasNonBlockingGuarantee() bool     { return false }
func (s *blockingSender) Close() error                      { return nil }
