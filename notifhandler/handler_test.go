package notifhandler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/qorix-group/lola-messaging/cmn/workpool"
	"github.com/qorix-group/lola-messaging/frame"
	"github.com/qorix-group/lola-messaging/mpass"
	"github.com/qorix-group/lola-messaging/sendercache"
)

// fakeSender records every Short frame sent through it.
type fakeSender struct {
	mu  sync.Mutex
	got []frame.Short
}

func (f *fakeSender) TrySend(s *frame.Short) error {
	f.mu.Lock()
	f.got = append(f.got, *s)
	f.mu.Unlock()
	return nil
}
func (f *fakeSender) TrySendMedium(*frame.Medium) error { return nil }
func (f *fakeSender) HasNonBlockingGuarantee() bool     { return true }
func (f *fakeSender) Close() error                      { return nil }

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.got)
}

func (f *fakeSender) kinds() []frame.Kind {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]frame.Kind, len(f.got))
	for i, fr := range f.got {
		out[i] = fr.Kind
	}
	return out
}

func newTestHandler(t *testing.T) (*Handler, *sendercache.Cache, map[string]*fakeSender) {
	t.Helper()
	senders := make(map[string]*fakeSender)
	var mu sync.Mutex
	factory := func(endpoint string) (mpass.Sender, error) {
		mu.Lock()
		defer mu.Unlock()
		s := &fakeSender{}
		senders[endpoint] = s
		return s, nil
	}
	cache := sendercache.New(factory, false, 10, time.Millisecond, context.Background())
	pool := workpool.New(context.Background(), 4)
	h := New(Config{
		LocalPID: 4444,
		Cache:    cache,
		Pool:     pool,
	})
	return h, cache, senders
}

func alwaysUpgrade(fn func()) WeakHandler {
	return func() (ScopedCallback, bool) { return ScopedCallback(fn), true }
}

const EVENT = 1

func testElement() frame.ElementID {
	return frame.ElementID{ServiceID: 1, ElementID: 1, InstanceID: 1, ElementKind: EVENT}
}

func TestLocalSubscribeAndNotify(t *testing.T) {
	h, _, _ := newTestHandler(t)
	e := testElement()

	var calls int32
	var wg sync.WaitGroup
	wg.Add(1)
	_, err := h.RegisterEventNotification(mpass.PlaneQM, e, alwaysUpgrade(func() {
		calls++
		wg.Done()
	}), 4444)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	h.NotifyEvent(mpass.PlaneQM, e)

	waitOrTimeout(t, &wg, time.Second)
	if calls != 1 {
		t.Fatalf("handler invoked %d times, want 1", calls)
	}
}

func TestRemoteSubscribeRoundTrip(t *testing.T) {
	h, _, senders := newTestHandler(t)
	e := testElement()
	const remotePID mpass.PeerID = 5555

	h1, _ := h.RegisterEventNotification(mpass.PlaneQM, e, alwaysUpgrade(func() {}), remotePID)
	h2, _ := h.RegisterEventNotification(mpass.PlaneQM, e, alwaysUpgrade(func() {}), remotePID)

	s := senders["/LoLa_5555_QM"]
	if s == nil || s.count() != 1 {
		t.Fatalf("expected exactly one RegisterNotifier, got sender=%v", s)
	}
	if s.kinds()[0] != frame.RegisterNotifier {
		t.Fatalf("expected RegisterNotifier, got %v", s.kinds())
	}

	h.UnregisterEventNotification(mpass.PlaneQM, e, h1, remotePID)
	if s.count() != 1 {
		t.Fatalf("unregistering first of two refs must not transmit, got %d frames", s.count())
	}

	h.UnregisterEventNotification(mpass.PlaneQM, e, h2, remotePID)
	if s.count() != 2 || s.kinds()[1] != frame.UnregisterNotifier {
		t.Fatalf("expected exactly one UnregisterNotifier after last ref drops, got %v", s.kinds())
	}
}

func TestMigrationWithoutUnregister(t *testing.T) {
	h, _, senders := newTestHandler(t)
	e := testElement()
	const oldPeer, newPeer mpass.PeerID = 5555, 666

	if _, err := h.RegisterEventNotification(mpass.PlaneQM, e, alwaysUpgrade(func() {}), oldPeer); err != nil {
		t.Fatal(err)
	}
	h.ReregisterEventNotification(mpass.PlaneQM, e, newPeer)

	oldSender := senders["/LoLa_5555_QM"]
	newSender := senders["/LoLa_666_QM"]
	if newSender == nil || newSender.count() != 1 || newSender.kinds()[0] != frame.RegisterNotifier {
		t.Fatalf("expected exactly one RegisterNotifier to the new peer, got %v", newSender)
	}
	for _, fr := range oldSender.got {
		if fr.Kind == frame.UnregisterNotifier {
			t.Fatal("migration must never send UnregisterNotifier to the old peer")
		}
	}
}

func TestInboundNotifyUpdate(t *testing.T) {
	h, _, senders := newTestHandler(t)
	e := testElement()
	const remotePID mpass.PeerID = 5555

	h.HandleInboundShort(mpass.PlaneQM, frame.Short{Kind: frame.RegisterNotifier, SenderPID: int32(remotePID), Payload: e.Pack()})
	h.NotifyEvent(mpass.PlaneQM, e)

	s := senders["/LoLa_5555_QM"]
	if s == nil || s.count() != 1 || s.kinds()[0] != frame.NotifyUpdate {
		t.Fatalf("expected exactly one NotifyUpdate to the remote subscriber, got %v", s)
	}
}

func TestOutdatedPeerPurge(t *testing.T) {
	h, cache, senders := newTestHandler(t)
	e := testElement()
	const peer mpass.PeerID = 5555

	h.HandleInboundShort(mpass.PlaneQM, frame.Short{Kind: frame.RegisterNotifier, SenderPID: int32(peer), Payload: e.Pack()})
	firstSender := cache.GetOrCreate(mpass.PlaneQM, peer)

	h.HandleInboundShort(mpass.PlaneQM, frame.Short{Kind: frame.OutdatedPeer, Payload: frame.OutdatedPeerPayload(int32(peer))})

	h.NotifyEvent(mpass.PlaneQM, e)
	if s := senders["/LoLa_5555_QM"]; s != nil && s.count() != 0 {
		t.Fatalf("expected zero transmissions to a purged peer, got %d", s.count())
	}

	secondSender := cache.GetOrCreate(mpass.PlaneQM, peer)
	if firstSender == secondSender {
		t.Fatal("a fresh GetOrCreate after OutdatedPeer must construct a new sender")
	}
}

func TestBoundedLocalFanout(t *testing.T) {
	h, _, _ := newTestHandler(t)
	e := testElement()

	const n = 8 // > maxLocalHandlers
	var calls int32
	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(maxLocalHandlers)
	for i := 0; i < n; i++ {
		_, err := h.RegisterEventNotification(mpass.PlaneQM, e, alwaysUpgrade(func() {
			mu.Lock()
			calls++
			c := calls
			mu.Unlock()
			if c <= maxLocalHandlers {
				wg.Done()
			}
		}), 4444)
		if err != nil {
			t.Fatal(err)
		}
	}

	h.NotifyEvent(mpass.PlaneQM, e)
	waitOrTimeout(t, &wg, time.Second)

	time.Sleep(50 * time.Millisecond) // let any over-invocation surface
	mu.Lock()
	defer mu.Unlock()
	if calls != maxLocalHandlers {
		t.Fatalf("invoked %d handlers, want exactly %d (bounded fan-out)", calls, maxLocalHandlers)
	}
}

func TestHandleOrderingPreserved(t *testing.T) {
	h, _, _ := newTestHandler(t)
	e := testElement()

	var handles []RegHandle
	for i := 0; i < 5; i++ {
		handle, err := h.RegisterEventNotification(mpass.PlaneQM, e, alwaysUpgrade(func() {}), 4444)
		if err != nil {
			t.Fatal(err)
		}
		handles = append(handles, handle)
	}
	for i := 1; i < len(handles); i++ {
		if handles[i] <= handles[i-1] {
			t.Fatalf("handles not monotonically increasing: %v", handles)
		}
	}

	cb := h.block(mpass.PlaneQM)
	if !cb.removeLocalHandler(e, handles[2]) {
		t.Fatal("expected to find and remove handle in the middle of the list")
	}
	list := cb.localHandlers[e.Pack()]
	for i := 1; i < len(list); i++ {
		if list[i].handle <= list[i-1].handle {
			t.Fatalf("removal disturbed survivor order: %v", list)
		}
	}
}

func waitOrTimeout(t *testing.T, wg *sync.WaitGroup, d time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatal("timed out waiting for expected callback invocation(s)")
	}
}
