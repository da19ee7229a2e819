package notifhandler

import (
	"sort"
	"sync"

	"github.com/qorix-group/lola-messaging/cmn/atomic"
	"github.com/qorix-group/lola-messaging/frame"
	"github.com/qorix-group/lola-messaging/mpass"
)

// localEntry is one local subscriber: a weak callback reference plus the
// handle it was registered under. Lists are kept sorted by handle
// (insertion order already guarantees this, since handles are monotonic).
type localEntry struct {
	handle RegHandle
	weak   WeakHandler
}

// regCount is the per-remotely-provided-element upstream registration
// state: the single peer currently registered with, and how many local
// registrations are multiplexed onto that one upstream RegisterNotifier.
type regCount struct {
	peer     mpass.PeerID
	refcount uint16
}

// controlBlock aggregates the three registries and their locks for one
// integrity plane, per the "per-plane control block" design note: Handler's
// methods are plane-agnostic code parameterized by a *controlBlock chosen
// once at the entry point.
type controlBlock struct {
	handlersMu sync.RWMutex
	localHandlers map[uint64][]localEntry // keyed by ElementID.Pack()

	subsMu            sync.RWMutex
	remoteSubscribers map[uint64]map[mpass.PeerID]struct{}

	regMu           sync.RWMutex
	remoteRegCounts map[uint64]regCount

	nextHandle atomic.Uint64
}

func newControlBlock() *controlBlock {
	return &controlBlock{
		localHandlers:     make(map[uint64][]localEntry),
		remoteSubscribers: make(map[uint64]map[mpass.PeerID]struct{}),
		remoteRegCounts:   make(map[uint64]regCount),
	}
}

// addLocalHandler inserts a new local handler for elementID and returns its
// freshly minted handle. Invariant #4: unique within the plane's lifetime
// (a monotonic atomic counter). Invariant #5 (handles monotonically
// increasing per element, insertion order preserved) follows because every
// insertion appends under the write lock.
func (cb *controlBlock) addLocalHandler(elementID frame.ElementID, weak WeakHandler) RegHandle {
	handle := RegHandle(cb.nextHandle.Inc())
	key := elementID.Pack()

	cb.handlersMu.Lock()
	cb.localHandlers[key] = append(cb.localHandlers[key], localEntry{handle: handle, weak: weak})
	cb.handlersMu.Unlock()

	return handle
}

// removeLocalHandler removes the handler registered under handle from
// elementID's list via binary search (the list is handle-sorted by
// construction). Reports whether an entry was found and removed.
func (cb *controlBlock) removeLocalHandler(elementID frame.ElementID, handle RegHandle) bool {
	key := elementID.Pack()

	cb.handlersMu.Lock()
	defer cb.handlersMu.Unlock()

	list := cb.localHandlers[key]
	idx := sort.Search(len(list), func(i int) bool { return list[i].handle >= handle })
	if idx >= len(list) || list[idx].handle != handle {
		return false
	}
	cb.localHandlers[key] = append(list[:idx], list[idx+1:]...)
	return true
}

// snapshotLocalHandlers copies up to maxLocalHandlers weak references for
// elementID under the read lock, reporting the list's true length so the
// caller can log a capacity warning when it is truncated.
func (cb *controlBlock) snapshotLocalHandlers(elementID frame.ElementID) (handlers []WeakHandler, total int) {
	key := elementID.Pack()

	cb.handlersMu.RLock()
	defer cb.handlersMu.RUnlock()

	list := cb.localHandlers[key]
	total = len(list)
	n := total
	if n > maxLocalHandlers {
		n = maxLocalHandlers
	}
	handlers = make([]WeakHandler, n)
	for i := 0; i < n; i++ {
		handlers[i] = list[i].weak
	}
	return handlers, total
}

// addRemoteSubscriber inserts peerID into elementID's subscriber set.
// Reports whether the peer was already present (a redundant registration).
func (cb *controlBlock) addRemoteSubscriber(elementID frame.ElementID, peerID mpass.PeerID) (alreadyPresent bool) {
	key := elementID.Pack()

	cb.subsMu.Lock()
	defer cb.subsMu.Unlock()

	set, ok := cb.remoteSubscribers[key]
	if !ok {
		set = make(map[mpass.PeerID]struct{})
		cb.remoteSubscribers[key] = set
	}
	_, alreadyPresent = set[peerID]
	set[peerID] = struct{}{}
	return alreadyPresent
}

// removeRemoteSubscriber erases peerID from elementID's subscriber set.
// Reports whether it was present.
func (cb *controlBlock) removeRemoteSubscriber(elementID frame.ElementID, peerID mpass.PeerID) (wasPresent bool) {
	key := elementID.Pack()

	cb.subsMu.Lock()
	defer cb.subsMu.Unlock()

	set, ok := cb.remoteSubscribers[key]
	if !ok {
		return false
	}
	_, wasPresent = set[peerID]
	delete(set, peerID)
	return wasPresent
}

// snapshotSubscribersBatch copies up to remoteFanoutBatch peer ids with
// value >= startPID from elementID's subscriber set, in ascending order,
// reporting whether more remain beyond the last copied id.
func (cb *controlBlock) snapshotSubscribersBatch(elementID frame.ElementID, startPID mpass.PeerID) (batch []mpass.PeerID, more bool) {
	key := elementID.Pack()

	cb.subsMu.RLock()
	defer cb.subsMu.RUnlock()

	set, ok := cb.remoteSubscribers[key]
	if !ok || len(set) == 0 {
		return nil, false
	}

	all := make([]mpass.PeerID, 0, len(set))
	for p := range set {
		if p >= startPID {
			all = append(all, p)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })

	if len(all) > remoteFanoutBatch {
		return all[:remoteFanoutBatch], true
	}
	return all, false
}

// localHandlerElemCount reports the number of elements with at least one
// local handler registered. Observability only.
func (cb *controlBlock) localHandlerElemCount() int {
	cb.handlersMu.RLock()
	defer cb.handlersMu.RUnlock()
	n := 0
	for _, list := range cb.localHandlers {
		if len(list) > 0 {
			n++
		}
	}
	return n
}

// remoteSubscriberElemCount reports the number of elements with a non-empty
// remote-subscriber set. Observability only.
func (cb *controlBlock) remoteSubscriberElemCount() int {
	cb.subsMu.RLock()
	defer cb.subsMu.RUnlock()
	n := 0
	for _, set := range cb.remoteSubscribers {
		if len(set) > 0 {
			n++
		}
	}
	return n
}

// remoteRegElemCount reports the number of elements with a live upstream
// registration. Observability only.
func (cb *controlBlock) remoteRegElemCount() int {
	cb.regMu.RLock()
	defer cb.regMu.RUnlock()
	return len(cb.remoteRegCounts)
}

// purgeOutdatedPeer erases outdatedPeer from every element's subscriber
// set, returning the total number of removals.
func (cb *controlBlock) purgeOutdatedPeer(outdatedPeer mpass.PeerID) (removed int) {
	cb.subsMu.Lock()
	defer cb.subsMu.Unlock()

	for _, set := range cb.remoteSubscribers {
		if _, ok := set[outdatedPeer]; ok {
			delete(set, outdatedPeer)
			removed++
		}
	}
	return removed
}
