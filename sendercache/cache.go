// Package sendercache implements the per-plane peer-id -> sender cache: lazy
// construction, pid-keyed reuse, and asymmetric non-blocking-wrap insertion
// when the local plane demands a hard non-blocking guarantee a raw
// transport sender cannot itself provide.
//
// Grounded on the teacher's transport/bundle.bundle per-peer cache idiom
// (lazy get()-or-construct, explicit evict-on-notice, no implicit resync)
// adapted from Smap-membership-driven rebuild to the control plane's
// OutdatedPeer-notice-driven eviction.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package sendercache

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/qorix-group/lola-messaging/cmn/debug"
	"github.com/qorix-group/lola-messaging/cmn/nlog"
	"github.com/qorix-group/lola-messaging/mpass"
	"github.com/qorix-group/lola-messaging/mpass/nbsender"
)

// Cache holds one peer-id -> sender map per plane, each guarded by its own
// mutex (never a single shared lock across planes).
type Cache struct {
	localPlane mpass.Plane
	// wrapCapable is true when the local process runs at ASIL-B integrity:
	// the use policy of spec §4.4 only ever wraps sends made *from* an
	// ASIL-B-capable process toward a QM peer.
	wrapCapable  bool
	wrapCapacity int

	qm    planeCache
	asilb planeCache

	factory           mpass.SenderFactory
	connectRetryDelay time.Duration
	stopCtx           context.Context
}

type planeCache struct {
	mu      sync.Mutex
	senders map[mpass.PeerID]mpass.Sender
}

// New constructs an empty Cache. factory builds a raw transport sender for
// a given endpoint name; wrapCapable mirrors the local handler's ASIL-B
// capability, and wrapCapacity is the configured non-blocking queue size
// (see messaging.Config.SenderQueueSize). connectRetryDelay and stopCtx
// drive GetOrCreate's connect-retry loop (see connectWithRetry):
// connectRetryDelay is messaging.Config.ConnectRetryDelay, and stopCtx is
// the facade's stop-source. A nil stopCtx behaves as context.Background.
func New(factory mpass.SenderFactory, wrapCapable bool, wrapCapacity int, connectRetryDelay time.Duration, stopCtx context.Context) *Cache {
	if stopCtx == nil {
		stopCtx = context.Background()
	}
	return &Cache{
		wrapCapable:       wrapCapable,
		wrapCapacity:      wrapCapacity,
		factory:           factory,
		connectRetryDelay: connectRetryDelay,
		stopCtx:           stopCtx,
		qm:                planeCache{senders: make(map[mpass.PeerID]mpass.Sender)},
		asilb:             planeCache{senders: make(map[mpass.PeerID]mpass.Sender)},
	}
}

func (c *Cache) planeOf(plane mpass.Plane) *planeCache {
	if plane == mpass.PlaneASILB {
		return &c.asilb
	}
	return &c.qm
}

// GetOrCreate returns the cached sender for (plane, peerID), constructing
// one via the injected factory on a cache miss.
func (c *Cache) GetOrCreate(plane mpass.Plane, peerID mpass.PeerID) mpass.Sender {
	pc := c.planeOf(plane)

	pc.mu.Lock()
	defer pc.mu.Unlock()

	if s, ok := pc.senders[peerID]; ok {
		return s
	}

	endpoint := mpass.EndpointName(plane, peerID)
	raw := c.connectWithRetry(endpoint)

	var s mpass.Sender = raw
	if c.shouldWrap(plane, raw) {
		s = nbsender.Wrap(raw, c.wrapCapacity)
	}
	pc.senders[peerID] = s
	return s
}

// connectWithRetry calls the factory, retrying with connectRetryDelay
// between attempts on failure until it succeeds or the cache's stop-token
// fires. This mirrors the original OpenOrWaitForChannel contract (a
// connect failure is retried, not abandoned, until shutdown is requested);
// only once the stop-token has fired does a persistent failure become the
// fatal condition spec §4.5 calls for.
func (c *Cache) connectWithRetry(endpoint string) mpass.Sender {
	for {
		raw, err := c.factory(endpoint)
		if err == nil {
			debug.Assert(raw != nil, "sendercache: factory returned nil sender without an error")
			if raw != nil {
				return raw
			}
			err = errors.New("sendercache: factory returned a nil sender")
		}

		if c.stopCtx.Err() != nil {
			nlog.Fatalf("sendercache: cannot construct sender for %s: %v", endpoint, err)
		}

		nlog.Warningf("sendercache: connect to %s failed, retrying in %s: %v", endpoint, c.connectRetryDelay, err)
		timer := time.NewTimer(c.connectRetryDelay)
		select {
		case <-c.stopCtx.Done():
			timer.Stop()
			nlog.Fatalf("sendercache: cannot construct sender for %s: %v", endpoint, err)
		case <-timer.C:
		}
	}
}

// shouldWrap implements the use policy of spec §4.4: wrap iff the local
// process is ASIL-B-capable, the sender being cached is for the QM plane,
// and the raw transport does not already guarantee non-blocking delivery.
func (c *Cache) shouldWrap(plane mpass.Plane, raw mpass.Sender) bool {
	return c.wrapCapable && plane == mpass.PlaneQM && !raw.HasNonBlockingGuarantee()
}

// Remove evicts the cache entry for (plane, peerID). Existing shared Sender
// values already handed out to callers remain valid (Go's GC keeps the
// underlying transport alive for as long as any reference survives); the
// next GetOrCreate for the same peer constructs afresh.
func (c *Cache) Remove(plane mpass.Plane, peerID mpass.PeerID) {
	pc := c.planeOf(plane)
	pc.mu.Lock()
	delete(pc.senders, peerID)
	pc.mu.Unlock()
}

// Size reports the number of cached senders for plane. Observability only.
func (c *Cache) Size(plane mpass.Plane) int {
	pc := c.planeOf(plane)
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return len(pc.senders)
}

// EndpointName is sendercache's passthrough to mpass.EndpointName, kept as
// a method so callers that only hold a *Cache need not import mpass too.
func (c *Cache) EndpointName(plane mpass.Plane, peerID mpass.PeerID) string {
	return mpass.EndpointName(plane, peerID)
}
