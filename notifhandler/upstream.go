package notifhandler

import (
	"github.com/qorix-group/lola-messaging/cmn/cos"
	"github.com/qorix-group/lola-messaging/cmn/nlog"
	"github.com/qorix-group/lola-messaging/frame"
	"github.com/qorix-group/lola-messaging/mpass"
)

// registerUpstream implements spec §4.6.2: fan-in-counted RegisterNotifier.
// Returns true iff the caller must transmit RegisterNotifier(elementID,
// localPID) to peerID — i.e. this call produced the 0->1 edge.
func (cb *controlBlock) registerUpstream(elementID frame.ElementID, peerID mpass.PeerID) (mustSend bool) {
	key := elementID.Pack()

	cb.regMu.Lock()
	rc, existed := cb.remoteRegCounts[key]
	switch {
	case !existed:
		rc = regCount{peer: peerID, refcount: 1}
	case rc.peer == peerID:
		rc.refcount++
	default:
		nlog.Warningf("notifhandler: element %x re-registered against a different peer (%d -> %d); treating as migration", key, rc.peer, peerID)
		rc = regCount{peer: peerID, refcount: 1}
	}
	cb.remoteRegCounts[key] = rc
	count := rc.refcount
	cb.regMu.Unlock()

	return count == 1
}

// unregisterUpstream implements spec §4.6.3. Returns true iff the caller
// must transmit UnregisterNotifier(elementID, localPID) to peerID — i.e.
// this call produced the 1->0 edge.
func (cb *controlBlock) unregisterUpstream(elementID frame.ElementID, peerID mpass.PeerID) (mustSend bool) {
	key := elementID.Pack()

	cb.regMu.Lock()
	defer cb.regMu.Unlock()

	rc, ok := cb.remoteRegCounts[key]
	if !ok {
		nlog.Errorf("notifhandler: unregister for element %x with no upstream registration on record", key)
		return false
	}
	if rc.peer != peerID {
		nlog.Errorf("notifhandler: unregister for element %x targets peer %d but current upstream peer is %d", key, peerID, rc.peer)
		return false
	}
	cos.Assert(rc.refcount > 0, "notifhandler: decrementing a zero upstream refcount")

	rc.refcount--
	if rc.refcount == 0 {
		delete(cb.remoteRegCounts, key)
		return true
	}
	cb.remoteRegCounts[key] = rc
	return false
}

// reregisterUpstream implements spec §4.6.1's reregister_event_notification
// migration algorithm. Returns true iff the caller must transmit a fresh
// RegisterNotifier to newPeerID. No UnregisterNotifier is ever produced
// here — the old peer is presumed unreachable; reconciliation happens via
// OutdatedPeer.
func (cb *controlBlock) reregisterUpstream(elementID frame.ElementID, newPeerID mpass.PeerID) (mustSendRegister bool) {
	key := elementID.Pack()

	cb.regMu.Lock()
	defer cb.regMu.Unlock()

	rc, ok := cb.remoteRegCounts[key]
	if ok && rc.peer == newPeerID {
		rc.refcount++
		cb.remoteRegCounts[key] = rc
		return false
	}

	cb.remoteRegCounts[key] = regCount{peer: newPeerID, refcount: 1}
	return true
}

// hasLocalHandlers reports whether elementID currently has any local
// handler list at all, used by reregisterEventNotification's no-op guard.
func (cb *controlBlock) hasLocalHandlers(elementID frame.ElementID) bool {
	key := elementID.Pack()
	cb.handlersMu.RLock()
	defer cb.handlersMu.RUnlock()
	_, ok := cb.localHandlers[key]
	return ok && len(cb.localHandlers[key]) > 0
}
