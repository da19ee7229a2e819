package notifhandler

import (
	"github.com/qorix-group/lola-messaging/cmn/nlog"
	"github.com/qorix-group/lola-messaging/frame"
	"github.com/qorix-group/lola-messaging/mpass"
)

// HandleInboundShort dispatches a decoded, already-authenticated Short
// frame to the matching inbound handler of spec §4.6.6. It is the callback
// the messaging facade registers with the plane's receiver for every
// application frame kind.
func (h *Handler) HandleInboundShort(plane mpass.Plane, f frame.Short) {
	cb := h.block(plane)
	fromPeer := mpass.PeerID(f.SenderPID)

	switch f.Kind {
	case frame.RegisterNotifier:
		h.onRegisterNotifier(cb, frame.UnpackElementID(f.Payload), fromPeer)
	case frame.UnregisterNotifier:
		h.onUnregisterNotifier(cb, frame.UnpackElementID(f.Payload), fromPeer)
	case frame.NotifyUpdate:
		h.onNotifyUpdate(plane, cb, frame.UnpackElementID(f.Payload))
	case frame.OutdatedPeer:
		h.onOutdatedPeer(plane, cb, frame.UnpackOutdatedPeer(f.Payload))
	default:
		nlog.Warningf("notifhandler: discarding frame of unhandled kind %v", f.Kind)
	}
}

func (h *Handler) onRegisterNotifier(cb *controlBlock, elementID frame.ElementID, fromPeer mpass.PeerID) {
	if alreadyPresent := cb.addRemoteSubscriber(elementID, fromPeer); alreadyPresent {
		nlog.Warningf("notifhandler: redundant RegisterNotifier from peer %d for element %x", fromPeer, elementID.Pack())
	}
}

func (h *Handler) onUnregisterNotifier(cb *controlBlock, elementID frame.ElementID, fromPeer mpass.PeerID) {
	if wasPresent := cb.removeRemoteSubscriber(elementID, fromPeer); !wasPresent {
		nlog.Warningf("notifhandler: UnregisterNotifier from peer %d for element %x with no prior registration", fromPeer, elementID.Pack())
	}
}

func (h *Handler) onNotifyUpdate(_ mpass.Plane, cb *controlBlock, elementID frame.ElementID) {
	h.localFanout(cb, elementID, true)
}

func (h *Handler) onOutdatedPeer(plane mpass.Plane, cb *controlBlock, outdatedPeer mpass.PeerID) {
	removed := cb.purgeOutdatedPeer(outdatedPeer)
	nlog.Infof("notifhandler: purged outdated peer %d from %d subscriber set(s)", outdatedPeer, removed)
	h.cache.Remove(plane, outdatedPeer)
}
