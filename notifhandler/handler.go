package notifhandler

import (
	"context"

	"github.com/qorix-group/lola-messaging/cmn/debug"
	"github.com/qorix-group/lola-messaging/cmn/nlog"
	"github.com/qorix-group/lola-messaging/cmn/workpool"
	"github.com/qorix-group/lola-messaging/frame"
	"github.com/qorix-group/lola-messaging/mpass"
	"github.com/qorix-group/lola-messaging/sendercache"
)

// Handler is the per-process notification handler: one instance serves
// both integrity planes, internally selecting between two control blocks
// (design note, spec §9 "two-plane symmetry"). ASIL-B operations are
// rejected (fatal, per §4.6.7) unless the handler was constructed with
// ASIL-B capability.
type Handler struct {
	localPID     mpass.PeerID
	asilbCapable bool

	qm    *controlBlock
	asilb *controlBlock // nil unless asilbCapable

	cache        *sendercache.Cache
	pool         *workpool.Pool
	retryCfg     mpass.RetryConfig
	registerHook RegisterHook

	stopCtx context.Context
}

// Config bundles Handler's construction-time dependencies.
type Config struct {
	LocalPID     mpass.PeerID
	ASILBCapable bool
	Cache        *sendercache.Cache
	Pool         *workpool.Pool
	Retry        mpass.RetryConfig
	// RegisterHook, if non-nil, gates remote RegisterEventNotification
	// calls against the out-of-scope provider-side subscription machinery.
	RegisterHook RegisterHook
	// StopCtx cancels in-flight local fan-out dispatch (spec §5 cancellation
	// semantics: "in-flight drain tasks stop after the current frame").
	StopCtx context.Context
}

// New constructs a Handler per cfg.
func New(cfg Config) *Handler {
	debug.Assert(cfg.Cache != nil, "notifhandler: nil sender cache")
	debug.Assert(cfg.Pool != nil, "notifhandler: nil worker pool")
	stopCtx := cfg.StopCtx
	if stopCtx == nil {
		stopCtx = context.Background()
	}
	h := &Handler{
		localPID:     cfg.LocalPID,
		asilbCapable: cfg.ASILBCapable,
		qm:           newControlBlock(),
		cache:        cfg.Cache,
		pool:         cfg.Pool,
		retryCfg:     cfg.Retry,
		registerHook: cfg.RegisterHook,
		stopCtx:      stopCtx,
	}
	if cfg.ASILBCapable {
		h.asilb = newControlBlock()
	}
	return h
}

// block implements spec §4.6.7's entry-point precondition: every public
// operation asserts plane is QM, or ASIL_B with this handler ASIL-B
// capable. A violation is fatal.
func (h *Handler) block(plane mpass.Plane) *controlBlock {
	switch plane {
	case mpass.PlaneQM:
		return h.qm
	case mpass.PlaneASILB:
		if !h.asilbCapable {
			nlog.Fatalf("notifhandler: ASIL_B operation on a handler without ASIL-B capability")
		}
		return h.asilb
	default:
		nlog.Fatalf("notifhandler: unknown plane %v", plane)
		return nil
	}
}

// send wraps a single TrySend in the configured retry policy.
func (h *Handler) send(sender mpass.Sender, f *frame.Short) error {
	return mpass.Retry(h.stopCtx, h.retryCfg, func() error { return sender.TrySend(f) })
}

// NotifyEvent broadcasts that a locally-provided element has been updated.
// Remote fan-out runs synchronously on the caller's thread; local fan-out
// is dispatched to the worker pool. See spec §4.6.1.
func (h *Handler) NotifyEvent(plane mpass.Plane, elementID frame.ElementID) {
	cb := h.block(plane)
	h.remoteFanout(cb, plane, elementID)
	h.localFanout(cb, elementID, false)
}

// RegisterEventNotification subscribes weak to updates of elementID. If
// targetPeerID is local, installation is purely local. If remote, applies
// the reference-counted upstream registration algorithm (spec §4.6.2) and
// consults RegisterHook for provider-side acceptance.
func (h *Handler) RegisterEventNotification(plane mpass.Plane, elementID frame.ElementID, weak WeakHandler, targetPeerID mpass.PeerID) (RegHandle, error) {
	cb := h.block(plane)

	if targetPeerID != h.localPID {
		if h.registerHook != nil {
			if err := h.registerHook(elementID, targetPeerID); err != nil {
				return 0, err
			}
		}
		if cb.registerUpstream(elementID, targetPeerID) {
			sender := h.cache.GetOrCreate(plane, targetPeerID)
			f := frame.Short{Kind: frame.RegisterNotifier, SenderPID: int32(h.localPID), Payload: elementID.Pack()}
			if err := h.send(sender, &f); err != nil {
				nlog.Warningf("notifhandler: RegisterNotifier to peer %d failed: %v", targetPeerID, err)
			}
		}
	}

	return cb.addLocalHandler(elementID, weak), nil
}

// ReregisterEventNotification handles a service migration to a new
// provider pid. See spec §4.6.1: no UnregisterNotifier is ever sent to the
// old peer here.
func (h *Handler) ReregisterEventNotification(plane mpass.Plane, elementID frame.ElementID, newTargetPeerID mpass.PeerID) {
	cb := h.block(plane)

	if !cb.hasLocalHandlers(elementID) {
		nlog.Warningf("notifhandler: reregister for element %x with no local handler list", elementID.Pack())
		return
	}

	if cb.reregisterUpstream(elementID, newTargetPeerID) {
		sender := h.cache.GetOrCreate(plane, newTargetPeerID)
		f := frame.Short{Kind: frame.RegisterNotifier, SenderPID: int32(h.localPID), Payload: elementID.Pack()}
		if err := h.send(sender, &f); err != nil {
			nlog.Warningf("notifhandler: RegisterNotifier (migration) to peer %d failed: %v", newTargetPeerID, err)
		}
	}
}

// UnregisterEventNotification removes the local handler registered under
// handle. If targetPeerID is remote, applies the 1->0 decrement and emits
// UnregisterNotifier as described in spec §4.6.3.
func (h *Handler) UnregisterEventNotification(plane mpass.Plane, elementID frame.ElementID, handle RegHandle, targetPeerID mpass.PeerID) {
	cb := h.block(plane)

	if !cb.removeLocalHandler(elementID, handle) {
		nlog.Warningf("notifhandler: unregister of unknown handle %d for element %x (benign)", handle, elementID.Pack())
		return
	}

	if targetPeerID != h.localPID {
		if cb.unregisterUpstream(elementID, targetPeerID) {
			sender := h.cache.GetOrCreate(plane, targetPeerID)
			f := frame.Short{Kind: frame.UnregisterNotifier, SenderPID: int32(h.localPID), Payload: elementID.Pack()}
			if err := h.send(sender, &f); err != nil {
				nlog.Warningf("notifhandler: UnregisterNotifier to peer %d failed: %v", targetPeerID, err)
			}
		}
	}
}

// PlaneStats reports point-in-time registry sizes for plane: the number of
// elements with at least one local handler, the number of elements with a
// remote-subscriber set, and the number of elements with a live upstream
// registration. Used only for observability (messaging.Facade.DumpStats);
// never consulted by any algorithm in this package.
func (h *Handler) PlaneStats(plane mpass.Plane) (localElems, remoteSubscriberElems, remoteRegElems int) {
	cb := h.block(plane)
	return cb.localHandlerElemCount(), cb.remoteSubscriberElemCount(), cb.remoteRegElemCount()
}

// NotifyOutdatedPeer sends an OutdatedPeer(outdatedPeerID) frame to
// targetPeerID. Idempotent.
func (h *Handler) NotifyOutdatedPeer(plane mpass.Plane, outdatedPeerID, targetPeerID mpass.PeerID) {
	h.block(plane)

	sender := h.cache.GetOrCreate(plane, targetPeerID)
	f := frame.Short{
		Kind:      frame.OutdatedPeer,
		SenderPID: int32(h.localPID),
		Payload:   frame.OutdatedPeerPayload(int32(outdatedPeerID)),
	}
	if err := h.send(sender, &f); err != nil {
		nlog.Warningf("notifhandler: OutdatedPeer(%d) to peer %d failed: %v", outdatedPeerID, targetPeerID, err)
	}
}
