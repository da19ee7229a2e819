package messaging

import (
	"context"

	jsoniter "github.com/json-iterator/go"

	"github.com/qorix-group/lola-messaging/cmn/nlog"
	"github.com/qorix-group/lola-messaging/cmn/workpool"
	"github.com/qorix-group/lola-messaging/frame"
	"github.com/qorix-group/lola-messaging/mpass"
	"github.com/qorix-group/lola-messaging/notifhandler"
	"github.com/qorix-group/lola-messaging/sendercache"
)

// ReceiverFactory constructs a plane's receiver for the given endpoint
// name, queue size, and allowlist. Injected so tests can supply
// mpass/looptrans while production callers supply mpass/udstrans.
type ReceiverFactory func(endpointName string, queueSize int, allowlist mpass.Allowlist) mpass.Receiver

// Facade is the per-process messaging-core entry point. Member order below
// matters: receivers are declared (and therefore destroyed, per Go's
// field-order-mirrors-declaration-order discipline this repo follows)
// before the handler they reference, honoring spec §4.7's "receivers
// destroyed before the notification handler" requirement.
type Facade struct {
	stopCancel context.CancelFunc

	qmReceiver    mpass.Receiver
	asilbReceiver mpass.Receiver // nil unless cfg.ASILBCapable

	handler *notifhandler.Handler
	cache   *sendercache.Cache
	pool    *workpool.Pool
}

// New constructs a Facade per cfg, using senderFactory/receiverFactory as
// the transport injection points (spec §9: "transport sender/receiver
// factories ... must be swappable in tests"). Construction follows spec
// §4.7 exactly: create the QM receiver, register callbacks, start
// listening (fatal on failure), then repeat for ASIL-B if configured.
func New(cfg Config, senderFactory mpass.SenderFactory, receiverFactory ReceiverFactory) *Facade {
	if err := cfg.Validate(); err != nil {
		nlog.Fatalf("messaging: invalid configuration: %v", err)
	}

	stopCtx, cancel := context.WithCancel(context.Background())
	pool := workpool.New(stopCtx, 8)
	cache := sendercache.New(senderFactory, cfg.ASILBCapable, cfg.SenderQueueSize, cfg.ConnectRetryDelay, stopCtx)

	handler := notifhandler.New(notifhandler.Config{
		LocalPID:     cfg.LocalPID,
		ASILBCapable: cfg.ASILBCapable,
		Cache:        cache,
		Pool:         pool,
		Retry:        mpass.RetryConfig{Count: cfg.SendRetryCount, Delay: cfg.SendRetryDelay},
		StopCtx:      stopCtx,
	})

	f := &Facade{stopCancel: cancel, handler: handler, cache: cache, pool: pool}

	f.qmReceiver = f.startReceiver(mpass.PlaneQM, cfg.LocalPID, cfg.ReceiverQueueSizeQM, cfg.AllowedUserIDsQM, receiverFactory)

	if cfg.ASILBCapable {
		f.asilbReceiver = f.startReceiver(mpass.PlaneASILB, cfg.LocalPID, cfg.ReceiverQueueSizeASILB, cfg.AllowedUserIDsASILB, receiverFactory)
	}

	return f
}

func (f *Facade) startReceiver(plane mpass.Plane, localPID mpass.PeerID, queueSize int, allowed map[uint32]struct{}, receiverFactory ReceiverFactory) mpass.Receiver {
	endpoint := mpass.EndpointName(plane, localPID)
	recv := receiverFactory(endpoint, queueSize, mpass.Allowlist(allowed))

	for _, kind := range []frame.Kind{frame.RegisterNotifier, frame.UnregisterNotifier, frame.NotifyUpdate, frame.OutdatedPeer} {
		kind := kind
		if err := recv.RegisterShort(kind, func(fr frame.Short) { f.handler.HandleInboundShort(plane, fr) }); err != nil {
			nlog.Fatalf("messaging: registering %v callback on %s: %v", kind, endpoint, err)
		}
	}

	if err := recv.StartListening(); err != nil {
		nlog.Fatalf("messaging: receiver for %s failed to start: %v", endpoint, err)
	}
	return recv
}

// Close requests stop on the facade's stop-source (observed by the
// receivers' worker pools and the local fan-out pool), then stops the
// receivers. Declaration order above already places the handler after the
// receivers, so the handler the receivers' callbacks close over outlives
// them.
func (f *Facade) Close() {
	f.stopCancel()
	if f.asilbReceiver != nil {
		f.asilbReceiver.Stop()
	}
	f.qmReceiver.Stop()
	f.pool.Wait()
}

func (f *Facade) NotifyEvent(plane mpass.Plane, elementID frame.ElementID) {
	f.handler.NotifyEvent(plane, elementID)
}

func (f *Facade) RegisterEventNotification(plane mpass.Plane, elementID frame.ElementID, weak notifhandler.WeakHandler, targetPeerID mpass.PeerID) (notifhandler.RegHandle, error) {
	return f.handler.RegisterEventNotification(plane, elementID, weak, targetPeerID)
}

func (f *Facade) ReregisterEventNotification(plane mpass.Plane, elementID frame.ElementID, newTargetPeerID mpass.PeerID) {
	f.handler.ReregisterEventNotification(plane, elementID, newTargetPeerID)
}

func (f *Facade) UnregisterEventNotification(plane mpass.Plane, elementID frame.ElementID, handle notifhandler.RegHandle, targetPeerID mpass.PeerID) {
	f.handler.UnregisterEventNotification(plane, elementID, handle, targetPeerID)
}

func (f *Facade) NotifyOutdatedPeer(plane mpass.Plane, outdatedPeerID, targetPeerID mpass.PeerID) {
	f.handler.NotifyOutdatedPeer(plane, outdatedPeerID, targetPeerID)
}

// PlaneStats is a point-in-time snapshot of one plane's registry sizes and
// sender-cache occupancy.
type PlaneStats struct {
	LocalHandlerElems     int `json:"local_handler_elems"`
	RemoteSubscriberElems int `json:"remote_subscriber_elems"`
	RemoteRegElems        int `json:"remote_reg_elems"`
	CachedSenders         int `json:"cached_senders"`
}

// Stats is a point-in-time snapshot of registry sizes and sender-cache
// occupancy, mirroring the teacher's transport.GetStats()/EndpointStats
// shape but substituting a JSON-marshaled struct since this core's stats
// are meant to cross a process boundary.
type Stats struct {
	ASILBCapable bool       `json:"asil_b_capable"`
	QM           PlaneStats `json:"qm"`
	ASILB        *PlaneStats `json:"asil_b,omitempty"`
}

func (f *Facade) planeStats(plane mpass.Plane) PlaneStats {
	localElems, remoteSubs, remoteRegs := f.handler.PlaneStats(plane)
	return PlaneStats{
		LocalHandlerElems:     localElems,
		RemoteSubscriberElems: remoteSubs,
		RemoteRegElems:        remoteRegs,
		CachedSenders:         f.cache.Size(plane),
	}
}

// DumpStats renders a Stats snapshot as JSON via jsoniter's
// ConfigCompatibleWithStandardLibrary configuration.
func (f *Facade) DumpStats() (string, error) {
	s := Stats{ASILBCapable: f.asilbReceiver != nil, QM: f.planeStats(mpass.PlaneQM)}
	if f.asilbReceiver != nil {
		asilb := f.planeStats(mpass.PlaneASILB)
		s.ASILB = &asilb
	}
	return jsoniter.ConfigCompatibleWithStandardLibrary.MarshalToString(&s)
}
