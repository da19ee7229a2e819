// Package notifhandler is the heart of the messaging core: per-plane
// registries (local handlers, remote subscribers, remote registration
// refcounts) under shared-exclusive locking, plus the fan-out algorithms
// that deliver notifications to local callbacks and remote peers without
// holding a lock across a callback invocation or an outbound send.
//
// Grounded on the teacher's ais/prxnotif.go listeners type: a
// sync.RWMutex-guarded map with a small, explicit add/remove/lookup API,
// usable both standalone and from an already-locked call site.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package notifhandler

import (
	"errors"

	"github.com/qorix-group/lola-messaging/frame"
	"github.com/qorix-group/lola-messaging/mpass"
)

// RegHandle is an opaque, monotonically increasing registration handle
// returned from a local subscribe, scoped to one (plane, element_id) pair's
// handler list.
type RegHandle uint64

// ScopedCallback is a strong, already-upgraded reference to a registered
// callback. It re-checks its own owning scope internally before firing, so
// a scope that closes mid-invocation still no-ops safely.
type ScopedCallback func()

// WeakHandler is a weak reference to a registered callback: invoking it
// attempts to upgrade to a strong ScopedCallback. A false second return
// means the owning scope has already closed and the handler must not fire.
type WeakHandler func() (ScopedCallback, bool)

// ErrMaxSubscribersExceeded is the sole typed error any public operation
// returns: RegisterEventNotification surfaces it when the upstream
// subscription machinery at the provider side (out of scope for this core)
// refuses a new remote subscriber.
var ErrMaxSubscribersExceeded = errors.New("notifhandler: max subscribers exceeded")

// RegisterHook lets a caller plug in the out-of-scope provider-side
// subscription-acceptance check referenced by spec §7. A nil hook always
// accepts; this is the default used whenever no provider collaborator is
// wired in (e.g. every test in this repo).
type RegisterHook func(elementID frame.ElementID, targetPeerID mpass.PeerID) error

const (
	// maxLocalHandlers is the bounded max-handlers-per-element enforced on
	// local fan-out (invariant #7 / spec §4.6.4).
	maxLocalHandlers = 5
	// remoteFanoutBatch is the subscriber-set copy batch size used by
	// remote fan-out to minimize lock-holding (spec §4.6.5). Deliberately
	// not part of the public Config surface — see DESIGN.md Open Question
	// #3.
	remoteFanoutBatch = 20
	// maxFanoutRounds guards against pathological subscriber-set growth; a
	// defensive bound only, never reachable at remoteFanoutBatch=20 for any
	// deployment up to 5100 subscribers (DESIGN.md Open Question #2).
	maxFanoutRounds = 255
)
