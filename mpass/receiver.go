package mpass

import "github.com/qorix-group/lola-messaging/frame"

// ShortCallback handles an inbound Short frame already validated against
// the peer allowlist and the sender_pid/authenticated-sender check.
type ShortCallback func(f frame.Short)

// MediumCallback handles an inbound Medium frame, same validation as
// ShortCallback.
type MediumCallback func(f frame.Medium)

// Allowlist restricts accepted connections to a set of OS user ids. An
// empty (nil or zero-length) Allowlist means unrestricted.
type Allowlist map[uint32]struct{}

// Allowed reports whether uid may connect. An empty allowlist allows every
// uid.
func (a Allowlist) Allowed(uid uint32) bool {
	if len(a) == 0 {
		return true
	}
	_, ok := a[uid]
	return ok
}

// Receiver is the abstract receive-side contract: register callbacks by
// frame kind, then start listening. Registration must happen before
// StartListening is called.
type Receiver interface {
	RegisterShort(kind frame.Kind, cb ShortCallback) error
	RegisterMedium(kind frame.Kind, cb MediumCallback) error
	// StartListening opens the endpoint (subject to the configured peer
	// allowlist) and begins dispatching received frames to the registered
	// callbacks on an internal worker pool. A start failure is fatal to the
	// caller: the process cannot reliably participate in the control plane
	// without its receiver (see the nlog.Fatalf call sites in messaging).
	StartListening() error
	// Stop releases every worker's blocked receive loop and returns once
	// they have all exited.
	Stop()
}
