package notifhandler

import "github.com/qorix-group/lola-messaging/cmn/atomic"

// Scope is the reference implementation of the weak-callback second gate
// described in spec §9's design notes: the object that owns a registered
// callback constructs a Scope, hands out a WeakHandler derived from it via
// Weak, and calls Close when it is torn down. Close is idempotent and safe
// to call concurrently with an in-flight callback invocation — the
// ScopedCallback returned by Weak re-checks the scope itself immediately
// before firing, so a Close racing an in-flight dispatch still no-ops
// rather than running on a half-torn-down owner.
type Scope struct {
	closed atomic.Bool
}

// Close marks the scope closed. Any WeakHandler derived from it stops
// upgrading from this point on.
func (s *Scope) Close() {
	s.closed.Store(true)
}

// Weak derives a WeakHandler bound to s: upgrading fails once s is closed,
// and the returned ScopedCallback re-checks s before invoking fn so a
// close that lands mid-dispatch still suppresses the call.
func (s *Scope) Weak(fn func()) WeakHandler {
	return func() (ScopedCallback, bool) {
		if s.closed.Load() {
			return nil, false
		}
		return func() {
			if s.closed.Load() {
				return
			}
			fn()
		}, true
	}
}
