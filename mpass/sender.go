package mpass

import (
	"errors"

	"github.com/qorix-group/lola-messaging/frame"
)

// ErrAgain signals "try later": the underlying transport's buffer was full
// at the moment of the attempt. Callers apply the retry policy of Retry in
// response; it is not itself treated as a permanent failure.
var ErrAgain = errors.New("mpass: resource temporarily unavailable")

// Sender is the abstract, best-effort unicast contract the core sends
// control frames through. Implementations report their non-blocking status
// truthfully: at least one real implementation must answer true
// (mpass/looptrans) and at least one false (mpass/udstrans).
type Sender interface {
	TrySend(f *frame.Short) error
	TrySendMedium(f *frame.Medium) error
	HasNonBlockingGuarantee() bool
	// Close releases any resources the sender holds (e.g. a socket).
	Close() error
}

// SenderFactory constructs a new Sender bound to the given endpoint name.
// Injected into sendercache.Cache so the cache never hard-codes a concrete
// transport.
type SenderFactory func(endpointName string) (Sender, error)
