package frame

// Kind identifies the application-level meaning of a Short or Medium frame.
// Stop is transport-internal: it never leaves the process and exists only
// to release a blocked receive loop.
type Kind int8

const (
	Stop               Kind = 0
	RegisterNotifier   Kind = 1
	UnregisterNotifier Kind = 2
	NotifyUpdate       Kind = 3
	OutdatedPeer       Kind = 4
)

func (k Kind) String() string {
	switch k {
	case Stop:
		return "Stop"
	case RegisterNotifier:
		return "RegisterNotifier"
	case UnregisterNotifier:
		return "UnregisterNotifier"
	case NotifyUpdate:
		return "NotifyUpdate"
	case OutdatedPeer:
		return "OutdatedPeer"
	default:
		return "Unknown"
	}
}
