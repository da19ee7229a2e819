package frame

import (
	"encoding/binary"
	"errors"
	"unsafe"
)

// Short is the fixed-layout frame carrying all four application message
// kinds: {kind, sender_pid, payload}. Its payload is either a packed
// ElementID (RegisterNotifier/UnregisterNotifier/NotifyUpdate) or a raw
// peer id in the low 32 bits (OutdatedPeer).
type Short struct {
	Kind      Kind
	SenderPID int32
	Payload   uint64
}

// Medium is provisioned for extensibility; no handler in this core emits
// one, but the codec must round-trip it byte-exact.
type Medium struct {
	Kind      Kind
	SenderPID int32
	Payload   [16]byte
}

const (
	SizeShort  = 1 + 4 + 8
	SizeMedium = 1 + 4 + 16
)

// ErrBadSize is returned by the decoders when the supplied buffer's length
// does not match the frame's fixed size.
var ErrBadSize = errors.New("frame: buffer size does not match frame layout")

// nativeOrder is detected once at package init, mirroring the original
// implementation's raw-memory reinterpretation of the payload word: this
// codec is intentionally not portable across architectures, matching the
// spec's explicit "whatever the host uses, not interoperable" caveat.
var nativeOrder binary.ByteOrder = detectNativeOrder()

func detectNativeOrder() binary.ByteOrder {
	var i uint16 = 1
	b := (*[2]byte)(unsafe.Pointer(&i))
	if b[0] == 1 {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// EncodeShort writes f into a freshly allocated SizeShort-byte buffer.
func EncodeShort(f *Short) []byte {
	buf := make([]byte, SizeShort)
	buf[0] = byte(f.Kind)
	nativeOrder.PutUint32(buf[1:5], uint32(f.SenderPID))
	nativeOrder.PutUint64(buf[5:13], f.Payload)
	return buf
}

// DecodeShort parses buf into a Short frame. buf must be exactly SizeShort
// bytes; any other length is ErrBadSize.
func DecodeShort(buf []byte) (Short, error) {
	if len(buf) != SizeShort {
		return Short{}, ErrBadSize
	}
	return Short{
		Kind:      Kind(int8(buf[0])),
		SenderPID: int32(nativeOrder.Uint32(buf[1:5])),
		Payload:   nativeOrder.Uint64(buf[5:13]),
	}, nil
}

// EncodeMedium writes f into a freshly allocated SizeMedium-byte buffer.
func EncodeMedium(f *Medium) []byte {
	buf := make([]byte, SizeMedium)
	buf[0] = byte(f.Kind)
	nativeOrder.PutUint32(buf[1:5], uint32(f.SenderPID))
	copy(buf[5:21], f.Payload[:])
	return buf
}

// DecodeMedium parses buf into a Medium frame. buf must be exactly
// SizeMedium bytes; any other length is ErrBadSize.
func DecodeMedium(buf []byte) (Medium, error) {
	if len(buf) != SizeMedium {
		return Medium{}, ErrBadSize
	}
	var m Medium
	m.Kind = Kind(int8(buf[0]))
	m.SenderPID = int32(nativeOrder.Uint32(buf[1:5]))
	copy(m.Payload[:], buf[5:21])
	return m, nil
}

// OutdatedPeerPayload packs a peer id into a Short frame's payload word, low
// 32 bits, per spec: "byte-copied from the native representation".
func OutdatedPeerPayload(peerID int32) uint64 { return uint64(uint32(peerID)) }

// UnpackOutdatedPeer recovers the peer id from an OutdatedPeer frame's
// payload word.
func UnpackOutdatedPeer(payload uint64) int32 { return int32(uint32(payload)) }
