package frame

import "testing"

func TestElementIDRoundTrip(t *testing.T) {
	e := ElementID{ServiceID: 1, ElementID: 2, InstanceID: 3, ElementKind: 4}
	got := UnpackElementID(e.Pack())
	if got != e {
		t.Fatalf("roundtrip mismatch: got %+v, want %+v", got, e)
	}
}

func TestElementIDPackedLayout(t *testing.T) {
	e := ElementID{ServiceID: 1, ElementID: 1, InstanceID: 1, ElementKind: 7}
	packed := e.Pack()
	if packed&0xFF != 0 {
		t.Fatalf("low byte must be zero, got %#x", packed)
	}
	if (packed>>48)&0xFFFF != 1 {
		t.Fatalf("service_id not in bits 63..48: %#x", packed)
	}
}

func TestShortRoundTrip(t *testing.T) {
	e := ElementID{ServiceID: 1, ElementID: 1, InstanceID: 1, ElementKind: 2}
	in := Short{Kind: NotifyUpdate, SenderPID: 4444, Payload: e.Pack()}
	buf := EncodeShort(&in)
	if len(buf) != SizeShort {
		t.Fatalf("encoded short frame size = %d, want %d", len(buf), SizeShort)
	}
	out, err := DecodeShort(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != in {
		t.Fatalf("roundtrip mismatch: got %+v, want %+v", out, in)
	}
}

func TestMediumRoundTrip(t *testing.T) {
	in := Medium{Kind: Kind(99), SenderPID: -1}
	for i := range in.Payload {
		in.Payload[i] = byte(i)
	}
	buf := EncodeMedium(&in)
	if len(buf) != SizeMedium {
		t.Fatalf("encoded medium frame size = %d, want %d", len(buf), SizeMedium)
	}
	out, err := DecodeMedium(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != in {
		t.Fatalf("roundtrip mismatch: got %+v, want %+v", out, in)
	}
}

func TestDecodeBadSize(t *testing.T) {
	if _, err := DecodeShort(make([]byte, SizeShort-1)); err != ErrBadSize {
		t.Fatalf("expected ErrBadSize, got %v", err)
	}
	if _, err := DecodeMedium(make([]byte, SizeMedium+1)); err != ErrBadSize {
		t.Fatalf("expected ErrBadSize, got %v", err)
	}
}

func TestOutdatedPeerPayload(t *testing.T) {
	const pid int32 = 5555
	if got := UnpackOutdatedPeer(OutdatedPeerPayload(pid)); got != pid {
		t.Fatalf("outdated-peer payload roundtrip: got %d, want %d", got, pid)
	}
}
