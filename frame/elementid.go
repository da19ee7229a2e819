// Package frame implements the bit-exact wire encoding of the messaging
// core's fixed-size Short and Medium control frames, and the element-id
// payload packed into a Short frame's 64-bit payload word.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package frame

// ElementID is the compound (service, element, instance, kind) identifier
// of a single communication endpoint within the middleware's data plane.
type ElementID struct {
	ServiceID   uint16
	ElementID   uint16
	InstanceID  uint16
	ElementKind uint8
}

// Pack packs the four subfields MSB->LSB into a single 64-bit word:
//
//	bits 63..48  service_id
//	bits 47..32  element_id
//	bits 31..16  instance_id
//	bits 15..8   element_kind
//	bits  7..0   unused, zero
func (e ElementID) Pack() uint64 {
	return uint64(e.ServiceID)<<48 |
		uint64(e.ElementID)<<32 |
		uint64(e.InstanceID)<<16 |
		uint64(e.ElementKind)<<8
}

// UnpackElementID recovers the four subfields from a payload word previously
// produced by ElementID.Pack. The unused low byte is ignored on unpack.
func UnpackElementID(payload uint64) ElementID {
	return ElementID{
		ServiceID:   uint16(payload >> 48),
		ElementID:   uint16(payload >> 32),
		InstanceID:  uint16(payload >> 16),
		ElementKind: uint8(payload >> 8),
	}
}
