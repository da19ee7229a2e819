// Package mpass defines the abstract message-passing contracts (Sender,
// Receiver) the messaging core sends and receives control frames through,
// plus the small value types (PeerID, Plane, EndpointName, Retry) shared by
// every transport and by the notification handler.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package mpass

// PeerID is an opaque identifier of a remote process instance, isomorphic
// to an OS process id. Treat as opaque: it changes across a peer restart
// and is reconciled via OutdatedPeer.
type PeerID int32

// Plane is the safety-integrity plane a message-passing operation is
// parameterized by. Cross-plane traffic is forbidden.
type Plane uint8

const (
	PlaneQM Plane = iota
	PlaneASILB
)

func (p Plane) String() string {
	switch p {
	case PlaneQM:
		return "QM"
	case PlaneASILB:
		return "ASIL_B"
	default:
		return "unknown"
	}
}

// suffix returns the endpoint-name suffix for this plane, per §6.
func (p Plane) suffix() string {
	switch p {
	case PlaneQM:
		return "_QM"
	case PlaneASILB:
		return "_ASIL_B"
	default:
		return "_UNKNOWN"
	}
}
