package mpass

import "strconv"

// EndpointName returns the canonical endpoint name for a (plane, peerID)
// pair: the literal prefix "/LoLa_", the decimal peer id, then "_QM" or
// "_ASIL_B" according to plane. This string is passed to the transport for
// both sender open and receiver open.
func EndpointName(plane Plane, peerID PeerID) string {
	return "/LoLa_" + strconv.Itoa(int(peerID)) + plane.suffix()
}
