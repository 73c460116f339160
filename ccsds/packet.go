package ccsds

// SpacePacketHeaderLength is the fixed length, in bytes, of a CCSDS space
// packet primary header (CCSDS 133.0-B).
const SpacePacketHeaderLength = 6

// IdleAPID is the reserved Application Process Identifier marking a space
// packet as idle fill. It is the 11-bit value with every bit set.
const IdleAPID = 0x7FF

// packetLength returns the total length, in bytes, of the space packet
// whose header begins at hdr[0]. hdr must have at least
// SpacePacketHeaderLength bytes; callers (vc.go) never call this with
// fewer, and treat doing so as an internal invariant violation.
func packetLength(hdr []byte) int {
	if len(hdr) < SpacePacketHeaderLength {
		panic("ccsds: packetLength called with a short header")
	}
	dataLengthMinusOne := int(hdr[4])<<8 | int(hdr[5])
	return SpacePacketHeaderLength + dataLengthMinusOne + 1
}

// packetAPID returns the 11-bit Application Process Identifier from the
// first two bytes of a space packet header.
func packetAPID(hdr []byte) int {
	if len(hdr) < 2 {
		panic("ccsds: packetAPID called with a short header")
	}
	return (int(hdr[0]&0x07) << 8) | int(hdr[1])
}

// isIdlePacket reports whether the packet beginning at buf[offset] (with
// its header already complete) is an idle packet, i.e. its APID is
// IdleAPID.
func isIdlePacket(buf []byte, offset int) bool {
	if offset+2 > len(buf) {
		return false
	}
	return packetAPID(buf[offset:]) == IdleAPID
}
