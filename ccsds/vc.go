package ccsds

// VirtualChannel is the per-VCID reassembly state: an ordered queue of
// in-progress or completed packet buffers, and a count of bytes still owed
// to the last (possibly incomplete) entry.
//
// A VirtualChannel never touches the stream accumulator directly, frames
// arrive already parsed (see frame.go) and the eight instances only ever
// interact with the bytes of the one frame passed to processFrame at a
// time; the accumulator itself is never shared between them.
type VirtualChannel struct {
	PacketQueue      [][]byte
	PendingBytesLeft int
}

func (vc *VirtualChannel) hasPendingPacket() bool {
	return len(vc.PacketQueue) > 0 && vc.PendingBytesLeft > 0
}

func (vc *VirtualChannel) tail() []byte {
	return vc.PacketQueue[len(vc.PacketQueue)-1]
}

func (vc *VirtualChannel) appendToTail(b []byte) {
	vc.PacketQueue[len(vc.PacketQueue)-1] = append(vc.tail(), b...)
}

// processFrame applies one already-parsed, non-idle frame to vc: the
// continuation phase followed by the emission phase. The idle-frame check
// (FHP == FHPIdleFrame) happens one level up, in demux.go, before a VC is
// even selected, so an idle frame causes no state change in any VC.
func processFrame(cfg Config, vc *VirtualChannel, frame Frame) {
	data, proceed := handleContinuation(cfg, vc, frame)
	if !proceed {
		return
	}
	storePackets(cfg, vc, frame, data)
}

// handleContinuation runs the continuation phase: it applies any bytes
// owed to a pending packet, completing its header if needed. It returns
// the data field slice positioned at the next packet boundary, and whether
// the emission phase should run at all; it never should when
// FHP == FHPNoPacketStart, since then no packet starts in this frame.
func handleContinuation(cfg Config, vc *VirtualChannel, frame Frame) (data []byte, proceed bool) {
	data = frame.DataField

	if !vc.hasPendingPacket() {
		// 4a: no pending packet.
		if frame.FHP == FHPNoPacketStart {
			return nil, false
		}
		return data[frame.FHP:], true
	}

	// 4b: a pending packet exists. Split off the portion of the data
	// field that belongs to it.
	var continuation []byte
	if frame.FHP == FHPNoPacketStart {
		continuation = data
		data = nil
	} else {
		continuation = data[:frame.FHP]
		data = data[frame.FHP:]
	}

	// 4c: header completion sub-step.
	tailLen := len(vc.tail()) - cfg.PacketPrefixLength
	if tailLen < SpacePacketHeaderLength {
		restOfHeader := vc.PendingBytesLeft
		if len(continuation) < restOfHeader {
			vc.appendToTail(continuation)
			vc.PendingBytesLeft = 0
			return nil, false
		}
		vc.appendToTail(continuation[:restOfHeader])
		continuation = continuation[restOfHeader:]

		hdr := vc.tail()[cfg.PacketPrefixLength : cfg.PacketPrefixLength+SpacePacketHeaderLength]
		vc.PendingBytesLeft = packetLength(hdr) - SpacePacketHeaderLength
	}

	// 4d: apply the (possibly header-trimmed) continuation.
	if frame.FHP == FHPNoPacketStart {
		if vc.PendingBytesLeft < len(continuation) {
			vc.appendToTail(continuation[:vc.PendingBytesLeft])
			vc.PendingBytesLeft = 0
			return nil, false
		}
		vc.appendToTail(continuation)
		vc.PendingBytesLeft -= len(continuation)
		return nil, false
	}

	switch {
	case vc.PendingBytesLeft < len(continuation):
		// Length wins: the packet ends before FHP says it should.
		vc.appendToTail(continuation[:vc.PendingBytesLeft])
		vc.PendingBytesLeft = 0
	case vc.PendingBytesLeft > len(continuation):
		// FHP wins: the packet is cut short at the FHP boundary.
		vc.appendToTail(continuation)
		vc.PendingBytesLeft = 0
	default:
		vc.appendToTail(continuation)
		vc.PendingBytesLeft = 0
	}

	return data, true
}

// storePackets runs the emission phase: carve as many complete packets as
// possible out of data, starting a new queue entry for each, and leave the
// trailing incomplete packet (if any) as the new tail with PendingBytesLeft
// set to what it still owes.
func storePackets(cfg Config, vc *VirtualChannel, frame Frame, data []byte) {
	for len(data) > 0 {
		var entry []byte
		if cfg.PrefixPackets {
			entry = append(entry, frame.Headers...)
		}
		vc.PacketQueue = append(vc.PacketQueue, entry)

		if len(data) < SpacePacketHeaderLength {
			vc.appendToTail(data)
			vc.PendingBytesLeft = SpacePacketHeaderLength - len(data)
			return
		}

		plen := packetLength(data[:SpacePacketHeaderLength])
		if plen > len(data) {
			vc.appendToTail(data)
			vc.PendingBytesLeft = plen - len(data)
			return
		}

		vc.appendToTail(data[:plen])
		data = data[plen:]
	}
}
