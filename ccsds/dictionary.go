package ccsds

// Dictionary is an optional, minimal APID naming table. It is not part of
// the core reassembly path, nothing in frame.go, packet.go, vc.go, or
// demux.go ever consults it, it exists only so a host that already knows
// its mission's APID assignments can label packets coming out of a Demux
// without re-deriving the idle check itself.
type Dictionary struct {
	names map[int]string
}

// NewDictionary builds a Dictionary from an APID-to-name table.
func NewDictionary(names map[int]string) *Dictionary {
	d := &Dictionary{names: make(map[int]string, len(names))}
	for apid, name := range names {
		d.names[apid] = name
	}
	return d
}

// Name returns the configured name for apid, if any.
func (d *Dictionary) Name(apid int) (string, bool) {
	if d == nil {
		return "", false
	}
	name, ok := d.names[apid]
	return name, ok
}

// PacketAPID returns the APID of a packet previously emitted by a Demux
// configured with the given packet prefix length (0 if prefixing is off).
func PacketAPID(pkt []byte, packetPrefixLength int) (int, bool) {
	if packetPrefixLength+2 > len(pkt) {
		return 0, false
	}
	return packetAPID(pkt[packetPrefixLength:]), true
}

// IsIdle reports whether a packet previously emitted by a Demux is an
// idle packet, i.e. has APID IdleAPID.
func IsIdle(pkt []byte, packetPrefixLength int) bool {
	apid, ok := PacketAPID(pkt, packetPrefixLength)
	return ok && apid == IdleAPID
}
