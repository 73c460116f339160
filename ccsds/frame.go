package ccsds

import "fmt"

// Primary header and trailer field widths fixed by CCSDS 132.0-B.
const (
	PrimaryHeaderLength = 6
	OCFLength           = 4
	FECFLength          = 2
)

// Sentinel First Header Pointer values (CCSDS 132.0-B primary header).
const (
	// FHPIdleFrame marks a whole frame as idle fill; it carries no data.
	FHPIdleFrame = 0x7FE
	// FHPNoPacketStart marks a frame whose data field is pure continuation
	// of a packet started in an earlier frame.
	FHPNoPacketStart = 0x7FF
)

// Frame is one fully-buffered CCSDS TM Transfer Frame, already sliced into
// its primary-header-derived fields. It is produced by ParseFrame and
// consumed exactly once by the reassembler.
type Frame struct {
	// FHP is the First Header Pointer: FHPIdleFrame, FHPNoPacketStart, or
	// a byte offset into DataField.
	FHP int
	// VCID is the virtual channel identifier, 0..7.
	VCID int
	// Headers holds a copy of the frame's primary+secondary header bytes,
	// used only when Config.PrefixPackets is set.
	Headers []byte
	// DataField is the frame's data field, a sub-slice of the input
	// buffer (not copied, callers must not retain it past the next
	// ParseFrame call against the same backing array).
	DataField []byte
}

// ParseFrame extracts the First Header Pointer, virtual channel id, header
// bytes, and data field from exactly one frame_length-byte frame. buf must
// be exactly cfg.FrameLength bytes; the caller (the accumulator in
// demux.go) is responsible for that slicing.
func ParseFrame(cfg Config, buf []byte) (Frame, error) {
	if len(buf) != cfg.FrameLength {
		return Frame{}, fmt.Errorf("ccsds: ParseFrame called with %d bytes, want %d", len(buf), cfg.FrameLength)
	}

	fhp := (int(buf[4]&0x07) << 8) | int(buf[5])
	vcid, err := ReadUint(buf[:PrimaryHeaderLength], 12, 3)
	if err != nil {
		return Frame{}, err
	}

	headers := make([]byte, cfg.FrameHeadersLength)
	copy(headers, buf[:cfg.FrameHeadersLength])

	dataField := buf[cfg.FrameHeadersLength : cfg.FrameHeadersLength+cfg.FrameDataFieldLength]

	return Frame{
		FHP:       fhp,
		VCID:      int(vcid),
		Headers:   headers,
		DataField: dataField,
	}, nil
}
