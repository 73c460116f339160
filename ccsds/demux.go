package ccsds

import "fmt"

// ResultKind identifies what a Demux.Consume call handed back.
type ResultKind int

const (
	// NeedMore means no packet is ready yet; the caller should supply
	// more bytes on its next Consume call.
	NeedMore ResultKind = iota
	// HasPacket means Result.Packet holds one complete, ready-to-deliver
	// packet.
	HasPacket
	// PassThrough means no packet is ready and the caller passed no new
	// bytes this call, used when this demultiplexer sits behind another
	// pull-style protocol and an empty delivery should be forwarded
	// downstream rather than treated as "try again soon".
	PassThrough
)

// Result is the tagged return value of Demux.Consume.
type Result struct {
	Kind   ResultKind
	Packet []byte
}

// Stats is a read-only snapshot of counters accumulated as a side effect
// of Consume. Nothing in the reassembly logic ever reads Stats back, it
// exists purely for host introspection (see server/server.go).
type Stats struct {
	FramesConsumed       int
	IdleFramesDropped    int
	PacketsEmitted       [8]int
	IdlePacketsDiscarded [8]int
	BytesBuffered        int
}

// Demux is the stream accumulator and public consume protocol: it buffers
// raw bytes until a whole frame is available, dispatches that frame to the
// per-VC reassemblers, and lets the caller pull completed packets out one
// at a time.
//
// Demux is single-threaded and fully synchronous: nothing here blocks or
// spawns a goroutine. Bytes are kept across calls only in copies held by
// the accumulator and the per-VC packet queues. Concurrent calls to
// Consume on the same Demux from multiple goroutines are not safe; the
// host must serialize them (server/server.go does this by holding one
// mutex around every call it makes on the Demux).
type Demux struct {
	cfg   Config
	vcs   [8]VirtualChannel
	buf   []byte
	pos   int
	stats Stats
}

// NewDemux constructs a Demux ready to consume a fresh stream.
func NewDemux(cfg Config) *Demux {
	return &Demux{cfg: cfg}
}

// Reset discards all buffered bytes and all per-VC reassembly state,
// returning the Demux to the same state NewDemux would produce. The host
// calls this when it re-initializes the underlying stream (e.g. a new
// connection after a drop).
func (d *Demux) Reset() {
	*d = Demux{cfg: d.cfg}
}

// Config returns the immutable configuration this Demux was built with.
func (d *Demux) Config() Config {
	return d.cfg
}

// Consume appends data to the accumulator, advances at most one frame
// through the reassembler, and returns either a ready packet or a
// need-more-data/pass-through signal. Callers drain a backlog of several
// buffered frames by calling Consume repeatedly with empty input.
func (d *Demux) Consume(data []byte) Result {
	d.buf = append(d.buf, data...)

	if len(d.buf)-d.pos >= d.cfg.FrameLength {
		frameBytes := d.buf[d.pos : d.pos+d.cfg.FrameLength]
		d.pos += d.cfg.FrameLength
		d.dispatchFrame(frameBytes)
		d.compact()
	}

	if pkt, ok := d.emitOne(); ok {
		return Result{Kind: HasPacket, Packet: pkt}
	}

	if len(data) == 0 {
		return Result{Kind: PassThrough}
	}
	return Result{Kind: NeedMore}
}

// dispatchFrame parses exactly one frame_length-byte frame and hands it
// to the selected virtual channel's reassembler. An idle frame
// (FHP == FHPIdleFrame) is dropped here, before any VC is even selected,
// so it causes no state change anywhere.
func (d *Demux) dispatchFrame(buf []byte) {
	frame, err := ParseFrame(d.cfg, buf)
	if err != nil {
		// buf is always exactly d.cfg.FrameLength bytes by construction
		// above; a mismatch here is an implementation bug, not bad data.
		panic(fmt.Sprintf("ccsds: internal error framing a %d-byte chunk: %v", len(buf), err))
	}

	d.stats.FramesConsumed++
	if frame.FHP == FHPIdleFrame {
		d.stats.IdleFramesDropped++
		return
	}

	processFrame(d.cfg, &d.vcs[frame.VCID], frame)
}

// emitOne runs the idle-packet filter: it walks the virtual channels in
// ascending VCID order, pops completed packets from the front of each
// one's queue, and returns the first that survives the idle filter (or
// every packet, if IncludeIdlePackets is set).
func (d *Demux) emitOne() ([]byte, bool) {
	for vcid := 0; vcid < len(d.vcs); vcid++ {
		vc := &d.vcs[vcid]
		for len(vc.PacketQueue) > 0 {
			if len(vc.PacketQueue) == 1 && vc.PendingBytesLeft > 0 {
				// The sole entry is the incomplete tail; nothing to
				// deliver from this VC yet.
				break
			}

			pkt := vc.PacketQueue[0]
			vc.PacketQueue = vc.PacketQueue[1:]

			if !d.cfg.IncludeIdlePackets && isIdlePacket(pkt, d.cfg.PacketPrefixLength) {
				d.stats.IdlePacketsDiscarded[vcid]++
				continue
			}

			d.stats.PacketsEmitted[vcid]++
			return pkt, true
		}
	}
	return nil, false
}

// compact slides unconsumed accumulator bytes down to the front once the
// read cursor has passed the halfway point, keeping the backing array
// from growing without bound while still avoiding an O(n) shift on every
// single frame.
func (d *Demux) compact() {
	if d.pos == 0 || d.pos <= len(d.buf)/2 {
		return
	}
	remaining := copy(d.buf, d.buf[d.pos:])
	d.buf = d.buf[:remaining]
	d.pos = 0
}

// Stats returns a snapshot of the counters accumulated so far.
func (d *Demux) Stats() Stats {
	s := d.stats
	s.BytesBuffered = len(d.buf) - d.pos
	return s
}

// VCSnapshot reports the current queue depth and pending-byte count for
// one virtual channel, for host introspection (server/server.go's
// /vc/{vcid} route). ok is false for vcid outside 0..7.
func (d *Demux) VCSnapshot(vcid int) (queueDepth, pendingBytesLeft int, ok bool) {
	if vcid < 0 || vcid >= len(d.vcs) {
		return 0, 0, false
	}
	vc := &d.vcs[vcid]
	return len(vc.PacketQueue), vc.PendingBytesLeft, true
}
