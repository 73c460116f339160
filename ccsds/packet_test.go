package ccsds

import "testing"

func TestPacketLength(t *testing.T) {
	hdr := []byte{0x05, 0x06, 0x07, 0x08, 0x00, 0x02}
	if got := packetLength(hdr); got != 9 {
		t.Errorf("packetLength = %d, want 9", got)
	}
}

func TestPacketLengthZeroData(t *testing.T) {
	hdr := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x00}
	if got := packetLength(hdr); got != 7 {
		t.Errorf("packetLength = %d, want 7", got)
	}
}

func TestPacketAPID(t *testing.T) {
	hdr := []byte{0x07, 0xFF, 0, 0, 0, 0}
	if got := packetAPID(hdr); got != IdleAPID {
		t.Errorf("packetAPID = %#x, want %#x", got, IdleAPID)
	}

	hdr2 := []byte{0x3F, 0xFF, 0, 0, 0, 0}
	if got := packetAPID(hdr2); got != IdleAPID {
		t.Errorf("packetAPID with version/type bits set = %#x, want %#x", got, IdleAPID)
	}
}

func TestIsIdlePacket(t *testing.T) {
	idle := []byte{0x07, 0xFF, 0, 0, 0, 0}
	if !isIdlePacket(idle, 0) {
		t.Error("expected idle packet to be detected")
	}

	notIdle := []byte{0x01, 0x02, 0, 0, 0, 0}
	if isIdlePacket(notIdle, 0) {
		t.Error("did not expect a non-idle APID to be detected as idle")
	}

	prefixed := append([]byte{0xAA, 0xBB, 0xCC}, idle...)
	if !isIdlePacket(prefixed, 3) {
		t.Error("expected idle packet to be detected after a prefix")
	}
}

func TestPacketLengthPanicsOnShortHeader(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected packetLength to panic on a short header")
		}
	}()
	packetLength([]byte{0x01, 0x02})
}
