package ccsds

import "fmt"

// Config is an immutable description of the CCSDS TM Transfer Frame layout
// this demultiplexer expects. It is created once, at construction time,
// and never mutated afterward.
type Config struct {
	FrameLength            int
	SecondaryHeaderLength  int
	HasOCF                 bool
	HasFECF                bool
	PrefixPackets          bool
	IncludeIdlePackets     bool

	// Derived fields, computed once by NewConfig.
	FrameHeadersLength   int
	FrameTrailerLength   int
	FrameDataFieldLength int
	PacketPrefixLength   int
}

// NewConfig builds a Config from the six positional construction
// parameters describing a mission's frame layout, validating and deriving
// the rest.
func NewConfig(frameLength, secondaryHeaderLength int, hasOCF, hasFECF bool, prefixPackets, includeIdlePackets bool) (Config, error) {
	cfg := Config{
		FrameLength:           frameLength,
		SecondaryHeaderLength: secondaryHeaderLength,
		HasOCF:                hasOCF,
		HasFECF:               hasFECF,
		PrefixPackets:         prefixPackets,
		IncludeIdlePackets:    includeIdlePackets,
	}

	if secondaryHeaderLength < 0 {
		return Config{}, fmt.Errorf("ccsds: secondary header length must be >= 0, got %d", secondaryHeaderLength)
	}

	cfg.FrameHeadersLength = PrimaryHeaderLength + secondaryHeaderLength

	trailer := 0
	if hasOCF {
		trailer += OCFLength
	}
	if hasFECF {
		trailer += FECFLength
	}
	cfg.FrameTrailerLength = trailer

	cfg.FrameDataFieldLength = frameLength - cfg.FrameHeadersLength - cfg.FrameTrailerLength
	if cfg.FrameDataFieldLength < 1 {
		return Config{}, fmt.Errorf("ccsds: frame_length %d too small for headers(%d)+trailer(%d)+1 data byte",
			frameLength, cfg.FrameHeadersLength, cfg.FrameTrailerLength)
	}

	if prefixPackets {
		cfg.PacketPrefixLength = cfg.FrameHeadersLength
	}

	return cfg, nil
}
