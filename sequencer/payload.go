package sequencer

import (
	"github.com/opd-ai/etcher/bits"
	"github.com/opd-ai/etcher/frame"
)

// Payload is the data to etch: either a bit sequence for binary mode or a
// byte sequence for colour mode. Exactly one variant is populated.
type Payload struct {
	mode  frame.Mode
	bits  []bool
	bytes []byte
}

// BinaryPayload wraps a bit sequence, packed one bit per block.
func BinaryPayload(b []bool) Payload {
	return Payload{mode: frame.ModeBinary, bits: b}
}

// ColorPayload wraps a byte sequence, packed three bytes per block.
func ColorPayload(data []byte) Payload {
	return Payload{mode: frame.ModeColor, bytes: data}
}

// PayloadFromBytes builds the payload variant matching mode from raw bytes.
func PayloadFromBytes(mode frame.Mode, data []byte) Payload {
	if mode == frame.ModeColor {
		return ColorPayload(data)
	}
	return BinaryPayload(bits.FromBytes(data))
}

// Mode returns the payload mode.
func (p Payload) Mode() frame.Mode {
	return p.mode
}

// Len returns the payload length in units: bits for binary, bytes for colour.
func (p Payload) Len() int {
	if p.mode == frame.ModeColor {
		return len(p.bytes)
	}
	return len(p.bits)
}

// slice returns the units in [start, end) as a payload of the same mode.
func (p Payload) slice(start, end int) Payload {
	if p.mode == frame.ModeColor {
		return Payload{mode: p.mode, bytes: p.bytes[start:end]}
	}
	return Payload{mode: p.mode, bits: p.bits[start:end]}
}

// etchInto writes units starting at pos into buf and returns how many were
// consumed.
func (p Payload) etchInto(buf *frame.Buffer, pos int) int {
	if p.mode == frame.ModeColor {
		return buf.EtchBytes(p.bytes[pos:])
	}
	return buf.EtchBits(p.bits[pos:])
}
