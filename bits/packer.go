package bits

// Packer accumulates bits across calls and packs them into bytes, most
// significant bit first. Bit groups may straddle calls, which lets a decoder
// feed one frame at a time even when a frame's bit capacity is not a
// multiple of 8.
type Packer struct {
	out     []byte
	pending byte
	n       uint8 // bits held in pending (0..7)
}

// NewPacker creates a packer with room for sizeHint bytes.
func NewPacker(sizeHint int) *Packer {
	if sizeHint < 0 {
		sizeHint = 0
	}
	return &Packer{out: make([]byte, 0, sizeHint)}
}

// WriteBit appends a single bit.
func (p *Packer) WriteBit(bit bool) {
	p.pending <<= 1
	if bit {
		p.pending |= 1
	}
	p.n++
	if p.n == 8 {
		p.out = append(p.out, p.pending)
		p.pending = 0
		p.n = 0
	}
}

// Write appends all bits in order.
func (p *Packer) Write(bits []bool) {
	for _, bit := range bits {
		p.WriteBit(bit)
	}
}

// Pending reports how many bits are waiting for a complete byte.
func (p *Packer) Pending() int {
	return int(p.n)
}

// Len returns the number of complete bytes packed so far.
func (p *Packer) Len() int {
	return len(p.out)
}

// Bytes returns the packed bytes. Pending bits that do not fill a byte are
// not included.
func (p *Packer) Bytes() []byte {
	return p.out
}
