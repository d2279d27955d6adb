package frame

import (
	"image"
	"image/color"

	"github.com/sirupsen/logrus"
)

// Threshold is the red channel mean at or above which a binary block reads as 1.
const Threshold = 127

var (
	white = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	black = color.RGBA{A: 0xFF}
)

// BitColor returns the fill colour for a binary block.
func BitColor(bit bool) color.RGBA {
	if bit {
		return white
	}
	return black
}

// BitFromColor thresholds a block mean back into a bit.
func BitFromColor(c color.RGBA) bool {
	return c.R >= Threshold
}

// ColorUnit returns the fill colour carrying three payload bytes.
func ColorUnit(r, g, bl byte) color.RGBA {
	return color.RGBA{R: r, G: g, B: bl, A: 0xFF}
}

// inBlock reports whether the block anchored at (x, y) lies inside the usable area.
func (b *Buffer) inBlock(x, y int) bool {
	return x >= 0 && y >= 0 &&
		x+b.blockSize <= b.usable.X &&
		y+b.blockSize <= b.usable.Y
}

// EtchBlock fills the block anchored at (x, y) with a uniform colour.
// It returns false and writes nothing when the block leaves the usable area.
func (b *Buffer) EtchBlock(x, y int, c color.RGBA) bool {
	if !b.inBlock(x, y) {
		logrus.WithFields(logrus.Fields{
			"function":   "Buffer.EtchBlock",
			"x":          x,
			"y":          y,
			"block_size": b.blockSize,
			"usable":     b.usable,
		}).Debug("Block outside usable area, skipping write")
		return false
	}

	for row := y; row < y+b.blockSize; row++ {
		off := b.img.PixOffset(x, row)
		for i := 0; i < b.blockSize; i++ {
			px := b.img.Pix[off : off+4 : off+4]
			px[0], px[1], px[2], px[3] = c.R, c.G, c.B, 0xFF
			off += 4
		}
	}
	return true
}

// ReadBlock returns the per-channel integer mean of the block anchored at
// (x, y). The second result is false when the block leaves the usable area.
func (b *Buffer) ReadBlock(x, y int) (color.RGBA, bool) {
	if !b.inBlock(x, y) {
		logrus.WithFields(logrus.Fields{
			"function":   "Buffer.ReadBlock",
			"x":          x,
			"y":          y,
			"block_size": b.blockSize,
			"usable":     b.usable,
		}).Debug("Block outside usable area, no value")
		return color.RGBA{}, false
	}

	var r, g, bl int
	for row := y; row < y+b.blockSize; row++ {
		off := b.img.PixOffset(x, row)
		for i := 0; i < b.blockSize; i++ {
			r += int(b.img.Pix[off])
			g += int(b.img.Pix[off+1])
			bl += int(b.img.Pix[off+2])
			off += 4
		}
	}

	n := b.blockSize * b.blockSize
	return color.RGBA{R: uint8(r / n), G: uint8(g / n), B: uint8(bl / n), A: 0xFF}, true
}

// EtchBits writes bits into consecutive blocks in row-major order, one bit
// per block, and returns the number of bits consumed. It stops when either
// the bits or the frame capacity run out.
func (b *Buffer) EtchBits(bits []bool) int {
	n := 0
	b.walk(func(p image.Point) bool {
		if n >= len(bits) {
			return false
		}
		b.EtchBlock(p.X, p.Y, BitColor(bits[n]))
		n++
		return true
	})
	return n
}

// EtchBytes writes data into consecutive blocks in row-major order, three
// bytes per block as R, G and B, and returns the number of bytes consumed.
// A final block with fewer than three remaining bytes is zero padded.
func (b *Buffer) EtchBytes(data []byte) int {
	n := 0
	b.walk(func(p image.Point) bool {
		if n >= len(data) {
			return false
		}
		var unit [3]byte
		copied := copy(unit[:], data[n:])
		b.EtchBlock(p.X, p.Y, ColorUnit(unit[0], unit[1], unit[2]))
		n += copied
		return true
	})
	return n
}

// ReadBits decodes every block of the frame as one bit, row-major.
func (b *Buffer) ReadBits() []bool {
	out := make([]bool, 0, b.Capacity())
	b.walk(func(p image.Point) bool {
		if c, ok := b.ReadBlock(p.X, p.Y); ok {
			out = append(out, BitFromColor(c))
		}
		return true
	})
	return out
}

// ReadBytes decodes every block of the frame as three bytes, row-major.
func (b *Buffer) ReadBytes() []byte {
	out := make([]byte, 0, b.Capacity()*3)
	b.walk(func(p image.Point) bool {
		if c, ok := b.ReadBlock(p.X, p.Y); ok {
			out = append(out, c.R, c.G, c.B)
		}
		return true
	})
	return out
}

// walk visits block anchors in row-major order until fn returns false.
func (b *Buffer) walk(fn func(image.Point) bool) {
	for y := 0; y < b.usable.Y; y += b.blockSize {
		for x := 0; x < b.usable.X; x += b.blockSize {
			if !fn(image.Point{X: x, Y: y}) {
				return
			}
		}
	}
}
