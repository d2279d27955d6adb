package frame

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/sirupsen/logrus"
)

// Buffer is a single raster frame quantized into square blocks.
//
// The pixel storage is owned exclusively by the Buffer. A Buffer is not safe
// for concurrent mutation; encode workers each allocate their own.
type Buffer struct {
	img       *image.RGBA
	blockSize int
	size      image.Point
	usable    image.Point
}

// New allocates an opaque black frame of width x height pixels using the
// given block size. The usable area is trimmed to a multiple of blockSize;
// New does not require the dimensions to be divisible.
func New(blockSize, width, height int) (*Buffer, error) {
	if blockSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBlockSize, blockSize)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xFF
	}

	return newBuffer(img, blockSize), nil
}

// FromImage wraps a decoded container frame for block reading.
//
// When instruction is false the image dimensions must be divisible by
// blockSize, otherwise ErrDimensionMismatch is returned. The instruction
// frame is exempt because it always uses a fixed block size regardless of
// the data frame geometry.
func FromImage(img image.Image, blockSize int, instruction bool) (*Buffer, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidDimensions)
	}
	if blockSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBlockSize, blockSize)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}

	if !instruction && (width%blockSize != 0 || height%blockSize != 0) {
		logrus.WithFields(logrus.Fields{
			"function":   "FromImage",
			"width":      width,
			"height":     height,
			"block_size": blockSize,
		}).Error("Frame is not a multiple of the block size")
		return nil, fmt.Errorf("%w: %dx%d with block size %d", ErrDimensionMismatch, width, height, blockSize)
	}

	return newBuffer(toRGBA(img), blockSize), nil
}

func newBuffer(img *image.RGBA, blockSize int) *Buffer {
	size := img.Bounds().Size()
	return &Buffer{
		img:       img,
		blockSize: blockSize,
		size:      size,
		usable: image.Point{
			X: size.X - size.X%blockSize,
			Y: size.Y - size.Y%blockSize,
		},
	}
}

// toRGBA returns img itself when it is already a zero-origin RGBA image and a
// converted copy otherwise.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return rgba
}

// Image returns the underlying pixel grid.
func (b *Buffer) Image() *image.RGBA {
	return b.img
}

// BlockSize returns the edge length of a block in pixels.
func (b *Buffer) BlockSize() int {
	return b.blockSize
}

// Size returns the full frame dimensions.
func (b *Buffer) Size() image.Point {
	return b.size
}

// UsableSize returns the frame dimensions trimmed to a multiple of the block size.
func (b *Buffer) UsableSize() image.Point {
	return b.usable
}

// Capacity returns the number of blocks in the frame.
func (b *Buffer) Capacity() int {
	return (b.usable.X / b.blockSize) * (b.usable.Y / b.blockSize)
}

// UnitCapacity returns how many payload units of the given mode fit in the frame.
func (b *Buffer) UnitCapacity(mode Mode) int {
	return b.Capacity() * mode.UnitsPerBlock()
}

// Blocks returns the anchor of every block in row-major order.
func (b *Buffer) Blocks() []image.Point {
	points := make([]image.Point, 0, b.Capacity())
	b.walk(func(p image.Point) bool {
		points = append(points, p)
		return true
	})
	return points
}

// Capacity returns the number of blocks a width x height frame holds at the
// given block size, without allocating the frame.
func Capacity(blockSize, width, height int) int {
	if blockSize <= 0 || width <= 0 || height <= 0 {
		return 0
	}
	return (width / blockSize) * (height / blockSize)
}
