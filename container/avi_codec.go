package container

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"
)

// frameCodec serializes single frames inside an AVI movi list.
type frameCodec interface {
	// FourCC is the stream handler code.
	FourCC() string
	// Compression is the BITMAPINFOHEADER biCompression value.
	Compression() uint32
	// ChunkID is the movi chunk id of a video frame.
	ChunkID() string
	Encode(img image.Image) ([]byte, error)
	Decode(data []byte, width, height int) (image.Image, error)
}

// fourCC normalizes a codec name to a four character code.
func fourCC(name string) string {
	code := strings.ToUpper(name)
	if len(code) > 4 {
		code = code[:4]
	}
	return code + strings.Repeat(" ", 4-len(code))
}

// aviCodecs lists the codecs the AVI backend can write and read.
var aviCodecs = map[string]frameCodec{
	"MPNG": pngFrameCodec{},
	"DIB ": dibFrameCodec{},
}

func lookupAVICodec(name string) (frameCodec, error) {
	c, ok := aviCodecs[fourCC(name)]
	if !ok {
		return nil, fmt.Errorf("%w: avi backend has no %q codec", ErrUnsupportedCodec, name)
	}
	return c, nil
}

// pngFrameCodec stores each frame as a PNG image.
type pngFrameCodec struct{}

func (pngFrameCodec) FourCC() string { return "MPNG" }

func (pngFrameCodec) Compression() uint32 { return fourCCValue("MPNG") }

func (pngFrameCodec) ChunkID() string { return "00dc" }

func (pngFrameCodec) Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode PNG frame: %w", err)
	}
	return buf.Bytes(), nil
}

func (pngFrameCodec) Decode(data []byte, _, _ int) (image.Image, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode PNG frame: %w", err)
	}
	return img, nil
}

// dibFrameCodec stores each frame as an uncompressed 24-bit bottom-up
// bitmap, rows padded to four bytes.
type dibFrameCodec struct{}

func (dibFrameCodec) FourCC() string { return "DIB " }

func (dibFrameCodec) Compression() uint32 { return 0 }

func (dibFrameCodec) ChunkID() string { return "00db" }

func dibStride(width int) int {
	return (width*3 + 3) &^ 3
}

func (dibFrameCodec) Encode(img image.Image) ([]byte, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	stride := dibStride(width)
	out := make([]byte, stride*height)

	rgba, _ := img.(*image.RGBA)
	for y := 0; y < height; y++ {
		row := out[(height-1-y)*stride:]
		for x := 0; x < width; x++ {
			var r, g, b uint8
			if rgba != nil {
				off := rgba.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
				r, g, b = rgba.Pix[off], rgba.Pix[off+1], rgba.Pix[off+2]
			} else {
				cr, cg, cb, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
				r, g, b = uint8(cr>>8), uint8(cg>>8), uint8(cb>>8)
			}
			row[x*3], row[x*3+1], row[x*3+2] = b, g, r
		}
	}
	return out, nil
}

func (dibFrameCodec) Decode(data []byte, width, height int) (image.Image, error) {
	if width <= 0 || height == 0 {
		return nil, fmt.Errorf("decode DIB frame: invalid dimensions %dx%d", width, height)
	}

	topDown := height < 0
	if topDown {
		height = -height
	}

	stride := dibStride(width)
	if len(data) < stride*height {
		return nil, fmt.Errorf("decode DIB frame: %d bytes, need %d", len(data), stride*height)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		srcY := height - 1 - y
		if topDown {
			srcY = y
		}
		row := data[srcY*stride:]
		for x := 0; x < width; x++ {
			off := img.PixOffset(x, y)
			img.Pix[off] = row[x*3+2]
			img.Pix[off+1] = row[x*3+1]
			img.Pix[off+2] = row[x*3]
			img.Pix[off+3] = 0xFF
		}
	}
	return img, nil
}

// fourCCValue packs a four character code little-endian, as RIFF stores it.
func fourCCValue(code string) uint32 {
	code = fourCC(code)
	return uint32(code[0]) | uint32(code[1])<<8 | uint32(code[2])<<16 | uint32(code[3])<<24
}

// fourCCString unpacks a little-endian four character code.
func fourCCString(v uint32) string {
	return string([]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)})
}
