package container

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"os"

	"github.com/sirupsen/logrus"
)

func init() {
	Register(aviBackend{})
}

const (
	// aviHeaderSize spans the RIFF header, the hdrl list and the movi list
	// header up to and including the "movi" list type.
	aviHeaderSize = 224

	aviHdrlSize = 4 + (8 + 56) + (8 + 116)
	aviStrlSize = 4 + (8 + 56) + (8 + 40)

	avifHasIndex  = 0x10
	aviifKeyframe = 0x10

	aviTimeScale = 1000
)

// aviBackend writes AVI 1.0 files with a single video stream.
type aviBackend struct{}

func (aviBackend) Name() string { return BackendAVI }

func (aviBackend) Codecs() (primary, fallback string) { return "MPNG", "DIB " }

func (aviBackend) Create(path, codec string, fps float64, width, height int) (Writer, error) {
	fc, err := lookupAVICodec(codec)
	if err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 || width > math.MaxUint16 || height > math.MaxUint16 {
		return nil, fmt.Errorf("invalid AVI frame size %dx%d", width, height)
	}
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		return nil, fmt.Errorf("invalid AVI frame rate %v", fps)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}

	w := &aviWriter{
		f:      f,
		out:    bufio.NewWriter(f),
		codec:  fc,
		width:  width,
		height: height,
		fps:    fps,
	}
	if err := w.writeHeader(w.out); err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	return w, nil
}

func (aviBackend) Open(path string) (Reader, error) {
	r, err := openAVI(path)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (aviBackend) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// binaryWriter wraps an io.Writer and accumulates the first error,
// preventing silently-ignored write failures throughout the AVI assembly.
type binaryWriter struct {
	w   io.Writer
	err error
}

func (bw *binaryWriter) fourCC(s string) {
	if bw.err != nil {
		return
	}
	_, bw.err = bw.w.Write([]byte(s))
}

func (bw *binaryWriter) u32(v uint32) {
	if bw.err != nil {
		return
	}
	bw.err = binary.Write(bw.w, binary.LittleEndian, v)
}

func (bw *binaryWriter) u16(v uint16) {
	if bw.err != nil {
		return
	}
	bw.err = binary.Write(bw.w, binary.LittleEndian, v)
}

func (bw *binaryWriter) bytes(data []byte) {
	if bw.err != nil {
		return
	}
	_, bw.err = bw.w.Write(data)
}

type aviIndexEntry struct {
	offset uint32 // relative to the "movi" list type
	size   uint32
}

// aviWriter streams frames into the movi list and patches the header sizes
// and frame counts on Close.
type aviWriter struct {
	f      *os.File
	out    *bufio.Writer
	codec  frameCodec
	width  int
	height int
	fps    float64

	index     []aviIndexEntry
	moviBytes uint64 // bytes of frame chunks after the "movi" list type
	maxChunk  uint32
	closed    bool
}

func (w *aviWriter) WriteFrame(img image.Image) error {
	if w.closed {
		return errors.New("write to closed AVI writer")
	}
	if size := img.Bounds().Size(); size.X != w.width || size.Y != w.height {
		return fmt.Errorf("frame size %v does not match stream %dx%d", size, w.width, w.height)
	}

	data, err := w.codec.Encode(img)
	if err != nil {
		return err
	}

	size := uint32(len(data))
	padded := uint64(size) + uint64(size&1)
	if w.moviBytes+8+padded+uint64(len(w.index)+1)*16+aviHeaderSize > math.MaxUint32 {
		return errors.New("AVI 1.0 file size limit exceeded")
	}

	bw := &binaryWriter{w: w.out}
	bw.fourCC(w.codec.ChunkID())
	bw.u32(size)
	bw.bytes(data)
	if size&1 != 0 {
		bw.bytes([]byte{0})
	}
	if bw.err != nil {
		return fmt.Errorf("write AVI frame: %w", bw.err)
	}

	w.index = append(w.index, aviIndexEntry{offset: uint32(4 + w.moviBytes), size: size})
	w.moviBytes += 8 + padded
	w.maxChunk = max(w.maxChunk, size)

	logrus.WithFields(logrus.Fields{
		"function": "aviWriter.WriteFrame",
		"frame":    len(w.index) - 1,
		"bytes":    size,
	}).Debug("Frame written")

	return nil
}

func (w *aviWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	bw := &binaryWriter{w: w.out}
	bw.fourCC("idx1")
	bw.u32(uint32(len(w.index) * 16))
	for _, e := range w.index {
		bw.fourCC(w.codec.ChunkID())
		bw.u32(aviifKeyframe)
		bw.u32(e.offset)
		bw.u32(e.size)
	}
	if bw.err == nil {
		bw.err = w.out.Flush()
	}
	if bw.err != nil {
		w.f.Close()
		return fmt.Errorf("write AVI index: %w", bw.err)
	}

	if _, err := w.f.Seek(0, io.SeekStart); err != nil {
		w.f.Close()
		return fmt.Errorf("seek AVI header: %w", err)
	}
	header := bufio.NewWriterSize(w.f, aviHeaderSize)
	if err := w.writeHeader(header); err != nil {
		w.f.Close()
		return err
	}
	if err := header.Flush(); err != nil {
		w.f.Close()
		return fmt.Errorf("write AVI header: %w", err)
	}

	if err := w.f.Sync(); err != nil {
		w.f.Close()
		return fmt.Errorf("sync AVI file: %w", err)
	}
	return w.f.Close()
}

// writeHeader writes the RIFF header, hdrl list and movi list header using
// the counts accumulated so far.
func (w *aviWriter) writeHeader(out io.Writer) error {
	frames := uint32(len(w.index))
	moviSize := uint32(4 + w.moviBytes)
	idx1Size := 8 + frames*16
	riffSize := 4 + (8 + aviHdrlSize) + (8 + moviSize) + idx1Size

	imgW, imgH := uint32(w.width), uint32(w.height)
	usPerFrame := uint32(math.Round(1_000_000 / w.fps))
	rate := uint32(math.Round(w.fps * aviTimeScale))
	suggested := max(w.maxChunk, imgW*imgH*3)
	maxBytesPerSec := uint32(math.Min(float64(suggested)*w.fps, math.MaxUint32))

	bw := &binaryWriter{w: out}

	// RIFF header
	bw.fourCC("RIFF")
	bw.u32(riffSize)
	bw.fourCC("AVI ")

	// hdrl LIST
	bw.fourCC("LIST")
	bw.u32(aviHdrlSize)
	bw.fourCC("hdrl")

	// avih (56 bytes)
	bw.fourCC("avih")
	bw.u32(56)
	bw.u32(usPerFrame)
	bw.u32(maxBytesPerSec)
	bw.u32(0) // padding granularity
	bw.u32(avifHasIndex)
	bw.u32(frames)
	bw.u32(0) // initial frames
	bw.u32(1) // streams
	bw.u32(suggested)
	bw.u32(imgW)
	bw.u32(imgH)
	bw.u32(0) // reserved x4
	bw.u32(0)
	bw.u32(0)
	bw.u32(0)

	// strl LIST
	bw.fourCC("LIST")
	bw.u32(aviStrlSize)
	bw.fourCC("strl")

	// strh (56 bytes)
	bw.fourCC("strh")
	bw.u32(56)
	bw.fourCC("vids")
	bw.fourCC(w.codec.FourCC())
	bw.u32(0) // flags
	bw.u16(0) // priority
	bw.u16(0) // language
	bw.u32(0) // initial frames
	bw.u32(aviTimeScale)
	bw.u32(rate)
	bw.u32(0) // start
	bw.u32(frames)
	bw.u32(suggested)
	bw.u32(0) // quality
	bw.u32(0) // sample size
	bw.u16(0) // rect left
	bw.u16(0) // rect top
	bw.u16(uint16(imgW))
	bw.u16(uint16(imgH))

	// strf BITMAPINFOHEADER (40 bytes)
	bw.fourCC("strf")
	bw.u32(40)
	bw.u32(40)
	bw.u32(imgW)
	bw.u32(imgH) // positive: bottom-up rows
	bw.u16(1)    // planes
	bw.u16(24)   // bpp
	bw.u32(w.codec.Compression())
	bw.u32(uint32(dibStride(w.width)) * imgH)
	bw.u32(0) // x pels/m
	bw.u32(0) // y pels/m
	bw.u32(0) // clr used
	bw.u32(0) // clr important

	// movi LIST header
	bw.fourCC("LIST")
	bw.u32(moviSize)
	bw.fourCC("movi")

	if bw.err != nil {
		return fmt.Errorf("write AVI header: %w", bw.err)
	}
	return nil
}
