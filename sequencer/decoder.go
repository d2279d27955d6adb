package sequencer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/etcher/bits"
	"github.com/opd-ai/etcher/container"
	"github.com/opd-ai/etcher/frame"
	"github.com/opd-ai/etcher/instruction"
	"github.com/opd-ai/etcher/limits"
)

// Decoder recovers a payload from an etched frame sequence.
type Decoder struct {
	progress ProgressFunc
}

// NewDecoder creates a decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// OnProgress registers a callback invoked after each data frame is decoded.
func (d *Decoder) OnProgress(fn ProgressFunc) {
	d.progress = fn
}

// Decode reads the instruction frame and then every data frame up to the
// final one announced by the header, returning the recovered bytes.
//
// Frames after the final data frame are never read. A container that ends
// early fails with container.ErrContainerRead.
func (d *Decoder) Decode(ctx context.Context, r container.Reader) ([]byte, error) {
	start := time.Now()

	first, err := r.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: container holds no frames", container.ErrContainerRead)
		}
		return nil, wrapRead(err)
	}

	header, err := instruction.ParseImage(first)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Decoder.Decode",
			"error":    err.Error(),
		}).Error("Cannot read instruction frame")
		return nil, err
	}

	size := first.Bounds().Size()
	blockSize := int(header.BlockSize)
	frameUnits := frame.Capacity(blockSize, size.X, size.Y) * header.Mode.UnitsPerBlock()
	if frameUnits <= 0 {
		return nil, fmt.Errorf("%w: block size %d leaves no blocks in %v", instruction.ErrHeaderDecode, blockSize, size)
	}
	if int(header.FinalCount) > frameUnits {
		return nil, fmt.Errorf("%w: final frame count %d exceeds frame capacity %d",
			instruction.ErrHeaderDecode, header.FinalCount, frameUnits)
	}

	totalFrames := int(header.FinalFrame) + 1
	totalUnits := uint64(header.FinalFrame)*uint64(frameUnits) + uint64(header.FinalCount)
	if err := limits.ValidateUnits(int(min(totalUnits, uint64(limits.MaxPayload)*8+1))); err != nil {
		return nil, fmt.Errorf("%w: header announces %d units: %w", instruction.ErrHeaderDecode, totalUnits, err)
	}

	logrus.WithFields(logrus.Fields{
		"function":     "Decoder.Decode",
		"mode":         header.Mode,
		"block_size":   blockSize,
		"data_frames":  totalFrames,
		"final_count":  header.FinalCount,
		"total_units":  totalUnits,
		"frame_width":  size.X,
		"frame_height": size.Y,
	}).Info("Dislodging payload")

	sink := newUnitSink(header.Mode, int(totalUnits))
	for i := 0; i < totalFrames; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		img, err := r.Next()
		if errors.Is(err, io.EOF) {
			logrus.WithFields(logrus.Fields{
				"function": "Decoder.Decode",
				"read":     i,
				"expected": totalFrames,
			}).Error("Container ended before final data frame")
			return nil, fmt.Errorf("%w: container ended after %d of %d data frames",
				container.ErrContainerRead, i, totalFrames)
		}
		if err != nil {
			return nil, wrapRead(err)
		}

		if got := img.Bounds().Size(); got != size {
			return nil, fmt.Errorf("%w: data frame %d is %v, instruction frame is %v",
				frame.ErrDimensionMismatch, i, got, size)
		}

		limit := frameUnits
		if i == totalFrames-1 {
			limit = int(header.FinalCount)
		}
		if err := sink.readFrame(img, blockSize, limit); err != nil {
			return nil, fmt.Errorf("data frame %d: %w", i, err)
		}

		if d.progress != nil {
			d.progress(i+1, totalFrames)
		}
	}

	out := sink.bytes()

	logrus.WithFields(logrus.Fields{
		"function": "Decoder.Decode",
		"bytes":    len(out),
		"duration": time.Since(start).String(),
	}).Info("Payload dislodged successfully")

	return out, nil
}

func wrapRead(err error) error {
	if errors.Is(err, container.ErrContainerRead) {
		return err
	}
	return fmt.Errorf("%w: %w", container.ErrContainerRead, err)
}

// unitSink accumulates decoded units across frames. Binary mode bits may
// straddle frame boundaries, so they are packed as a stream.
type unitSink struct {
	mode   frame.Mode
	packer *bits.Packer
	data   []byte
}

// maxSizeHint caps the preallocation taken from an untrusted header.
const maxSizeHint = 64 << 20

func newUnitSink(mode frame.Mode, units int) *unitSink {
	if mode == frame.ModeColor {
		return &unitSink{mode: mode, data: make([]byte, 0, min(units, maxSizeHint))}
	}
	return &unitSink{mode: mode, packer: bits.NewPacker(min(units/8, maxSizeHint))}
}

func (s *unitSink) readFrame(img image.Image, blockSize, limit int) error {
	buf, err := frame.FromImage(img, blockSize, false)
	if err != nil {
		return err
	}

	if s.mode == frame.ModeColor {
		data := buf.ReadBytes()
		s.data = append(s.data, data[:min(limit, len(data))]...)
		return nil
	}

	b := buf.ReadBits()
	s.packer.Write(b[:min(limit, len(b))])
	return nil
}

func (s *unitSink) bytes() []byte {
	if s.mode == frame.ModeColor {
		return s.data
	}
	if n := s.packer.Pending(); n > 0 {
		logrus.WithFields(logrus.Fields{
			"function": "unitSink.bytes",
			"bits":     n,
		}).Warn("Dropping trailing bits that do not form a byte")
	}
	return s.packer.Bytes()
}
