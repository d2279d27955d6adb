// Package instruction builds and parses the self-describing header frame.
//
// The header is the first frame of every etched video. It carries five
// unsigned 32-bit words, always written with the binary block codec at a
// fixed block size of 5 regardless of the data block size:
//
//	[mode_marker, final_frame_index, final_element_count, data_block_size, end_marker]
//
// mode_marker is 0xFFFFFFFF for colour mode and 0x00000000 for binary mode.
// end_marker is the fixed sentinel 0xFFFFFFFF. The words are serialized most
// significant bit first into 160 blocks in row-major order.
package instruction

import (
	"errors"
	"fmt"
	"image"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/etcher/bits"
	"github.com/opd-ai/etcher/frame"
)

const (
	// BlockSize is the fixed block size of the instruction frame.
	BlockSize = 5

	// Words is the number of 32-bit words in a complete header.
	Words = 5

	// MinBlocks is the number of blocks needed to carry every header word
	// except the end marker.
	MinBlocks = (Words - 1) * 32

	// ColorMarker marks a colour mode payload.
	ColorMarker uint32 = 0xFFFFFFFF

	// BinaryMarker marks a binary mode payload.
	BinaryMarker uint32 = 0x00000000

	// EndMarker terminates the header.
	EndMarker uint32 = 0xFFFFFFFF
)

var (
	// ErrHeaderDecode indicates the instruction frame could not be decoded.
	ErrHeaderDecode = errors.New("instruction header decode failed")

	// ErrFrameTooSmall indicates the frame cannot hold the instruction header.
	ErrFrameTooSmall = errors.New("frame too small for instruction header")
)

// Header describes how to decode the data frames that follow it.
type Header struct {
	Mode       frame.Mode
	FinalFrame uint32 // zero-based index of the last data frame
	FinalCount uint32 // payload units held by the last data frame
	BlockSize  uint32 // block size of the data frames

	// Terminated reports whether the end marker was read back intact.
	// Build ignores it.
	Terminated bool
}

// Words returns the header serialized as its five words.
func (h Header) Words() []uint32 {
	marker := BinaryMarker
	if h.Mode == frame.ModeColor {
		marker = ColorMarker
	}
	return []uint32{marker, h.FinalFrame, h.FinalCount, h.BlockSize, EndMarker}
}

// Build etches the header into a new width x height frame.
//
// When the frame holds fewer than 160 blocks at BlockSize the trailing bits
// of the end marker are dropped; Parse tolerates this. Frames with fewer than
// MinBlocks blocks are rejected with ErrFrameTooSmall.
func Build(h Header, width, height int) (*frame.Buffer, error) {
	if h.BlockSize == 0 {
		return nil, fmt.Errorf("%w: data block size 0", frame.ErrInvalidBlockSize)
	}

	buf, err := frame.New(BlockSize, width, height)
	if err != nil {
		return nil, err
	}

	if buf.Capacity() < MinBlocks {
		logrus.WithFields(logrus.Fields{
			"function":   "instruction.Build",
			"width":      width,
			"height":     height,
			"capacity":   buf.Capacity(),
			"min_blocks": MinBlocks,
		}).Error("Frame cannot hold instruction header")
		return nil, fmt.Errorf("%w: %dx%d holds %d blocks, need %d", ErrFrameTooSmall, width, height, buf.Capacity(), MinBlocks)
	}

	headerBits := bits.FromWords(h.Words())
	written := buf.EtchBits(headerBits)

	fields := logrus.Fields{
		"function":    "instruction.Build",
		"mode":        h.Mode,
		"final_frame": h.FinalFrame,
		"final_count": h.FinalCount,
		"block_size":  h.BlockSize,
		"bits":        written,
	}
	if written < len(headerBits) {
		logrus.WithFields(fields).Warn("Instruction frame truncated, end marker incomplete")
	} else {
		logrus.WithFields(fields).Debug("Instructions written successfully")
	}

	return buf, nil
}

// Parse decodes the header from an instruction frame buffer. The buffer must
// have been created with BlockSize.
func Parse(buf *frame.Buffer) (Header, error) {
	if buf.BlockSize() != BlockSize {
		return Header{}, fmt.Errorf("%w: instruction frame read at block size %d", ErrHeaderDecode, buf.BlockSize())
	}

	words := bits.ToWords(buf.ReadBits())
	if len(words) < Words-1 {
		return Header{}, fmt.Errorf("%w: only %d header words present", ErrHeaderDecode, len(words))
	}

	var h Header
	switch words[0] {
	case ColorMarker:
		h.Mode = frame.ModeColor
	case BinaryMarker:
		h.Mode = frame.ModeBinary
	default:
		return Header{}, fmt.Errorf("%w: unknown mode marker %#08x", ErrHeaderDecode, words[0])
	}

	h.FinalFrame = words[1]
	h.FinalCount = words[2]
	h.BlockSize = words[3]
	if h.BlockSize == 0 {
		return Header{}, fmt.Errorf("%w: data block size 0", ErrHeaderDecode)
	}

	h.Terminated = len(words) >= Words && words[Words-1] == EndMarker
	if !h.Terminated {
		logrus.WithFields(logrus.Fields{
			"function": "instruction.Parse",
			"words":    len(words),
		}).Warn("Instruction end marker missing or mismatched")
	}

	logrus.WithFields(logrus.Fields{
		"function":    "instruction.Parse",
		"mode":        h.Mode,
		"final_frame": h.FinalFrame,
		"final_count": h.FinalCount,
		"block_size":  h.BlockSize,
		"terminated":  h.Terminated,
	}).Debug("Instruction header decoded")

	return h, nil
}

// ParseImage decodes the header from a raw container frame.
func ParseImage(img image.Image) (Header, error) {
	buf, err := frame.FromImage(img, BlockSize, true)
	if err != nil {
		return Header{}, fmt.Errorf("%w: %v", ErrHeaderDecode, err)
	}
	return Parse(buf)
}
