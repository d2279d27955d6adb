package config

import (
	"errors"
	"fmt"
	"math"

	"github.com/opd-ai/etcher/frame"
	"github.com/opd-ai/etcher/instruction"
)

// ErrInvalidSettings indicates a settings value outside its allowed range.
var ErrInvalidSettings = errors.New("invalid settings")

// Validate checks that the settings can produce decodable frames.
//
// Data frames must divide evenly into blocks, so a width or height that is
// not a multiple of BlockSize yields frame.ErrDimensionMismatch. The frame
// must also be large enough for the instruction header.
func (s Settings) Validate() error {
	if s.BlockSize <= 0 {
		return fmt.Errorf("%w: block_size must be > 0, got %d", ErrInvalidSettings, s.BlockSize)
	}
	if s.Threads <= 0 {
		return fmt.Errorf("%w: threads must be > 0, got %d", ErrInvalidSettings, s.Threads)
	}
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("%w: resolution must be positive, got %dx%d", ErrInvalidSettings, s.Width, s.Height)
	}
	if s.FPS <= 0 || math.IsNaN(s.FPS) || math.IsInf(s.FPS, 0) {
		return fmt.Errorf("%w: fps must be a positive number, got %v", ErrInvalidSettings, s.FPS)
	}
	if s.Mode != frame.ModeBinary && s.Mode != frame.ModeColor {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, frame.ErrUnknownMode)
	}

	if s.Width%s.BlockSize != 0 || s.Height%s.BlockSize != 0 {
		return fmt.Errorf("%w: %dx%d with block size %d", frame.ErrDimensionMismatch, s.Width, s.Height, s.BlockSize)
	}

	if blocks := frame.Capacity(instruction.BlockSize, s.Width, s.Height); blocks < instruction.MinBlocks {
		return fmt.Errorf("%w: %dx%d holds %d header blocks, need %d",
			instruction.ErrFrameTooSmall, s.Width, s.Height, blocks, instruction.MinBlocks)
	}

	return nil
}
