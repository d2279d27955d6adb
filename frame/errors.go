package frame

import "errors"

var (
	// ErrDimensionMismatch indicates frame dimensions are not divisible by
	// the data block size.
	ErrDimensionMismatch = errors.New("frame dimensions not divisible by block size")

	// ErrInvalidBlockSize indicates a non-positive block size.
	ErrInvalidBlockSize = errors.New("invalid block size")

	// ErrInvalidDimensions indicates a non-positive frame width or height.
	ErrInvalidDimensions = errors.New("invalid frame dimensions")

	// ErrUnknownMode indicates an unrecognized payload mode name.
	ErrUnknownMode = errors.New("unknown payload mode")
)
