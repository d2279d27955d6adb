// Package limits provides centralized payload size limits for etcher.
// This ensures consistent validation across different components of the system.
package limits

import (
	"errors"
	"fmt"
	"math"
)

const (
	// MaxPayload is the largest payload accepted for embedding (256 MiB).
	MaxPayload = 256 * 1024 * 1024

	// MaxHeaderField is the largest value representable in an instruction
	// header word.
	MaxHeaderField = math.MaxUint32
)

var (
	// ErrEmptyInput indicates an empty payload was provided
	ErrEmptyInput = errors.New("empty input: empty files cannot be embedded in video")

	// ErrPayloadTooLarge indicates the payload exceeds MaxPayload
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrHeaderOverflow indicates a value does not fit in a 32-bit header word
	ErrHeaderOverflow = errors.New("header field overflow")
)

// ValidatePayloadSize validates a payload against the specified maximum size.
// Returns an error with context including the actual and maximum sizes.
func ValidatePayloadSize(payload []byte, maxSize int) error {
	if len(payload) == 0 {
		return ErrEmptyInput
	}
	if len(payload) > maxSize {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrPayloadTooLarge, len(payload), maxSize)
	}
	return nil
}

// ValidatePayload validates a payload against MaxPayload.
func ValidatePayload(payload []byte) error {
	return ValidatePayloadSize(payload, MaxPayload)
}

// ValidateUnits checks a payload length expressed in units (bits or bytes)
// before frames are generated. Zero units is ErrEmptyInput.
func ValidateUnits(units int) error {
	if units <= 0 {
		return ErrEmptyInput
	}
	if units > MaxPayload*8 {
		return fmt.Errorf("%w: %d units exceeds limit %d", ErrPayloadTooLarge, units, MaxPayload*8)
	}
	return nil
}

// ValidateHeaderField checks that value fits in an unsigned 32-bit header word.
func ValidateHeaderField(name string, value int) error {
	if value < 0 || uint64(value) > MaxHeaderField {
		return fmt.Errorf("%w: %s=%d", ErrHeaderOverflow, name, value)
	}
	return nil
}
