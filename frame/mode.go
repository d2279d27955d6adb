package frame

import (
	"fmt"
	"strings"
)

// Mode selects how payload units map onto blocks.
type Mode uint8

const (
	// ModeBinary stores one bit per block as black or white.
	ModeBinary Mode = iota
	// ModeColor stores three bytes per block as its RGB value.
	ModeColor
)

// UnitsPerBlock returns the number of payload units one block carries.
// Units are bits in ModeBinary and bytes in ModeColor.
func (m Mode) UnitsPerBlock() int {
	if m == ModeColor {
		return 3
	}
	return 1
}

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeBinary:
		return "binary"
	case ModeColor:
		return "color"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// ParseMode parses a mode name. "colored" is accepted as an alias of "color".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "binary", "bw":
		return ModeBinary, nil
	case "color", "colour", "colored":
		return ModeColor, nil
	default:
		return ModeBinary, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if m != ModeBinary && m != ModeColor {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, uint8(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
