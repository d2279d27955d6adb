// Package bits converts between byte or word sequences and bit sequences.
//
// Every conversion is most-significant-bit first. Converting back drops any
// trailing remainder that does not fill a whole byte or word, so all
// functions are total and never fail.
package bits

// FromBytes expands each byte into 8 bits, most significant bit first.
func FromBytes(data []byte) []bool {
	out := make([]bool, 0, len(data)*8)
	for _, b := range data {
		for shift := 7; shift >= 0; shift-- {
			out = append(out, b&(1<<uint(shift)) != 0)
		}
	}
	return out
}

// FromWords expands each word into 32 bits, most significant bit first.
func FromWords(words []uint32) []bool {
	out := make([]bool, 0, len(words)*32)
	for _, w := range words {
		for shift := 31; shift >= 0; shift-- {
			out = append(out, w&(1<<uint(shift)) != 0)
		}
	}
	return out
}

// ToBytes packs bits into bytes in groups of 8. A trailing group shorter
// than 8 bits is dropped.
func ToBytes(bits []bool) []byte {
	out := make([]byte, 0, len(bits)/8)
	for i := 0; i+8 <= len(bits); i += 8 {
		var b byte
		for _, bit := range bits[i : i+8] {
			b <<= 1
			if bit {
				b |= 1
			}
		}
		out = append(out, b)
	}
	return out
}

// ToWords packs bits into words in groups of 32. A trailing group shorter
// than 32 bits is dropped.
func ToWords(bits []bool) []uint32 {
	out := make([]uint32, 0, len(bits)/32)
	for i := 0; i+32 <= len(bits); i += 32 {
		var w uint32
		for _, bit := range bits[i : i+32] {
			w <<= 1
			if bit {
				w |= 1
			}
		}
		out = append(out, w)
	}
	return out
}
