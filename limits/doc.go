// Package limits provides centralized payload and header range constants and
// validation functions for etcher. This package ensures consistent size
// enforcement across the encoder, the instruction header and the CLI.
//
// # Payload Limits
//
//   - MaxPayload (256 MiB): the largest input accepted by Embed. Binary mode
//     expands every byte into 8 blocks, so the in-memory bit sequence of a
//     maximum payload is already 2 GiB.
//
//   - MaxHeaderField (math.MaxUint32): every value recorded in the instruction
//     header is an unsigned 32-bit word, which bounds the final frame index
//     and the final element count.
//
// # Validation Functions
//
// Each validation function checks for empty payloads and size violations:
//
//	err := limits.ValidatePayload(data)
//	if errors.Is(err, limits.ErrEmptyInput) {
//	    // nothing to embed
//	}
//
// For header fields, use ValidateHeaderField:
//
//	err := limits.ValidateHeaderField("final_frame_index", totalFrames-1)
//
// # Error Types
//
//   - ErrEmptyInput: returned when an empty or nil payload is provided
//   - ErrPayloadTooLarge: returned when the payload exceeds MaxPayload
//   - ErrHeaderOverflow: returned when a header value does not fit in 32 bits
package limits
