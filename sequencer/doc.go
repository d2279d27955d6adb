// Package sequencer turns a payload into an ordered sequence of frames and
// back.
//
// # Encoding
//
// The Encoder splits the payload into contiguous chunks, each a whole number
// of frames long, and hands every chunk to its own worker goroutine. Workers
// allocate fresh frame buffers and etch blocks until their chunk runs out;
// the frame in which a chunk runs out is kept even when partially filled.
// Results are stored by chunk index, so the final sequence follows payload
// order no matter which worker finishes first:
//
//	enc, err := sequencer.NewEncoder(settings)
//	if err != nil {
//	    return err
//	}
//	frames, err := enc.Encode(ctx, sequencer.PayloadFromBytes(settings.Mode, data))
//	// frames[0] is the instruction header, frames[1:] hold the payload
//
// # Decoding
//
// The Decoder reads the instruction header from the first frame and then
// decodes data frames one at a time, truncating the final frame to the
// element count recorded in the header:
//
//	data, err := sequencer.NewDecoder().Decode(ctx, reader)
//
// Decoding is sequential because container reads are inherently ordered.
package sequencer
