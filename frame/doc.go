// Package frame provides the raster surface and block codec used by etcher.
//
// A Buffer owns one RGBA pixel grid together with the block size used to
// quantize it. The usable area of a buffer is its size trimmed down to a
// multiple of the block size; every block read or write stays inside it.
//
// # Block Layout
//
// Blocks are visited in row-major order, which is the canonical
// linearization of a frame's capacity:
//
//	for y := 0; y < usable.Y; y += blockSize {
//	    for x := 0; x < usable.X; x += blockSize {
//	        // block anchored at (x, y)
//	    }
//	}
//
// # Payload Modes
//
// In ModeBinary each block carries one bit, written as solid white (1) or
// solid black (0) and read back by thresholding the red channel mean at
// Threshold. In ModeColor each block carries three bytes written directly as
// its red, green and blue values.
//
//	buf, err := frame.New(4, 64, 64)
//	if err != nil {
//	    return err
//	}
//	n := buf.EtchBits(payloadBits) // consumes up to buf.Capacity() bits
//
// Reading a block averages every pixel per channel, so recovery is exact
// only when the container preserves pixel values. Lossy re-encoding is not
// compensated for.
package frame
