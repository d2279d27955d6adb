// Package etcher stores arbitrary files inside the frames of a video and
// recovers them byte for byte.
//
// A payload is cut into blocks of pixels: in binary mode every block is
// black or white and carries one bit, in colour mode every block carries
// three bytes in its red, green and blue channels. The first frame of every
// video is an instruction frame describing how the remaining frames were
// written, so no sidecar metadata is needed to decode.
//
// Example:
//
//	settings, err := config.FromPreset(config.PresetOptimal)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	data, err := etcher.RipBytes("archive.tar")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if _, err := etcher.Embed(ctx, "archive.avi", data, settings, etcher.NewOptions()); err != nil {
//	    log.Fatal(err)
//	}
//
//	restored, err := etcher.Dislodge(ctx, "archive.avi", etcher.NewOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// The scheme relies on the container preserving pixel values exactly. The
// default AVI backend stores lossless PNG frames; videos re-encoded with a
// lossy codec will not decode.
package etcher
