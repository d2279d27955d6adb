package container

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/sirupsen/logrus"
)

// Create opens a writable container at path, trying the primary codec and
// then, once, the fallback codec. It returns the writer, the backend that
// owns it and the codec that was accepted.
func Create(path string, width, height int, opts Options) (Writer, Backend, string, error) {
	backend, err := Resolve(path, opts.Backend)
	if err != nil {
		return nil, nil, "", fmt.Errorf("%w: %w", ErrContainerOpen, err)
	}

	primary, fallback := backend.Codecs()
	if opts.Codec != "" {
		primary = opts.Codec
	}
	if opts.FallbackCodec != "" {
		fallback = opts.FallbackCodec
	}

	w, err := backend.Create(path, primary, opts.FPS, width, height)
	if err == nil {
		return w, backend, primary, nil
	}

	logrus.WithFields(logrus.Fields{
		"function": "container.Create",
		"path":     path,
		"backend":  backend.Name(),
		"codec":    primary,
		"fallback": fallback,
		"error":    err.Error(),
	}).Warn("Primary codec rejected, retrying with fallback codec")

	w, fallbackErr := backend.Create(path, fallback, opts.FPS, width, height)
	if fallbackErr == nil {
		return w, backend, fallback, nil
	}

	logrus.WithFields(logrus.Fields{
		"function": "container.Create",
		"path":     path,
		"backend":  backend.Name(),
		"error":    fallbackErr.Error(),
	}).Error("Both primary and fallback codecs failed")

	return nil, nil, "", fmt.Errorf("%w: %s and %s codecs failed: %w",
		ErrContainerOpen, primary, fallback, errors.Join(err, fallbackErr))
}

// WriteAll writes frames to a new container at path in slice order and
// finalizes it. All frames must share the dimensions of the first one.
//
// If any frame write or the final close fails, the partial container is
// removed so it cannot be mistaken for a complete one.
func WriteAll(path string, frames []image.Image, opts Options) error {
	if len(frames) == 0 {
		return fmt.Errorf("%w: no frames to write", ErrContainerWrite)
	}

	start := time.Now()
	size := frames[0].Bounds().Size()

	w, backend, codec, err := Create(path, size.X, size.Y, opts)
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"function": "container.WriteAll",
		"path":     path,
		"backend":  backend.Name(),
		"codec":    codec,
		"frames":   len(frames),
		"width":    size.X,
		"height":   size.Y,
		"fps":      opts.FPS,
	}).Info("Writing container")

	for i, img := range frames {
		if got := img.Bounds().Size(); got != size {
			err = fmt.Errorf("%w: frame %d is %v, expected %v", ErrContainerWrite, i, got, size)
		} else if werr := w.WriteFrame(img); werr != nil {
			err = fmt.Errorf("%w: frame %d: %w", ErrContainerWrite, i, werr)
		}
		if err != nil {
			_ = w.Close()
			discard(backend, path, err)
			return err
		}
		if opts.Progress != nil {
			opts.Progress(i+1, len(frames))
		}
	}

	if err := w.Close(); err != nil {
		err = fmt.Errorf("%w: finalize: %w", ErrContainerWrite, err)
		discard(backend, path, err)
		return err
	}

	logrus.WithFields(logrus.Fields{
		"function": "container.WriteAll",
		"path":     path,
		"frames":   len(frames),
		"duration": time.Since(start).String(),
	}).Info("Video etched successfully")

	return nil
}

// discard removes a partially written container.
func discard(backend Backend, path string, cause error) {
	fields := logrus.Fields{
		"function": "container.discard",
		"path":     path,
		"cause":    cause.Error(),
	}
	if err := backend.Remove(path); err != nil {
		fields["error"] = err.Error()
		logrus.WithFields(fields).Error("Failed to remove partial container")
		return
	}
	logrus.WithFields(fields).Warn("Removed partial container")
}

// Open opens the container at path for sequential reading.
func Open(path string, opts Options) (Reader, error) {
	backend, err := Resolve(path, opts.Backend)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrContainerRead, err)
	}

	r, err := backend.Open(path)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "container.Open",
			"path":     path,
			"backend":  backend.Name(),
			"error":    err.Error(),
		}).Error("Could not open video path")
		if errors.Is(err, ErrContainerRead) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrContainerRead, err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "container.Open",
		"path":     path,
		"backend":  backend.Name(),
	}).Debug("Container opened for reading")

	return r, nil
}
