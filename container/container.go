package container

import (
	"errors"
	"image"
)

var (
	// ErrContainerOpen indicates neither the primary nor the fallback codec
	// could create the container.
	ErrContainerOpen = errors.New("container open failed")

	// ErrContainerRead indicates an unreadable or truncated container.
	ErrContainerRead = errors.New("container read failed")

	// ErrContainerWrite indicates a frame could not be written or the
	// container could not be finalized.
	ErrContainerWrite = errors.New("container write failed")

	// ErrUnsupportedCodec indicates a backend does not support the codec.
	ErrUnsupportedCodec = errors.New("unsupported codec")

	// ErrUnknownBackend indicates no backend is registered under the name.
	ErrUnknownBackend = errors.New("unknown container backend")
)

// Writer accepts frames in order and finalizes the container on Close.
type Writer interface {
	WriteFrame(img image.Image) error
	Close() error
}

// Reader yields frames in order. Next returns io.EOF once the container has
// no more frames. A Reader cannot be restarted.
type Reader interface {
	Next() (image.Image, error)
	Close() error
}

// Backend creates and opens containers of one kind.
type Backend interface {
	// Name is the registry key of the backend.
	Name() string
	// Codecs returns the primary and fallback codec names.
	Codecs() (primary, fallback string)
	// Create opens a new container for writing with the given codec.
	Create(path, codec string, fps float64, width, height int) (Writer, error)
	// Open opens an existing container for reading.
	Open(path string) (Reader, error)
	// Remove deletes a container created by this backend.
	Remove(path string) error
}

// Options controls backend and codec selection.
type Options struct {
	// Backend names the backend; empty selects one from the path.
	Backend string
	// Codec overrides the backend's primary codec.
	Codec string
	// FallbackCodec overrides the backend's fallback codec.
	FallbackCodec string
	// FPS is the frame rate recorded in the container.
	FPS float64
	// Progress, if set, is called after each frame is written.
	Progress func(done, total int)
}

// Backend names.
const (
	BackendAVI      = "avi"
	BackendImageSeq = "imageseq"
	BackendOpenCV   = "opencv"
)
