package etcher

import (
	"github.com/opd-ai/etcher/config"
	"github.com/opd-ai/etcher/container"
	"github.com/opd-ai/etcher/frame"
	"github.com/opd-ai/etcher/instruction"
	"github.com/opd-ai/etcher/limits"
	"github.com/opd-ai/etcher/sequencer"
)

// Errors returned by Embed and Dislodge. They are the package sentinels of
// the components that raise them, so errors.Is works with either name.
var (
	ErrEmptyInput        = limits.ErrEmptyInput
	ErrPayloadTooLarge   = limits.ErrPayloadTooLarge
	ErrDimensionMismatch = frame.ErrDimensionMismatch
	ErrHeaderDecode      = instruction.ErrHeaderDecode
	ErrFrameTooSmall     = instruction.ErrFrameTooSmall
	ErrInvalidSettings   = config.ErrInvalidSettings
	ErrWorkerFailure     = sequencer.ErrWorkerFailure
	ErrContainerOpen     = container.ErrContainerOpen
	ErrContainerRead     = container.ErrContainerRead
	ErrContainerWrite    = container.ErrContainerWrite
	ErrUnknownBackend    = container.ErrUnknownBackend
)
