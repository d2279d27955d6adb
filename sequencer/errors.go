package sequencer

import "errors"

var (
	// ErrWorkerFailure indicates an encode worker terminated abnormally.
	ErrWorkerFailure = errors.New("encode worker failed")

	// ErrInvalidPayload indicates a payload whose variant does not match its mode.
	ErrInvalidPayload = errors.New("invalid payload")
)
