package models

import "errors"

// Error kinds raised while building well images. They are always wrapped
// with context; match them with errors.Is.
var (
	// ErrEmptyInput means no image qualified for the requested well, channel and z-mode
	ErrEmptyInput = errors.New("no qualifying images")

	// ErrMissingChannel means a requested channel is absent from the input
	ErrMissingChannel = errors.New("missing channel")

	// ErrMissingMetadata means a structurally required metadata key is absent
	ErrMissingMetadata = errors.New("missing metadata")

	// ErrUnknownMethod means a projection method or assembly strategy name is not recognized
	ErrUnknownMethod = errors.New("unknown method")

	// ErrShapeMismatch means planes that must share an extent do not
	ErrShapeMismatch = errors.New("shape mismatch")
)
