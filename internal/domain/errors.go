package domain

import "errors"

var (
	// ErrValidation wraps every field-level validation failure.
	ErrValidation = errors.New("validation failed")

	ErrInvalidID     = errors.New("invalid ID")
	ErrInvalidStatus = errors.New("invalid task status")

	// ErrInvalidTransition rejects moves backwards through the pipeline
	// stages and any move out of completed or error.
	ErrInvalidTransition = errors.New("invalid status transition")

	ErrInvalidProgress = errors.New("progress must be between 0 and 100")
)
