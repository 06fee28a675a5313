package gemini

import "github.com/phrazzld/paperpilot/internal/generation"

// Errors reported by the Answerer. They are the generation package's errors
// so callers can match either name.
var (
	ErrContentBlocked  = generation.ErrContentBlocked
	ErrInvalidResponse = generation.ErrInvalidResponse
	ErrTransient       = generation.ErrTransientFailure
	ErrInvalidConfig   = generation.ErrInvalidConfig
)
