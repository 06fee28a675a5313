package generation

import "errors"

// Answerers wrap provider failures in one of these so the pipeline can
// decide between retrying a batch and failing the submission.
var (
	ErrGenerationFailed = errors.New("answer generation failed")
	ErrInvalidResponse  = errors.New("malformed model response")
	ErrContentBlocked   = errors.New("model refused content on safety grounds")
	ErrTransientFailure = errors.New("temporary model failure")
	ErrInvalidConfig    = errors.New("invalid answerer configuration")
	ErrEmptyBatch       = errors.New("empty question batch")
)
