package service

import (
	"errors"
	"fmt"
	"strings"
)

// Common service errors. The API layer maps each to an HTTP status.
var (
	// ErrInvalidSubmission is wrapped by every ValidationError.
	ErrInvalidSubmission = errors.New("invalid submission")

	// ErrTaskNotFound indicates that no task record exists for an ID.
	ErrTaskNotFound = errors.New("task not found")

	// ErrNotCompleted indicates a download was requested before processing finished.
	ErrNotCompleted = errors.New("processing not completed yet")

	// ErrOutputMissing indicates a completed task whose output file is unset or gone.
	ErrOutputMissing = errors.New("output file not found")

	// ErrInvalidFormat indicates an unsupported download format.
	ErrInvalidFormat = errors.New("invalid download format")

	// ErrRunnerUnavailable indicates the task runner refused new work.
	ErrRunnerUnavailable = errors.New("task runner is not accepting work")
)

// ValidationError describes one rejected submission field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Unwrap lets errors.Is match ErrInvalidSubmission.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidSubmission
}

// ServiceError wraps an unexpected infrastructure failure with the service
// and operation it happened in.
type ServiceError struct {
	Service   string
	Operation string
	Err       error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	var b strings.Builder
	if e.Service != "" {
		b.WriteString(e.Service)
		b.WriteString(" service ")
	}
	b.WriteString(e.Operation)
	b.WriteString(" operation failed")
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError wraps err. It returns nil for a nil err.
func NewServiceError(service, operation string, err error) error {
	if err == nil {
		return nil
	}
	return &ServiceError{Service: service, Operation: operation, Err: err}
}
