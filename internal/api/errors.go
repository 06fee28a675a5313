package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/paperpilot/internal/api/shared"
	"github.com/phrazzld/paperpilot/internal/domain"
	"github.com/phrazzld/paperpilot/internal/service"
	"github.com/phrazzld/paperpilot/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes so that
// internal error types never reach clients.
func MapErrorToStatusCode(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge

	case errors.Is(err, service.ErrInvalidSubmission),
		errors.Is(err, service.ErrInvalidFormat),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest

	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, store.ErrTaskRecordNotFound),
		errors.Is(err, service.ErrOutputMissing):
		return http.StatusNotFound

	case errors.Is(err, service.ErrNotCompleted):
		return http.StatusConflict

	case errors.Is(err, service.ErrRunnerUnavailable):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-facing message for err. Validation
// messages are built from form field names and are passed through; anything
// unrecognized becomes a generic message.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var verr *service.ValidationError
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &verr):
		return verr.Error()
	case errors.As(err, &maxBytes):
		return "Upload too large"
	case errors.Is(err, service.ErrInvalidFormat):
		return "Invalid format. Use 'docx' or 'pdf'"
	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid task ID"
	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, store.ErrTaskRecordNotFound):
		return "Task not found"
	case errors.Is(err, service.ErrNotCompleted):
		return "Processing not completed yet"
	case errors.Is(err, service.ErrOutputMissing):
		return "Output file not found"
	case errors.Is(err, service.ErrRunnerUnavailable):
		return "Server is not accepting new work"
	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the error response for err. fallback replaces the
// generic message for unrecognized errors when non-empty.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallback != "" {
		message = fallback
	}

	var opts []shared.ResponseOption
	if status == http.StatusServiceUnavailable {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}
