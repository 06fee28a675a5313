package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/paperpilot/internal/domain"
	"github.com/phrazzld/paperpilot/internal/service"
	"github.com/phrazzld/paperpilot/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedMsg    string
	}{
		{
			name:           "nil error",
			err:            nil,
			expectedStatus: http.StatusInternalServerError,
			expectedMsg:    "An unexpected error occurred",
		},
		{
			name:           "validation error",
			err:            &service.ValidationError{Field: "question_file", Message: "no question file provided"},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "question_file: no question file provided",
		},
		{
			name:           "wrapped invalid format",
			err:            fmt.Errorf("%w: %q", service.ErrInvalidFormat, "txt"),
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "Invalid format. Use 'docx' or 'pdf'",
		},
		{
			name:           "invalid id",
			err:            domain.ErrInvalidID,
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "Invalid task ID",
		},
		{
			name:           "task not found",
			err:            service.ErrTaskNotFound,
			expectedStatus: http.StatusNotFound,
			expectedMsg:    "Task not found",
		},
		{
			name:           "store not found",
			err:            fmt.Errorf("load: %w", store.ErrTaskRecordNotFound),
			expectedStatus: http.StatusNotFound,
			expectedMsg:    "Task not found",
		},
		{
			name:           "not completed",
			err:            service.ErrNotCompleted,
			expectedStatus: http.StatusConflict,
			expectedMsg:    "Processing not completed yet",
		},
		{
			name:           "output missing",
			err:            service.ErrOutputMissing,
			expectedStatus: http.StatusNotFound,
			expectedMsg:    "Output file not found",
		},
		{
			name:           "body too large",
			err:            fmt.Errorf("parse form: %w", &http.MaxBytesError{Limit: 10}),
			expectedStatus: http.StatusRequestEntityTooLarge,
			expectedMsg:    "Upload too large",
		},
		{
			name:           "runner unavailable",
			err:            fmt.Errorf("%w: stopped", service.ErrRunnerUnavailable),
			expectedStatus: http.StatusServiceUnavailable,
			expectedMsg:    "Server is not accepting new work",
		},
		{
			name:           "internal error",
			err:            service.NewServiceError("query", "history", errors.New("connection reset")),
			expectedStatus: http.StatusInternalServerError,
			expectedMsg:    "An unexpected error occurred",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expectedStatus, MapErrorToStatusCode(tc.err))
			assert.Equal(t, tc.expectedMsg, GetSafeErrorMessage(tc.err))
		})
	}
}

func TestHandleAPIErrorFallback(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		fallback     string
		expectedBody string
	}{
		{
			name:         "fallback replaces generic message",
			err:          errors.New("dial tcp 10.0.0.1:5432: connection refused"),
			fallback:     "Failed to load history",
			expectedBody: `{"error":"Failed to load history"}`,
		},
		{
			name:         "fallback ignored for known errors",
			err:          service.ErrTaskNotFound,
			fallback:     "Failed to load status",
			expectedBody: `{"error":"Task not found"}`,
		},
		{
			name:         "no fallback",
			err:          errors.New("boom"),
			expectedBody: `{"error":"An unexpected error occurred"}`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			HandleAPIError(w, httptest.NewRequest(http.MethodGet, "/", nil), tc.err, tc.fallback)
			assert.JSONEq(t, tc.expectedBody, w.Body.String())
			assert.NotContains(t, w.Body.String(), "10.0.0.1")
		})
	}
}
