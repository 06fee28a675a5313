package api

import (
	"context"
	"log/slog"
	"mime"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/paperpilot/internal/api/shared"
	"github.com/phrazzld/paperpilot/internal/domain"
	"github.com/phrazzld/paperpilot/internal/platform/logger"
	"github.com/phrazzld/paperpilot/internal/service"
)

// Submitter accepts new submissions.
type Submitter interface {
	Submit(ctx context.Context, sub service.Submission) (*service.SubmitResult, error)
}

// TaskQuerier answers status, history and download requests.
type TaskQuerier interface {
	Status(ctx context.Context, id uuid.UUID) (*domain.TaskRecord, error)
	History(ctx context.Context, limit int) ([]*domain.TaskRecord, error)
	Download(ctx context.Context, id uuid.UUID, format string) (*service.DownloadFile, error)
}

// TaskHandler serves the upload, status, history and download endpoints.
type TaskHandler struct {
	submitter      Submitter
	querier        TaskQuerier
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewTaskHandler creates a TaskHandler. Upload bodies larger than
// maxUploadBytes are rejected with 413.
func NewTaskHandler(submitter Submitter, querier TaskQuerier, maxUploadBytes int64, log *slog.Logger) *TaskHandler {
	if log == nil {
		log = slog.Default()
	}
	return &TaskHandler{
		submitter:      submitter,
		querier:        querier,
		maxUploadBytes: maxUploadBytes,
		logger:         log.With("component", "task_handler"),
	}
}

// Upload handles POST /api/upload.
func (h *TaskHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	sub, files, err := parseSubmission(r)
	defer files.Close()
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	result, err := h.submitter.Submit(r.Context(), sub)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to process upload")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, result)
}

// Status handles GET /api/status/{id}.
func (h *TaskHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	rec, err := h.querier.Status(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load task status")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, rec)
}

// History handles GET /api/history.
func (h *TaskHandler) History(w http.ResponseWriter, r *http.Request) {
	records, err := h.querier.History(r.Context(), 0)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load history")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, HistoryResponse{Tasks: records})
}

// Download handles GET /api/download/{id}/{format}.
func (h *TaskHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	file, err := h.querier.Download(r.Context(), id, chi.URLParam(r, "format"))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to prepare download")
		return
	}

	f, err := os.Open(file.Path)
	if err != nil {
		HandleAPIError(w, r, service.ErrOutputMissing, "")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		HandleAPIError(w, r, err, "Failed to prepare download")
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Filename}))
	logger.FromContextOrDefault(r.Context()).Debug("serving download",
		"task_id", id,
		"filename", file.Filename,
		"size", info.Size())
	http.ServeContent(w, r, file.Filename, info.ModTime(), f)
}
