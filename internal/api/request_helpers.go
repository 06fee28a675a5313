package api

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/paperpilot/internal/domain"
	"github.com/phrazzld/paperpilot/internal/service"
)

// multipartMemory is how much of a multipart body is held in memory before
// file parts spill to temporary files.
const multipartMemory = 8 << 20

// getPathUUID parses the named chi path parameter as a UUID.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	raw := chi.URLParam(r, paramName)
	if raw == "" {
		return uuid.Nil, fmt.Errorf("%w: %s is required", domain.ErrInvalidID, paramName)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s has invalid format", domain.ErrInvalidID, paramName)
	}
	return id, nil
}

// openedFiles closes every file opened from a multipart form.
type openedFiles []multipart.File

func (f openedFiles) Close() {
	for _, file := range f {
		_ = file.Close()
	}
}

// parseSubmission reads an upload form into a service.Submission. The caller
// must Close the returned files once the submission has been handled.
func parseSubmission(r *http.Request) (service.Submission, openedFiles, error) {
	var sub service.Submission
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return sub, nil, err
		}
		return sub, nil, &service.ValidationError{Message: "invalid multipart form: " + err.Error()}
	}

	sub.SubjectName = r.FormValue(FieldSubjectName)
	sub.MarkType = r.FormValue(FieldMarkType)
	sub.StudyMode = r.FormValue(FieldStudyMode)

	var files openedFiles
	if headers := r.MultipartForm.File[FieldQuestionFile]; len(headers) > 0 {
		f, err := headers[0].Open()
		if err != nil {
			return sub, files, fmt.Errorf("open question file: %w", err)
		}
		files = append(files, f)
		sub.Question = &service.Upload{Filename: headers[0].Filename, Content: f}
	}

	for _, h := range r.MultipartForm.File[FieldNotesFiles] {
		f, err := h.Open()
		if err != nil {
			return sub, files, fmt.Errorf("open notes file: %w", err)
		}
		files = append(files, f)
		sub.Notes = append(sub.Notes, service.Upload{Filename: h.Filename, Content: f})
	}

	return sub, files, nil
}
