package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/phrazzld/paperpilot/internal/domain"
	"github.com/phrazzld/paperpilot/internal/store"
)

// Download formats.
const (
	FormatDOCX = "docx"
	FormatPDF  = "pdf"
)

var contentTypes = map[string]string{
	FormatDOCX: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	FormatPDF:  "application/pdf",
}

// RecordReader is the read side of the task store.
type RecordReader interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.TaskRecord, error)
	History(ctx context.Context, limit int) ([]*domain.TaskRecord, error)
}

// DownloadFile locates a rendered output on disk.
type DownloadFile struct {
	Path        string
	Filename    string
	ContentType string
}

// QueryService answers status, history and download requests. It never
// writes.
type QueryService struct {
	records   RecordReader
	outputDir string
	logger    *slog.Logger
}

// NewQueryService creates a QueryService serving outputs from outputDir.
func NewQueryService(records RecordReader, outputDir string, log *slog.Logger) (*QueryService, error) {
	if records == nil {
		return nil, &ServiceError{Service: "query", Operation: "create_service", Err: errors.New("records cannot be nil")}
	}
	if outputDir == "" {
		return nil, &ServiceError{Service: "query", Operation: "create_service", Err: errors.New("output directory cannot be empty")}
	}
	if log == nil {
		log = slog.Default()
	}
	return &QueryService{
		records:   records,
		outputDir: outputDir,
		logger:    log.With("component", "query_service"),
	}, nil
}

// Status returns the current record for id.
func (s *QueryService) Status(ctx context.Context, id uuid.UUID) (*domain.TaskRecord, error) {
	rec, err := s.records.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrTaskRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, NewServiceError("query", "status", err)
	}
	return rec, nil
}

// History returns up to limit completed records, newest first. A limit
// outside 1..20 means 20.
func (s *QueryService) History(ctx context.Context, limit int) ([]*domain.TaskRecord, error) {
	records, err := s.records.History(ctx, limit)
	if err != nil {
		return nil, NewServiceError("query", "history", err)
	}
	if records == nil {
		records = []*domain.TaskRecord{}
	}
	return records, nil
}

// Download resolves the output file of a completed task in the given format.
func (s *QueryService) Download(ctx context.Context, id uuid.UUID, format string) (*DownloadFile, error) {
	contentType, ok := contentTypes[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, format)
	}

	rec, err := s.Status(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status != domain.StatusCompleted {
		return nil, ErrNotCompleted
	}

	filename := rec.DocxFilename
	if format == FormatPDF {
		filename = rec.PDFFilename
	}
	if filename == "" {
		return nil, ErrOutputMissing
	}

	path := filepath.Join(s.outputDir, filepath.Base(filename))
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		s.logger.WarnContext(ctx, "completed task output is missing", "task_id", id, "format", format, "path", path)
		return nil, ErrOutputMissing
	}

	return &DownloadFile{Path: path, Filename: filepath.Base(filename), ContentType: contentType}, nil
}
