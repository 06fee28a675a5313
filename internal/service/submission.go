package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/phrazzld/paperpilot/internal/domain"
	"github.com/phrazzld/paperpilot/internal/pipeline"
	"github.com/phrazzld/paperpilot/internal/platform/logger"
	"github.com/phrazzld/paperpilot/internal/task"
)

// RunnerRefusedMessage is recorded on a task the runner would not accept.
const RunnerRefusedMessage = "Error: task runner is not accepting work"

// Upload is one client-supplied file.
type Upload struct {
	Filename string
	Content  io.Reader
}

// Submission is a question paper with optional reference notes and the
// parameters answers are tailored to. Blank MarkType and StudyMode take the
// domain defaults.
type Submission struct {
	Question    *Upload
	Notes       []Upload
	SubjectName string `form:"subject_name" validate:"max=100"`
	MarkType    string `form:"mark_type"    validate:"max=10"`
	StudyMode   string `form:"study_mode"   validate:"max=20"`
}

// SubmitResult is returned as soon as a submission has been accepted.
type SubmitResult struct {
	ID      uuid.UUID         `json:"process_id"`
	Status  domain.TaskStatus `json:"status"`
	Message string            `json:"message"`
}

// RecordCreator is the part of the task store intake writes to.
type RecordCreator interface {
	Create(ctx context.Context, rec *domain.TaskRecord) error
	Fail(ctx context.Context, id uuid.UUID, message string) (*domain.TaskRecord, error)
}

// TaskRunner starts background tasks.
type TaskRunner interface {
	Submit(ctx context.Context, t task.Task) (*task.Handle, error)
}

// TaskFactory builds the background task for a job.
type TaskFactory interface {
	CreateTask(job pipeline.Job) (task.Task, error)
}

// SubmissionService accepts submissions.
type SubmissionService struct {
	records   RecordCreator
	runner    TaskRunner
	factory   TaskFactory
	uploadDir string
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewSubmissionService creates a SubmissionService saving uploads under
// uploadDir.
func NewSubmissionService(
	records RecordCreator,
	runner TaskRunner,
	factory TaskFactory,
	uploadDir string,
	log *slog.Logger,
) (*SubmissionService, error) {
	if records == nil {
		return nil, &ServiceError{Service: "submission", Operation: "create_service", Err: errors.New("records cannot be nil")}
	}
	if runner == nil {
		return nil, &ServiceError{Service: "submission", Operation: "create_service", Err: errors.New("runner cannot be nil")}
	}
	if factory == nil {
		return nil, &ServiceError{Service: "submission", Operation: "create_service", Err: errors.New("factory cannot be nil")}
	}
	if uploadDir == "" {
		return nil, &ServiceError{Service: "submission", Operation: "create_service", Err: errors.New("upload directory cannot be empty")}
	}
	if log == nil {
		log = slog.Default()
	}

	return &SubmissionService{
		records:   records,
		runner:    runner,
		factory:   factory,
		uploadDir: uploadDir,
		validate:  newValidator(),
		logger:    log.With("component", "submission_service"),
	}, nil
}

// Submit validates sub, saves its files, records the task and starts
// processing in the background. Validation failures return a
// *ValidationError and leave no trace.
func (s *SubmissionService) Submit(ctx context.Context, sub Submission) (*SubmitResult, error) {
	log := logger.FromContextOrDefault(ctx).With("component", "submission_service")

	if strings.TrimSpace(sub.MarkType) == "" {
		sub.MarkType = domain.DefaultMarkType
	}
	if strings.TrimSpace(sub.StudyMode) == "" {
		sub.StudyMode = domain.DefaultStudyMode
	}
	sub.SubjectName = strings.TrimSpace(sub.SubjectName)

	question, notes, err := s.validateSubmission(sub)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	log = log.With("task_id", id)

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, NewServiceError("submission", "save_uploads", err)
	}

	var saved []string
	questionPath := filepath.Join(s.uploadDir, fmt.Sprintf("%s_question_%s", id, SafeFilename(question.filename)))
	if err := saveUpload(questionPath, question.content()); err != nil {
		return nil, NewServiceError("submission", "save_uploads", err)
	}
	saved = append(saved, questionPath)

	notesPaths := make([]string, 0, len(notes))
	for i, n := range notes {
		path := filepath.Join(s.uploadDir, fmt.Sprintf("%s_notes_%d_%s", id, i, SafeFilename(n.filename)))
		if err := saveUpload(path, n.content()); err != nil {
			removeAll(saved)
			return nil, NewServiceError("submission", "save_uploads", err)
		}
		saved = append(saved, path)
		notesPaths = append(notesPaths, path)
	}

	rec, err := domain.NewTaskRecord(id, sub.SubjectName, sub.MarkType, sub.StudyMode, len(notesPaths) > 0)
	if err != nil {
		removeAll(saved)
		return nil, &ValidationError{Message: err.Error()}
	}
	if err := s.records.Create(ctx, rec); err != nil {
		removeAll(saved)
		log.Error("failed to record submission", "error", err)
		return nil, NewServiceError("submission", "create_record", err)
	}

	job := pipeline.Job{
		TaskID:       id,
		QuestionPath: questionPath,
		NotesPaths:   notesPaths,
		Subject:      sub.SubjectName,
		MarkType:     sub.MarkType,
		StudyMode:    sub.StudyMode,
	}
	if err := s.start(ctx, job); err != nil {
		log.Error("failed to start processing", "error", err)
		if _, ferr := s.records.Fail(ctx, id, RunnerRefusedMessage); ferr != nil {
			log.Error("failed to record refused submission", "error", ferr)
		}
		removeAll(saved)
		return nil, err
	}

	log.Info("submission accepted",
		"subject", sub.SubjectName,
		"notes_count", len(notesPaths),
		"mark_type", sub.MarkType,
		"study_mode", sub.StudyMode)

	return &SubmitResult{ID: id, Status: rec.Status, Message: rec.Message}, nil
}

// newValidator reports fields by their form names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("form"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

func (s *SubmissionService) start(ctx context.Context, job pipeline.Job) error {
	t, err := s.factory.CreateTask(job)
	if err != nil {
		return NewServiceError("submission", "create_task", err)
	}
	if _, err := s.runner.Submit(ctx, t); err != nil {
		if errors.Is(err, task.ErrRunnerStopped) {
			return fmt.Errorf("%w: %v", ErrRunnerUnavailable, err)
		}
		return NewServiceError("submission", "submit_task", err)
	}
	return nil
}

// validateSubmission checks every field and file before anything is written.
// It returns the question upload and the non-empty notes uploads.
func (s *SubmissionService) validateSubmission(sub Submission) (*peekedUpload, []*peekedUpload, error) {
	if err := s.validate.Struct(sub); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return nil, nil, &ValidationError{
				Field:   fe.Field(),
				Message: fmt.Sprintf("must be at most %s characters", fe.Param()),
			}
		}
		return nil, nil, &ValidationError{Message: err.Error()}
	}

	if sub.Question == nil || strings.TrimSpace(sub.Question.Filename) == "" {
		return nil, nil, &ValidationError{Field: "question_file", Message: "no question file provided"}
	}
	question, err := peek(*sub.Question)
	if err != nil {
		return nil, nil, NewServiceError("submission", "read_upload", err)
	}
	if question.empty() {
		return nil, nil, &ValidationError{Field: "question_file", Message: "question file is empty"}
	}
	if !question.isPDF() {
		return nil, nil, &ValidationError{Field: "question_file", Message: "question file must be a PDF"}
	}

	var notes []*peekedUpload
	for _, u := range sub.Notes {
		if strings.TrimSpace(u.Filename) == "" {
			continue
		}
		n, err := peek(u)
		if err != nil {
			return nil, nil, NewServiceError("submission", "read_upload", err)
		}
		if n.empty() {
			continue
		}
		if !n.isPDF() {
			return nil, nil, &ValidationError{Field: "notes_files", Message: fmt.Sprintf("notes file %q must be a PDF", u.Filename)}
		}
		notes = append(notes, n)
	}
	return question, notes, nil
}
