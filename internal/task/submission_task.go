package task

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/paperpilot/internal/pipeline"
)

// Common errors
var (
	ErrNilProcessor = errors.New("processor cannot be nil")
	ErrNilLogger    = errors.New("logger cannot be nil")
	ErrEmptyTaskID  = errors.New("task ID cannot be empty")
)

// Processor runs one submission through the processing pipeline.
type Processor interface {
	Process(ctx context.Context, job pipeline.Job) error
}

// SubmissionTask implements the Task interface for one uploaded paper.
// Its ID is the submission's task record ID.
type SubmissionTask struct {
	job       pipeline.Job
	processor Processor
	logger    *slog.Logger
}

// NewSubmissionTask creates a new submission task
func NewSubmissionTask(job pipeline.Job, processor Processor, logger *slog.Logger) (*SubmissionTask, error) {
	if processor == nil {
		return nil, ErrNilProcessor
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if job.TaskID == uuid.Nil {
		return nil, ErrEmptyTaskID
	}

	return &SubmissionTask{
		job:       job,
		processor: processor,
		logger:    logger.With("task_type", TaskTypePaperProcessing, "task_id", job.TaskID),
	}, nil
}

// ID returns the task's unique identifier
func (t *SubmissionTask) ID() uuid.UUID {
	return t.job.TaskID
}

// Type returns the task type identifier
func (t *SubmissionTask) Type() string {
	return TaskTypePaperProcessing
}

// Execute runs the pipeline for the submission.
func (t *SubmissionTask) Execute(ctx context.Context) error {
	t.logger.Debug("starting submission pipeline",
		"notes_count", len(t.job.NotesPaths),
		"subject", t.job.Subject)
	return t.processor.Process(ctx, t.job)
}

// SubmissionTaskFactory creates SubmissionTask instances
type SubmissionTaskFactory struct {
	processor Processor
	logger    *slog.Logger
}

// NewSubmissionTaskFactory creates a new factory for SubmissionTasks
func NewSubmissionTaskFactory(processor Processor, logger *slog.Logger) *SubmissionTaskFactory {
	return &SubmissionTaskFactory{
		processor: processor,
		logger:    logger.With("component", "submission_task_factory"),
	}
}

// CreateTask creates a new SubmissionTask for job
func (f *SubmissionTaskFactory) CreateTask(job pipeline.Job) (Task, error) {
	task, err := NewSubmissionTask(job, f.processor, f.logger)
	if err != nil {
		return nil, err
	}
	return task, nil
}
