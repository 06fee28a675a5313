package task

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/paperpilot/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type processorFunc func(ctx context.Context, job pipeline.Job) error

func (f processorFunc) Process(ctx context.Context, job pipeline.Job) error { return f(ctx, job) }

func TestNewSubmissionTask_Validation(t *testing.T) {
	t.Parallel()

	proc := processorFunc(func(context.Context, pipeline.Job) error { return nil })
	job := pipeline.Job{TaskID: uuid.New()}

	_, err := NewSubmissionTask(job, nil, testLogger())
	assert.ErrorIs(t, err, ErrNilProcessor)

	_, err = NewSubmissionTask(job, proc, nil)
	assert.ErrorIs(t, err, ErrNilLogger)

	_, err = NewSubmissionTask(pipeline.Job{}, proc, testLogger())
	assert.ErrorIs(t, err, ErrEmptyTaskID)
}

func TestSubmissionTask_ExecuteRunsProcessor(t *testing.T) {
	t.Parallel()

	job := pipeline.Job{
		TaskID:       uuid.New(),
		QuestionPath: "uploads/q.pdf",
		NotesPaths:   []string{"uploads/n.pdf"},
		Subject:      "Biology",
	}
	expected := errors.New("processing failed")

	var got pipeline.Job
	factory := NewSubmissionTaskFactory(processorFunc(func(ctx context.Context, j pipeline.Job) error {
		got = j
		return expected
	}), testLogger())

	task, err := factory.CreateTask(job)
	require.NoError(t, err)
	assert.Equal(t, job.TaskID, task.ID())
	assert.Equal(t, TaskTypePaperProcessing, task.Type())

	assert.ErrorIs(t, task.Execute(context.Background()), expected)
	assert.Equal(t, job, got)
}
