package task

import (
	"context"

	"github.com/google/uuid"
)

// TaskTypePaperProcessing runs one question paper through the pipeline.
const TaskTypePaperProcessing = "paper_processing"

// Task is background work the Runner executes on its own goroutine.
// Execute must return once ctx is done.
type Task interface {
	ID() uuid.UUID
	Type() string
	Execute(ctx context.Context) error
}
