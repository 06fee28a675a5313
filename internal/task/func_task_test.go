package task

import (
	"context"

	"github.com/google/uuid"
)

// funcTask adapts a plain function to Task for runner tests.
type funcTask struct {
	id uuid.UUID
	fn func(ctx context.Context) error
}

func newFuncTask(fn func(ctx context.Context) error) *funcTask {
	if fn == nil {
		fn = func(context.Context) error { return nil }
	}
	return &funcTask{id: uuid.New(), fn: fn}
}

func (t *funcTask) ID() uuid.UUID                     { return t.id }
func (t *funcTask) Type() string                      { return "func" }
func (t *funcTask) Execute(ctx context.Context) error { return t.fn(ctx) }
