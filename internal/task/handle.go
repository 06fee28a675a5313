package task

import (
	"context"

	"github.com/google/uuid"
)

// Handle tracks one submitted task until it finishes.
type Handle struct {
	id   uuid.UUID
	done chan struct{}
	err  error
}

func newHandle(id uuid.UUID) *Handle {
	return &Handle{id: id, done: make(chan struct{})}
}

// ID returns the ID of the tracked task.
func (h *Handle) ID() uuid.UUID {
	return h.id
}

// Done returns a channel closed when the task has finished.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns the task's result. It is only meaningful after Done is closed.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Wait blocks until the task finishes or ctx is done. It returns the task's
// error, or ctx.Err() if the wait was abandoned.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handle) finish(err error) {
	h.err = err
	close(h.done)
}
