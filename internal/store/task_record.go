package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/paperpilot/internal/domain"
)

// TaskRecordStore is the durable view of task records. It is the source of
// truth across process restarts and the only source for history listings.
type TaskRecordStore interface {
	// Create inserts a new record.
	// Returns ErrDuplicate if a record with the same ID exists.
	Create(ctx context.Context, rec *domain.TaskRecord) error

	// Update overwrites the mutable fields of an existing record.
	// Returns ErrTaskRecordNotFound if no record has the ID and
	// ErrTerminalRecord if the stored record is terminal with a different status.
	Update(ctx context.Context, rec *domain.TaskRecord) error

	// GetByID retrieves one record.
	// Returns ErrTaskRecordNotFound if no record has the ID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.TaskRecord, error)

	// ListCompleted returns up to limit completed records, newest created first.
	ListCompleted(ctx context.Context, limit int) ([]*domain.TaskRecord, error)

	// ListByStatus returns every record in any of the given statuses,
	// oldest created first.
	ListByStatus(ctx context.Context, statuses ...domain.TaskStatus) ([]*domain.TaskRecord, error)

	// Count returns the total number of stored records.
	Count(ctx context.Context) (int, error)

	// Ping verifies the backing database is reachable.
	Ping(ctx context.Context) error
}
