package store

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by every TaskRecordStore implementation. Callers
// match them with errors.Is; implementations wrap driver errors with %w.
var (
	ErrNotFound          = errors.New("entity not found")
	ErrDuplicate         = errors.New("entity already exists")
	ErrInvalidEntity     = errors.New("invalid entity")
	ErrUpdateFailed      = errors.New("update failed")
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrTaskRecordNotFound is returned when no record exists for an ID.
	ErrTaskRecordNotFound = fmt.Errorf("%w: task record", ErrNotFound)

	// ErrTerminalRecord is returned when a write would move a completed or
	// errored record to a different status.
	ErrTerminalRecord = fmt.Errorf("%w: task record is terminal", ErrUpdateFailed)
)
