package taskstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/paperpilot/internal/domain"
	"github.com/phrazzld/paperpilot/internal/platform/logger"
	"github.com/phrazzld/paperpilot/internal/store"
)

const (
	// MaxHistory bounds every history listing.
	MaxHistory = 20

	// TerminalWriteAttempts is how many times a completed or error state is
	// written to the durable store before the failure is reported.
	TerminalWriteAttempts = 3

	// InterruptedMessage is recorded on records found mid-pipeline at startup.
	InterruptedMessage = "Error: processing interrupted by server restart"
)

// Store is the dual-backed task record store. It is safe for concurrent use
// across task IDs; each ID is expected to have a single writer, the pipeline
// processing it.
type Store struct {
	cache       Cache
	durable     store.TaskRecordStore
	logger      *slog.Logger
	retryDelay  time.Duration
	sharedCache bool
}

// Option configures a Store.
type Option func(*Store)

// WithRetryDelay sets the base delay between terminal durable write attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(s *Store) { s.retryDelay = d }
}

// WithSharedCache marks the cache as shared with other server processes.
// Records in flight may then belong to a live peer, so RecoverInterrupted
// leaves them alone.
func WithSharedCache() Option {
	return func(s *Store) { s.sharedCache = true }
}

// New creates a Store over the given views.
func New(cache Cache, durable store.TaskRecordStore, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		cache:      cache,
		durable:    durable,
		logger:     logger.With("component", "task_store"),
		retryDelay: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create writes a new record to the cache and then to the durable store.
// Both writes are mandatory.
func (s *Store) Create(ctx context.Context, rec *domain.TaskRecord) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("invalid task record: %w", err)
	}

	if err := s.cache.Put(ctx, rec); err != nil {
		return fmt.Errorf("cache task record: %w", err)
	}
	if err := s.durable.Create(ctx, rec); err != nil {
		if delErr := s.cache.Delete(ctx, rec.ID); delErr != nil {
			s.log(ctx).Warn("cannot remove unpersisted task record from cache", "task_id", rec.ID, "error", delErr)
		}
		return fmt.Errorf("persist task record: %w", err)
	}

	s.log(ctx).Debug("task record created", "task_id", rec.ID)
	return nil
}

// Update applies fn to the current record and writes the result to both
// views. A durable write failure is logged and does not fail the update.
func (s *Store) Update(ctx context.Context, id uuid.UUID, fn func(*domain.TaskRecord) error) (*domain.TaskRecord, error) {
	rec, err := s.apply(ctx, id, fn)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Put(ctx, rec); err != nil {
		return nil, fmt.Errorf("cache task record: %w", err)
	}

	if err := s.durable.Update(ctx, rec); err != nil {
		s.log(ctx).Warn("durable task record update failed",
			"task_id", id,
			"status", rec.Status,
			"progress", rec.Progress,
			"error", err)
	}
	return rec, nil
}

// Advance moves a record to a non-terminal stage.
func (s *Store) Advance(ctx context.Context, id uuid.UUID, status domain.TaskStatus, progress int, message string) (*domain.TaskRecord, error) {
	return s.Update(ctx, id, func(rec *domain.TaskRecord) error {
		return rec.Advance(status, progress, message)
	})
}

// Complete marks a record completed with its two output files.
func (s *Store) Complete(ctx context.Context, id uuid.UUID, docxFilename, pdfFilename string, at time.Time) (*domain.TaskRecord, error) {
	return s.terminal(ctx, id, func(rec *domain.TaskRecord) error {
		return rec.Complete(docxFilename, pdfFilename, at)
	})
}

// Fail marks a record as errored with message.
func (s *Store) Fail(ctx context.Context, id uuid.UUID, message string) (*domain.TaskRecord, error) {
	return s.terminal(ctx, id, func(rec *domain.TaskRecord) error {
		return rec.Fail(message)
	})
}

// Get returns the record for id from the cache, falling back to the durable
// store. Returns store.ErrTaskRecordNotFound when neither holds it.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*domain.TaskRecord, error) {
	rec, err := s.cache.Get(ctx, id)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		s.log(ctx).Warn("cache lookup failed, falling back to durable store", "task_id", id, "error", err)
	}

	rec, err = s.durable.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// History returns completed records from the durable store, newest first.
// limit is clamped to 1..MaxHistory.
func (s *Store) History(ctx context.Context, limit int) ([]*domain.TaskRecord, error) {
	if limit <= 0 || limit > MaxHistory {
		limit = MaxHistory
	}
	records, err := s.durable.ListCompleted(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return records, nil
}

// RecoverInterrupted fails every durable record left in a non-terminal state,
// which after a restart no pipeline will ever advance. It returns how many
// records were recovered. With a shared cache it does nothing.
func (s *Store) RecoverInterrupted(ctx context.Context) (int, error) {
	if s.sharedCache {
		s.log(ctx).Info("skipping interrupted task recovery, cache is shared with other processes")
		return 0, nil
	}

	stuck, err := s.durable.ListByStatus(ctx, domain.ActiveStatuses()...)
	if err != nil {
		return 0, fmt.Errorf("list interrupted task records: %w", err)
	}

	recovered := 0
	for _, rec := range stuck {
		if err := rec.Fail(InterruptedMessage); err != nil {
			s.log(ctx).Error("cannot fail interrupted task record", "task_id", rec.ID, "error", err)
			continue
		}
		if err := s.cache.Put(ctx, rec); err != nil {
			s.log(ctx).Warn("cache write failed during recovery", "task_id", rec.ID, "error", err)
		}
		if err := s.durable.Update(ctx, rec); err != nil {
			s.log(ctx).Error("durable write failed during recovery", "task_id", rec.ID, "error", err)
			continue
		}
		recovered++
	}

	if recovered > 0 {
		s.log(ctx).Info("recovered interrupted task records", "count", recovered)
	}
	return recovered, nil
}

// HealthCheck pings both views and returns the durable record count.
func (s *Store) HealthCheck(ctx context.Context) (int, error) {
	if err := s.cache.Ping(ctx); err != nil {
		return 0, fmt.Errorf("cache unavailable: %w", err)
	}
	if err := s.durable.Ping(ctx); err != nil {
		return 0, fmt.Errorf("database unavailable: %w", err)
	}
	return s.durable.Count(ctx)
}

// terminal applies a terminal mutation. A cache failure does not stop the
// durable write, which is retried up to TerminalWriteAttempts times.
func (s *Store) terminal(ctx context.Context, id uuid.UUID, fn func(*domain.TaskRecord) error) (*domain.TaskRecord, error) {
	rec, err := s.apply(ctx, id, fn)
	if err != nil {
		return nil, err
	}

	cacheErr := s.cache.Put(ctx, rec)
	if cacheErr != nil {
		s.log(ctx).Warn("terminal cache write failed", "task_id", id, "status", rec.Status, "error", cacheErr)
	}

	if err := s.persistTerminal(ctx, rec); err != nil {
		if cacheErr != nil {
			return nil, errors.Join(fmt.Errorf("cache task record: %w", cacheErr), err)
		}
		return rec, err
	}

	// A stale entry would shadow the durable terminal state once the cache
	// is reachable again.
	if cacheErr != nil {
		if err := s.cache.Delete(ctx, id); err != nil {
			s.log(ctx).Warn("cannot evict stale task record from cache", "task_id", id, "error", err)
		}
	}
	return rec, nil
}

func (s *Store) persistTerminal(ctx context.Context, rec *domain.TaskRecord) error {
	var lastErr error
	for attempt := 1; attempt <= TerminalWriteAttempts; attempt++ {
		lastErr = s.durable.Update(ctx, rec)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, store.ErrTerminalRecord) || errors.Is(lastErr, store.ErrNotFound) {
			break
		}

		s.log(ctx).Warn("terminal durable write failed",
			"task_id", rec.ID,
			"status", rec.Status,
			"attempt", attempt,
			"error", lastErr)

		if attempt < TerminalWriteAttempts {
			select {
			case <-ctx.Done():
				return fmt.Errorf("persist terminal state: %w", ctx.Err())
			case <-time.After(time.Duration(attempt) * s.retryDelay):
			}
		}
	}

	s.log(ctx).Error("terminal state not persisted", "task_id", rec.ID, "status", rec.Status, "error", lastErr)
	return fmt.Errorf("persist terminal state: %w", lastErr)
}

// apply loads the current record and applies fn to it in memory.
func (s *Store) apply(ctx context.Context, id uuid.UUID, fn func(*domain.TaskRecord) error) (*domain.TaskRecord, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load task record %s: %w", id, err)
	}
	if err := fn(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) log(ctx context.Context) *slog.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l.With("component", "task_store")
	}
	return s.logger
}
