package taskstore

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/paperpilot/internal/domain"
)

// ErrCacheMiss is returned by a Cache that holds no entry for an ID.
var ErrCacheMiss = errors.New("cache miss")

// Cache is the volatile view of task records.
type Cache interface {
	// Put stores a copy of rec, replacing any existing entry.
	Put(ctx context.Context, rec *domain.TaskRecord) error

	// Get returns a copy of the record for id, or ErrCacheMiss.
	Get(ctx context.Context, id uuid.UUID) (*domain.TaskRecord, error)

	// Delete removes the entry for id. Deleting a missing entry is not an
	// error.
	Delete(ctx context.Context, id uuid.UUID) error

	// Ping verifies the cache is reachable.
	Ping(ctx context.Context) error
}

// MemoryCache is a process-local Cache. It is created once at startup and
// lives for the life of the process.
type MemoryCache struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*domain.TaskRecord
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{records: make(map[uuid.UUID]*domain.TaskRecord)}
}

var _ Cache = (*MemoryCache)(nil)

// Put implements Cache.
func (c *MemoryCache) Put(_ context.Context, rec *domain.TaskRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[rec.ID] = rec.Clone()
	return nil
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, id uuid.UUID) (*domain.TaskRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.records[id]
	if !ok {
		return nil, ErrCacheMiss
	}
	return rec.Clone(), nil
}

// Delete implements Cache.
func (c *MemoryCache) Delete(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.records, id)
	return nil
}

// Ping implements Cache.
func (c *MemoryCache) Ping(context.Context) error {
	return nil
}

// Len returns the number of cached records.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}
