// Package redis provides a Redis-backed volatile view of task records. The
// cache is shared by every server process pointed at the same Redis, so
// startup recovery is disabled when it is in use.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/paperpilot/internal/domain"
	"github.com/phrazzld/paperpilot/internal/taskstore"
	goredis "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces task record keys.
const DefaultPrefix = "paperpilot:task:"

// Config holds Redis connection configuration.
type Config struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
	Prefix   string
}

// TaskCache implements taskstore.Cache with one JSON value per record.
// Entries do not expire.
type TaskCache struct {
	client *goredis.Client
	prefix string
}

var _ taskstore.Cache = (*TaskCache)(nil)

// NewTaskCache connects to Redis and verifies the connection.
func NewTaskCache(ctx context.Context, cfg Config) (*TaskCache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &TaskCache{client: client, prefix: prefix}, nil
}

// Put implements taskstore.Cache.
func (c *TaskCache) Put(ctx context.Context, rec *domain.TaskRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal task record: %w", err)
	}
	if err := c.client.Set(ctx, c.key(rec.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Get implements taskstore.Cache.
func (c *TaskCache) Get(ctx context.Context, id uuid.UUID) (*domain.TaskRecord, error) {
	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, taskstore.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var rec domain.TaskRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal task record: %w", err)
	}
	return &rec, nil
}

// Delete implements taskstore.Cache.
func (c *TaskCache) Delete(ctx context.Context, id uuid.UUID) error {
	if err := c.client.Del(ctx, c.key(id)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Ping implements taskstore.Cache.
func (c *TaskCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *TaskCache) Close() error {
	return c.client.Close()
}

func (c *TaskCache) key(id uuid.UUID) string {
	return c.prefix + id.String()
}
