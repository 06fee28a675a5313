package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/phrazzld/paperpilot/internal/config"
	"github.com/phrazzld/paperpilot/internal/platform/migrate"
	"github.com/phrazzld/paperpilot/internal/platform/postgres"
	"github.com/phrazzld/paperpilot/internal/platform/redis"
	"github.com/phrazzld/paperpilot/internal/platform/sqlite"
	"github.com/phrazzld/paperpilot/internal/redact"
	"github.com/phrazzld/paperpilot/internal/store"
	"github.com/phrazzld/paperpilot/internal/taskstore"
)

// durableStore is the opened durable view together with what is needed to
// migrate it.
type durableStore struct {
	db         *sql.DB
	dialect    string
	migrations fs.FS
	records    store.TaskRecordStore
}

// openDurableStore opens Postgres when a URL is configured and the embedded
// SQLite database otherwise. Migrations are not applied.
func openDurableStore(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (*durableStore, error) {
	if cfg.UsesPostgres() {
		db, err := postgres.Open(ctx, cfg.URL, cfg.MaxOpenConns)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		log.Info("database connection established",
			"driver", "postgres",
			"url", redact.String(cfg.URL))
		return &durableStore{
			db:         db,
			dialect:    migrate.DialectPostgres,
			migrations: postgres.Migrations(),
			records:    postgres.NewTaskRecordStore(db),
		}, nil
	}

	db, err := sqlite.Open(ctx, cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	log.Info("database connection established", "driver", "sqlite", "path", cfg.SQLitePath)
	return &durableStore{
		db:         db,
		dialect:    migrate.DialectSQLite,
		migrations: sqlite.Migrations(),
		records:    sqlite.NewTaskRecordStore(db),
	}, nil
}

func (d *durableStore) migrate(ctx context.Context, command string) error {
	if err := migrate.Run(ctx, d.db, d.dialect, d.migrations, command); err != nil {
		return fmt.Errorf("migrations %s failed: %w", command, err)
	}
	return nil
}

func (d *durableStore) Close() error {
	return d.db.Close()
}

// openCache builds the volatile task record view. The returned close
// function is never nil.
func openCache(ctx context.Context, cfg config.CacheConfig, log *slog.Logger) (taskstore.Cache, func() error, error) {
	if cfg.Backend != "redis" {
		return taskstore.NewMemoryCache(), func() error { return nil }, nil
	}

	cache, err := redis.NewTaskCache(ctx, redis.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Prefix:   cfg.KeyPrefix,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis cache: %w", err)
	}
	log.Info("redis task cache connected", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
	return cache, cache.Close, nil
}
