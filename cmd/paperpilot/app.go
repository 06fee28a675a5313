package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/paperpilot/internal/api"
	"github.com/phrazzld/paperpilot/internal/config"
	"github.com/phrazzld/paperpilot/internal/pdftext"
	"github.com/phrazzld/paperpilot/internal/pipeline"
	"github.com/phrazzld/paperpilot/internal/platform/gemini"
	"github.com/phrazzld/paperpilot/internal/platform/logger"
	"github.com/phrazzld/paperpilot/internal/platform/migrate"
	"github.com/phrazzld/paperpilot/internal/questions"
	"github.com/phrazzld/paperpilot/internal/render"
	"github.com/phrazzld/paperpilot/internal/service"
	"github.com/phrazzld/paperpilot/internal/task"
	"github.com/phrazzld/paperpilot/internal/taskstore"
)

// newAnswerer builds the LLM answerer. Tests replace it to avoid the network.
var newAnswerer = func(ctx context.Context, log *slog.Logger, cfg config.LLMConfig) (pipeline.Answerer, error) {
	return gemini.NewAnswerer(ctx, log, cfg)
}

// application holds the shared dependencies of a running server so they can
// be released in order on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	durable    *durableStore
	closeCache func() error
	tasks      *taskstore.Store
	runner     *task.Runner
	router     http.Handler
}

// newApplication opens the stores, migrates the durable schema, recovers
// interrupted records and wires the pipeline behind the HTTP router.
func newApplication(ctx context.Context, cfg *config.Config, log *slog.Logger) (_ *application, err error) {
	ctx = logger.WithLogger(ctx, log)
	app := &application{config: cfg, logger: log}
	defer func() {
		if err != nil {
			app.cleanup()
		}
	}()

	app.durable, err = openDurableStore(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	if err = app.durable.migrate(ctx, migrate.CommandUp); err != nil {
		return nil, err
	}

	cache, closeCache, err := openCache(ctx, cfg.Cache, log)
	if err != nil {
		return nil, err
	}
	app.closeCache = closeCache

	var storeOpts []taskstore.Option
	if cfg.Cache.Backend == "redis" {
		storeOpts = append(storeOpts, taskstore.WithSharedCache())
	}
	app.tasks = taskstore.New(cache, app.durable.records, log, storeOpts...)
	recovered, err := app.tasks.RecoverInterrupted(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to recover interrupted tasks: %w", err)
	}
	if recovered > 0 {
		log.Warn("marked interrupted tasks as failed", "count", recovered)
	}

	answerer, err := newAnswerer(ctx, log, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM answerer: %w", err)
	}
	log.Info("LLM answerer initialized", "model", cfg.LLM.ModelName)

	pipe, err := pipeline.New(pipeline.Dependencies{
		Tracker:   app.tasks,
		Text:      pdftext.NewExtractor(),
		Questions: questions.NewExtractor(),
		Answerer:  answerer,
		DOCX:      render.NewDOCXRenderer(),
		PDF:       render.NewPDFRenderer(),
	}, cfg.Storage.OutputDir, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	app.runner = task.NewRunner(task.RunnerConfig{MaxConcurrent: cfg.Pipeline.MaxConcurrent}, log)
	factory := task.NewSubmissionTaskFactory(pipe, log)

	submissions, err := service.NewSubmissionService(app.tasks, app.runner, factory, cfg.Storage.UploadDir, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create submission service: %w", err)
	}
	queries, err := service.NewQueryService(app.tasks, cfg.Storage.OutputDir, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create query service: %w", err)
	}

	app.router = api.NewRouter(
		api.NewTaskHandler(submissions, queries, cfg.Server.MaxUploadMB<<20, log),
		api.NewHealthHandler(app.tasks),
		log,
	)

	log.Info("application initialized",
		"database", app.durable.dialect,
		"cache", cfg.Cache.Backend,
		"max_concurrent", cfg.Pipeline.MaxConcurrent)
	return app, nil
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (app *application) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", app.config.Server.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		app.logger.Info("starting server", "port", app.config.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		app.logger.Info("shutting down server")
	case err := <-serverErr:
		if err != nil {
			runErr = fmt.Errorf("server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), app.config.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("server shutdown failed", "error", err)
		runErr = errors.Join(runErr, fmt.Errorf("server shutdown failed: %w", err))
	}
	if err := app.runner.Stop(shutdownCtx); err != nil {
		app.logger.Error("task runner did not drain", "error", err)
	}

	app.cleanup()
	app.logger.Info("server shutdown completed")
	return runErr
}

// cleanup releases the cache and database connections.
func (app *application) cleanup() {
	if app.closeCache != nil {
		if err := app.closeCache(); err != nil {
			app.logger.Error("error closing task cache", "error", err)
		}
	}
	if app.durable != nil {
		if err := app.durable.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}
}
