package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/phrazzld/paperpilot/internal/platform/logger"
)

// ErrRunnerStopped is returned by Submit after Stop has been called.
var ErrRunnerStopped = errors.New("task runner is not accepting work")

// RunnerConfig holds configuration for the task runner
type RunnerConfig struct {
	// MaxConcurrent bounds how many tasks execute at once.
	// Zero or negative means unbounded.
	MaxConcurrent int
}

// Runner executes submitted tasks in the background. Tasks are never
// cancelled: they run on a context detached from the submitter's.
type Runner struct {
	config     RunnerConfig
	logger     *slog.Logger
	sem        chan struct{}
	wg         sync.WaitGroup
	mu         sync.Mutex
	stopped    bool
	running    atomic.Int64
	errHandler func(task Task, err error)
}

// NewRunner creates a new Runner
func NewRunner(config RunnerConfig, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "task_runner")

	r := &Runner{
		config: config,
		logger: log,
		errHandler: func(task Task, err error) {
			log.Error("task execution failed",
				"task_id", task.ID(),
				"task_type", task.Type(),
				"error", err)
		},
	}
	if config.MaxConcurrent > 0 {
		r.sem = make(chan struct{}, config.MaxConcurrent)
	}
	return r
}

// SetErrorHandler allows setting a custom error handler function
func (r *Runner) SetErrorHandler(handler func(task Task, err error)) {
	r.errHandler = handler
}

// Submit starts task in the background and returns immediately. When the
// runner is bounded and full, the task waits for a free slot in its own
// goroutine.
func (r *Runner) Submit(ctx context.Context, task Task) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return nil, ErrRunnerStopped
	}

	handle := newHandle(task.ID())
	r.wg.Add(1)

	execCtx := context.WithoutCancel(ctx)
	go r.run(execCtx, task, handle)

	return handle, nil
}

// Running returns the number of tasks currently executing.
func (r *Runner) Running() int {
	return int(r.running.Load())
}

// Wait blocks until every submitted task has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Stop refuses further submissions and waits for in-flight tasks until ctx
// is done.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("task runner stopped")
		return nil
	case <-ctx.Done():
		r.logger.Warn("task runner stopped with tasks still running", "running", r.Running())
		return fmt.Errorf("waiting for tasks: %w", ctx.Err())
	}
}

func (r *Runner) run(ctx context.Context, task Task, handle *Handle) {
	defer r.wg.Done()

	if r.sem != nil {
		r.sem <- struct{}{}
		defer func() { <-r.sem }()
	}

	log := r.logger.With("task_id", task.ID(), "task_type", task.Type())
	ctx = logger.WithLogger(ctx, log)

	r.running.Add(1)
	defer r.running.Add(-1)

	log.Info("processing task")
	err := r.execute(ctx, task)
	if err != nil {
		r.errHandler(task, err)
	} else {
		log.Info("task completed successfully")
	}
	handle.finish(err)
}

func (r *Runner) execute(ctx context.Context, task Task) (err error) {
	defer func() {
		if p := recover(); p != nil {
			logger.FromContextOrDefault(ctx).Error("task panicked",
				"panic", p,
				"stack", string(debug.Stack()))
			err = fmt.Errorf("task panicked: %v", p)
		}
	}()
	return task.Execute(ctx)
}
