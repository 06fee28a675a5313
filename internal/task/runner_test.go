package task

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestRunner_SubmitReturnsImmediately(t *testing.T) {
	t.Parallel()

	runner := NewRunner(RunnerConfig{}, testLogger())
	release := make(chan struct{})

	task := newFuncTask(func(ctx context.Context) error {
		<-release
		return nil
	})

	handle, err := runner.Submit(context.Background(), task)
	require.NoError(t, err)
	assert.Equal(t, task.ID(), handle.ID())

	select {
	case <-handle.Done():
		t.Fatal("task finished before it was released")
	default:
	}
	assert.NoError(t, handle.Err(), "Err is nil while running")

	close(release)
	require.NoError(t, handle.Wait(context.Background()))
}

func TestRunner_HandleReportsError(t *testing.T) {
	t.Parallel()

	runner := NewRunner(RunnerConfig{}, testLogger())
	expected := errors.New("pipeline failed")

	var handled atomic.Bool
	runner.SetErrorHandler(func(task Task, err error) {
		handled.Store(errors.Is(err, expected))
	})

	handle, err := runner.Submit(context.Background(), newFuncTask(func(ctx context.Context) error {
		return expected
	}))
	require.NoError(t, err)

	assert.ErrorIs(t, handle.Wait(context.Background()), expected)
	assert.ErrorIs(t, handle.Err(), expected)
	assert.True(t, handled.Load())
}

func TestRunner_RecoversPanics(t *testing.T) {
	t.Parallel()

	runner := NewRunner(RunnerConfig{}, testLogger())
	handle, err := runner.Submit(context.Background(), newFuncTask(func(ctx context.Context) error {
		panic("boom")
	}))
	require.NoError(t, err)

	err = handle.Wait(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestRunner_DetachesFromSubmitterContext(t *testing.T) {
	t.Parallel()

	runner := NewRunner(RunnerConfig{}, testLogger())
	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})
	handle, err := runner.Submit(ctx, newFuncTask(func(taskCtx context.Context) error {
		close(started)
		time.Sleep(20 * time.Millisecond)
		return taskCtx.Err()
	}))
	require.NoError(t, err)

	<-started
	cancel()
	assert.NoError(t, handle.Wait(context.Background()), "cancelling the request must not cancel the task")
}

func TestRunner_WaitJoinsAllTasks(t *testing.T) {
	t.Parallel()

	runner := NewRunner(RunnerConfig{}, testLogger())
	var completed atomic.Int32

	for i := 0; i < 10; i++ {
		_, err := runner.Submit(context.Background(), newFuncTask(func(ctx context.Context) error {
			time.Sleep(5 * time.Millisecond)
			completed.Add(1)
			return nil
		}))
		require.NoError(t, err)
	}

	runner.Wait()
	assert.Equal(t, int32(10), completed.Load())
	assert.Equal(t, 0, runner.Running())
}

func TestRunner_MaxConcurrentBound(t *testing.T) {
	t.Parallel()

	const limit = 2
	runner := NewRunner(RunnerConfig{MaxConcurrent: limit}, testLogger())

	var (
		mu      sync.Mutex
		current int
		peak    int
	)
	release := make(chan struct{})

	for i := 0; i < 6; i++ {
		_, err := runner.Submit(context.Background(), newFuncTask(func(ctx context.Context) error {
			mu.Lock()
			current++
			if current > peak {
				peak = current
			}
			mu.Unlock()

			<-release

			mu.Lock()
			current--
			mu.Unlock()
			return nil
		}))
		require.NoError(t, err, "submission never blocks on the bound")
	}

	require.Eventually(t, func() bool { return runner.Running() == limit }, time.Second, 5*time.Millisecond)
	close(release)
	runner.Wait()

	assert.Equal(t, limit, peak)
}

func TestRunner_StopRefusesNewWork(t *testing.T) {
	t.Parallel()

	runner := NewRunner(RunnerConfig{}, testLogger())
	release := make(chan struct{})
	handle, err := runner.Submit(context.Background(), newFuncTask(func(ctx context.Context) error {
		<-release
		return nil
	}))
	require.NoError(t, err)

	shortCtx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, runner.Stop(shortCtx), context.DeadlineExceeded)

	_, err = runner.Submit(context.Background(), newFuncTask(nil))
	assert.ErrorIs(t, err, ErrRunnerStopped)

	close(release)
	require.NoError(t, handle.Wait(context.Background()))
	assert.NoError(t, runner.Stop(context.Background()))
}

func TestHandle_WaitHonoursContext(t *testing.T) {
	t.Parallel()

	h := newHandle(newFuncTask(nil).ID())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, h.Wait(ctx), context.Canceled)
}
