package taskstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/paperpilot/internal/domain"
	"github.com/phrazzld/paperpilot/internal/platform/migrate"
	"github.com/phrazzld/paperpilot/internal/platform/sqlite"
	"github.com/phrazzld/paperpilot/internal/store"
	"github.com/phrazzld/paperpilot/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errDurableDown = errors.New("durable store unavailable")
	errCacheDown   = errors.New("cache unavailable")
)

// outageCache wraps a MemoryCache and fails reads and writes while down.
type outageCache struct {
	*MemoryCache

	mu   sync.Mutex
	down bool
}

func (c *outageCache) setDown(down bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.down = down
}

func (c *outageCache) isDown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.down
}

func (c *outageCache) Put(ctx context.Context, rec *domain.TaskRecord) error {
	if c.isDown() {
		return errCacheDown
	}
	return c.MemoryCache.Put(ctx, rec)
}

func (c *outageCache) Get(ctx context.Context, id uuid.UUID) (*domain.TaskRecord, error) {
	if c.isDown() {
		return nil, errCacheDown
	}
	return c.MemoryCache.Get(ctx, id)
}

// fakeDurable is an in-memory store.TaskRecordStore with failure injection.
type fakeDurable struct {
	mu          sync.Mutex
	records     map[uuid.UUID]*domain.TaskRecord
	failCreate  bool
	failUpdates int
	updateCalls int
}

func newFakeDurable() *fakeDurable {
	return &fakeDurable{records: make(map[uuid.UUID]*domain.TaskRecord)}
}

func (f *fakeDurable) Create(_ context.Context, rec *domain.TaskRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return errDurableDown
	}
	if _, ok := f.records[rec.ID]; ok {
		return store.ErrDuplicate
	}
	f.records[rec.ID] = rec.Clone()
	return nil
}

func (f *fakeDurable) Update(_ context.Context, rec *domain.TaskRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.failUpdates > 0 {
		f.failUpdates--
		return errDurableDown
	}
	if _, ok := f.records[rec.ID]; !ok {
		return store.ErrTaskRecordNotFound
	}
	f.records[rec.ID] = rec.Clone()
	return nil
}

func (f *fakeDurable) GetByID(_ context.Context, id uuid.UUID) (*domain.TaskRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return nil, store.ErrTaskRecordNotFound
	}
	return rec.Clone(), nil
}

func (f *fakeDurable) ListCompleted(_ context.Context, limit int) ([]*domain.TaskRecord, error) {
	recs, _ := f.ListByStatus(context.Background(), domain.StatusCompleted)
	sort.Slice(recs, func(i, j int) bool { return recs[i].CreatedAt.After(recs[j].CreatedAt) })
	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

func (f *fakeDurable) ListByStatus(_ context.Context, statuses ...domain.TaskStatus) ([]*domain.TaskRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.TaskRecord
	for _, rec := range f.records {
		for _, st := range statuses {
			if rec.Status == st {
				out = append(out, rec.Clone())
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeDurable) Count(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records), nil
}

func (f *fakeDurable) Ping(context.Context) error { return nil }

func (f *fakeDurable) stored(id uuid.UUID) *domain.TaskRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[id].Clone()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) (*Store, *MemoryCache, *fakeDurable) {
	t.Helper()
	cache := NewMemoryCache()
	durable := newFakeDurable()
	return New(cache, durable, discardLogger(), WithRetryDelay(time.Millisecond)), cache, durable
}

func newRecord(t *testing.T) *domain.TaskRecord {
	t.Helper()
	rec, err := domain.NewTaskRecord(uuid.New(), "Biology", "5", "understand", false)
	require.NoError(t, err)
	return rec
}

func TestCreateWritesBothViews(t *testing.T) {
	t.Parallel()
	s, cache, durable := newTestStore(t)
	ctx := context.Background()
	rec := newRecord(t)

	require.NoError(t, s.Create(ctx, rec))

	cached, err := cache.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUploaded, cached.Status)
	assert.NotNil(t, durable.stored(rec.ID))
}

func TestCreateAbortsOnDurableFailure(t *testing.T) {
	t.Parallel()
	s, cache, durable := newTestStore(t)
	durable.failCreate = true

	err := s.Create(context.Background(), newRecord(t))
	assert.ErrorIs(t, err, errDurableDown)
	assert.Zero(t, cache.Len(), "unpersisted record is removed from the cache")
}

func TestAdvanceIsBestEffortOnDurable(t *testing.T) {
	t.Parallel()
	s, _, durable := newTestStore(t)
	ctx := context.Background()
	rec := newRecord(t)
	require.NoError(t, s.Create(ctx, rec))

	durable.failUpdates = 1
	got, err := s.Advance(ctx, rec.ID, domain.StatusProcessingOCR, 10, "Extracting questions from PDF")
	require.NoError(t, err, "non-terminal durable failures are swallowed")
	assert.Equal(t, domain.StatusProcessingOCR, got.Status)

	cached, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessingOCR, cached.Status, "cache is written first")
	assert.Equal(t, domain.StatusUploaded, durable.stored(rec.ID).Status)

	_, err = s.Advance(ctx, rec.ID, domain.StatusExtractingQuestions, 20, "Identifying questions from text")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExtractingQuestions, durable.stored(rec.ID).Status, "next write converges the views")
}

func TestAdvanceRejectsIllegalTransition(t *testing.T) {
	t.Parallel()
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	rec := newRecord(t)
	require.NoError(t, s.Create(ctx, rec))

	_, err := s.Advance(ctx, rec.ID, domain.StatusCreatingDocuments, 90, "skip")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	got, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUploaded, got.Status)
}

func TestTerminalWritesAreRetried(t *testing.T) {
	t.Parallel()
	s, _, durable := newTestStore(t)
	ctx := context.Background()
	rec := newRecord(t)
	require.NoError(t, s.Create(ctx, rec))

	durable.failUpdates = TerminalWriteAttempts - 1
	_, err := s.Fail(ctx, rec.ID, "Error: boom")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusError, durable.stored(rec.ID).Status)
	assert.Equal(t, TerminalWriteAttempts, durable.updateCalls)
}

func TestTerminalWriteFailureIsReported(t *testing.T) {
	t.Parallel()
	s, _, durable := newTestStore(t)
	ctx := context.Background()
	rec := newRecord(t)
	require.NoError(t, s.Create(ctx, rec))

	durable.failUpdates = TerminalWriteAttempts
	got, err := s.Fail(ctx, rec.ID, "Error: boom")
	assert.ErrorIs(t, err, errDurableDown)
	require.NotNil(t, got)
	assert.Equal(t, domain.StatusError, got.Status, "cache still holds the terminal state")
}

func TestTerminalWriteSurvivesCacheOutage(t *testing.T) {
	t.Parallel()
	cache := &outageCache{MemoryCache: NewMemoryCache()}
	durable := newFakeDurable()
	s := New(cache, durable, discardLogger(), WithRetryDelay(time.Millisecond))
	ctx := context.Background()
	rec := newRecord(t)
	require.NoError(t, s.Create(ctx, rec))
	_, err := s.Advance(ctx, rec.ID, domain.StatusProcessingOCR, 10, "Extracting questions from PDF")
	require.NoError(t, err)

	cache.setDown(true)
	got, err := s.Fail(ctx, rec.ID, "Error: boom")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusError, got.Status)
	assert.Equal(t, domain.StatusError, durable.stored(rec.ID).Status)

	polled, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusError, polled.Status)

	cache.setDown(false)
	polled, err = s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusError, polled.Status, "stale cache entry must not shadow the terminal state")
}

func TestTerminalWriteFailsWhenBothViewsDown(t *testing.T) {
	t.Parallel()
	cache := &outageCache{MemoryCache: NewMemoryCache()}
	durable := newFakeDurable()
	s := New(cache, durable, discardLogger(), WithRetryDelay(time.Millisecond))
	ctx := context.Background()
	rec := newRecord(t)
	require.NoError(t, s.Create(ctx, rec))

	cache.setDown(true)
	durable.failUpdates = TerminalWriteAttempts
	got, err := s.Fail(ctx, rec.ID, "Error: boom")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, errCacheDown)
	assert.ErrorIs(t, err, errDurableDown)
	assert.Equal(t, domain.StatusUploaded, durable.stored(rec.ID).Status)
}

func TestAdvanceReportsCacheFailure(t *testing.T) {
	t.Parallel()
	cache := &outageCache{MemoryCache: NewMemoryCache()}
	durable := newFakeDurable()
	s := New(cache, durable, discardLogger())
	ctx := context.Background()
	rec := newRecord(t)
	require.NoError(t, s.Create(ctx, rec))

	cache.setDown(true)
	_, err := s.Advance(ctx, rec.ID, domain.StatusProcessingOCR, 10, "Extracting questions from PDF")
	assert.ErrorIs(t, err, errCacheDown)
	assert.Equal(t, domain.StatusUploaded, durable.stored(rec.ID).Status)
}

func TestGetFallsBackToDurable(t *testing.T) {
	t.Parallel()
	cache := NewMemoryCache()
	durable := newFakeDurable()
	ctx := context.Background()
	rec := newRecord(t)
	require.NoError(t, durable.Create(ctx, rec))

	s := New(cache, durable, discardLogger())
	got, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)

	_, err = s.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrTaskRecordNotFound)
}

func TestHistoryClampsLimit(t *testing.T) {
	t.Parallel()
	s, _, durable := newTestStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i := 0; i < MaxHistory+5; i++ {
		rec := storetest.NewRecord(t, "Subject", base.Add(time.Duration(i)*time.Second))
		storetest.CompleteRecord(t, rec)
		require.NoError(t, durable.Create(ctx, rec))
	}
	running := storetest.NewRecord(t, "Running", time.Now())
	require.NoError(t, durable.Create(ctx, running))

	for _, limit := range []int{0, -1, 100} {
		got, err := s.History(ctx, limit)
		require.NoError(t, err)
		assert.Len(t, got, MaxHistory)
	}

	got, err := s.History(ctx, 5)
	require.NoError(t, err)
	require.Len(t, got, 5)
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i-1].CreatedAt.After(got[i].CreatedAt), "newest first")
		assert.Equal(t, domain.StatusCompleted, got[i].Status)
	}
}

func TestRecoverInterrupted(t *testing.T) {
	t.Parallel()
	s, _, durable := newTestStore(t)
	ctx := context.Background()

	stuck := newRecord(t)
	require.NoError(t, s.Create(ctx, stuck))
	_, err := s.Advance(ctx, stuck.ID, domain.StatusProcessingOCR, 10, "ocr")
	require.NoError(t, err)

	done := storetest.NewRecord(t, "Done", time.Now())
	storetest.CompleteRecord(t, done)
	require.NoError(t, durable.Create(ctx, done))

	n, err := s.RecoverInterrupted(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got := durable.stored(stuck.ID)
	assert.Equal(t, domain.StatusError, got.Status)
	assert.Equal(t, 0, got.Progress)
	assert.Equal(t, InterruptedMessage, got.Message)
	assert.Equal(t, domain.StatusCompleted, durable.stored(done.ID).Status)
}

func TestRecoverInterruptedSkipsSharedCache(t *testing.T) {
	t.Parallel()
	cache := NewMemoryCache()
	durable := newFakeDurable()
	ctx := context.Background()
	running := New(cache, durable, discardLogger(), WithSharedCache())
	starting := New(cache, durable, discardLogger(), WithSharedCache())

	rec := newRecord(t)
	require.NoError(t, running.Create(ctx, rec))
	_, err := running.Advance(ctx, rec.ID, domain.StatusProcessingOCR, 10, "Extracting questions from PDF")
	require.NoError(t, err)

	n, err := starting.RecoverInterrupted(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, domain.StatusProcessingOCR, durable.stored(rec.ID).Status)

	_, err = running.Advance(ctx, rec.ID, domain.StatusExtractingQuestions, 20, "Identifying questions from text")
	require.NoError(t, err, "the peer's pipeline keeps advancing")
	assert.Equal(t, domain.StatusExtractingQuestions, durable.stored(rec.ID).Status)
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, newRecord(t)))

	n, err := s.HealthCheck(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

// TestCompletedRecordSurvivesRestart simulates losing the volatile view by
// building a second Store with a fresh cache over the same SQLite database.
func TestCompletedRecordSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "paperpilot.db"))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	require.NoError(t, migrate.Up(ctx, db, migrate.DialectSQLite, sqlite.Migrations()))
	durable := sqlite.NewTaskRecordStore(db)

	first := New(NewMemoryCache(), durable, discardLogger())
	rec := newRecord(t)
	require.NoError(t, first.Create(ctx, rec))
	for _, step := range []struct {
		status   domain.TaskStatus
		progress int
	}{
		{domain.StatusProcessingOCR, 10},
		{domain.StatusExtractingQuestions, 20},
		{domain.StatusProcessingQuestions, 40},
		{domain.StatusCreatingDocuments, 90},
	} {
		_, err := first.Advance(ctx, rec.ID, step.status, step.progress, string(step.status))
		require.NoError(t, err)
	}
	_, err = first.Complete(ctx, rec.ID, "Biology.docx", "Biology.pdf", time.Now())
	require.NoError(t, err)

	restarted := New(NewMemoryCache(), durable, discardLogger())
	got, err := restarted.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)
	assert.Equal(t, "Biology.docx", got.DocxFilename)
	assert.Equal(t, "Biology.pdf", got.PDFFilename)
	assert.NotNil(t, got.CompletedAt)
}

func TestMemoryCacheIsolation(t *testing.T) {
	t.Parallel()
	cache := NewMemoryCache()
	ctx := context.Background()
	rec := newRecord(t)

	require.NoError(t, cache.Put(ctx, rec))
	rec.Message = "mutated after put"

	got, err := cache.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Files uploaded successfully", got.Message)

	got.Message = "mutated after get"
	again, err := cache.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Files uploaded successfully", again.Message)
	assert.Equal(t, 1, cache.Len())

	_, err = cache.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheConcurrentAccess(t *testing.T) {
	t.Parallel()
	cache := NewMemoryCache()
	ctx := context.Background()

	records := make([]*domain.TaskRecord, 20)
	for i := range records {
		records[i] = newRecord(t)
	}

	var wg sync.WaitGroup
	for _, rec := range records {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := 0; p < 10; p++ {
				_ = cache.Put(ctx, rec)
				_, _ = cache.Get(ctx, rec.ID)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, cache.Len())
}
