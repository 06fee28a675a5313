// Package storetest holds a behavioural test suite shared by every
// store.TaskRecordStore implementation.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/paperpilot/internal/domain"
	"github.com/phrazzld/paperpilot/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty, migrated store for one subtest.
type Factory func(t *testing.T) store.TaskRecordStore

// NewRecord builds a valid uploaded record created at the given time.
func NewRecord(t *testing.T, subject string, createdAt time.Time) *domain.TaskRecord {
	t.Helper()

	rec, err := domain.NewTaskRecord(uuid.New(), subject, "10", "exam", true)
	require.NoError(t, err)
	rec.CreatedAt = createdAt.UTC()
	rec.UpdatedAt = createdAt.UTC()
	return rec
}

// CompleteRecord walks rec through every stage to completed.
func CompleteRecord(t *testing.T, rec *domain.TaskRecord) {
	t.Helper()

	require.NoError(t, rec.Advance(domain.StatusProcessingOCR, 10, "Extracting questions from PDF"))
	require.NoError(t, rec.Advance(domain.StatusExtractingQuestions, 20, "Identifying questions from text"))
	require.NoError(t, rec.Advance(domain.StatusProcessingQuestions, 40, "Processing 3 questions through LLM"))
	require.NoError(t, rec.SetQuestionCount(3))
	require.NoError(t, rec.Advance(domain.StatusCreatingDocuments, 90, "Creating output documents"))
	base := rec.ID.String()[:8]
	require.NoError(t, rec.Complete(base+".docx", base+".pdf", rec.CreatedAt.Add(time.Minute)))
}

// Run exercises the TaskRecordStore contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("create and get round trip", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		rec := NewRecord(t, "Chemistry", time.Now())

		require.NoError(t, s.Create(ctx, rec))

		got, err := s.GetByID(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, rec.ID, got.ID)
		assert.Equal(t, domain.StatusUploaded, got.Status)
		assert.Equal(t, "Files uploaded successfully", got.Message)
		assert.Equal(t, "Chemistry", got.SubjectName)
		assert.Equal(t, "10", got.MarkType)
		assert.Equal(t, "exam", got.StudyMode)
		assert.True(t, got.HasNotes)
		assert.WithinDuration(t, rec.CreatedAt, got.CreatedAt, time.Millisecond)
		assert.Nil(t, got.CompletedAt)
	})

	t.Run("create duplicate", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		rec := NewRecord(t, "Physics", time.Now())

		require.NoError(t, s.Create(ctx, rec))
		assert.ErrorIs(t, s.Create(ctx, rec), store.ErrDuplicate)
	})

	t.Run("get unknown", func(t *testing.T) {
		s := newStore(t)

		_, err := s.GetByID(context.Background(), uuid.New())
		assert.ErrorIs(t, err, store.ErrTaskRecordNotFound)
	})

	t.Run("update persists completion", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		rec := NewRecord(t, "History", time.Now())
		require.NoError(t, s.Create(ctx, rec))

		CompleteRecord(t, rec)
		require.NoError(t, s.Update(ctx, rec))

		got, err := s.GetByID(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCompleted, got.Status)
		assert.Equal(t, 100, got.Progress)
		assert.Equal(t, 3, got.QuestionCount)
		assert.Equal(t, rec.DocxFilename, got.DocxFilename)
		assert.Equal(t, rec.PDFFilename, got.PDFFilename)
		assert.Equal(t, rec.DocxFilename, got.OutputFilename)
		require.NotNil(t, got.CompletedAt)
		assert.WithinDuration(t, *rec.CompletedAt, *got.CompletedAt, time.Millisecond)
	})

	t.Run("update unknown", func(t *testing.T) {
		s := newStore(t)
		rec := NewRecord(t, "Art", time.Now())

		assert.ErrorIs(t, s.Update(context.Background(), rec), store.ErrTaskRecordNotFound)
	})

	t.Run("terminal records are not overwritten", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		rec := NewRecord(t, "Music", time.Now())
		require.NoError(t, s.Create(ctx, rec))

		require.NoError(t, rec.Fail("Error: boom"))
		require.NoError(t, s.Update(ctx, rec))
		require.NoError(t, s.Update(ctx, rec), "rewriting the same terminal state is allowed")

		stale := NewRecord(t, "Music", rec.CreatedAt)
		stale.ID = rec.ID
		require.NoError(t, stale.Advance(domain.StatusProcessingOCR, 10, "late write"))
		assert.ErrorIs(t, s.Update(ctx, stale), store.ErrTerminalRecord)

		got, err := s.GetByID(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusError, got.Status)
		assert.Equal(t, 0, got.Progress)
		assert.Equal(t, "Error: boom", got.Message)
	})

	t.Run("list completed newest first and bounded", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

		for i := 0; i < 5; i++ {
			rec := NewRecord(t, fmt.Sprintf("Subject %d", i), base.Add(time.Duration(i)*time.Second))
			require.NoError(t, s.Create(ctx, rec))
			if i != 2 {
				CompleteRecord(t, rec)
				require.NoError(t, s.Update(ctx, rec))
			}
		}

		got, err := s.ListCompleted(ctx, 3)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "Subject 4", got[0].SubjectName)
		assert.Equal(t, "Subject 3", got[1].SubjectName)
		assert.Equal(t, "Subject 1", got[2].SubjectName)
		for _, rec := range got {
			assert.Equal(t, domain.StatusCompleted, rec.Status)
		}

		none, err := s.ListCompleted(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("list by status", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		base := time.Now().Add(-time.Hour)

		uploaded := NewRecord(t, "A", base)
		require.NoError(t, s.Create(ctx, uploaded))

		running := NewRecord(t, "B", base.Add(time.Second))
		require.NoError(t, s.Create(ctx, running))
		require.NoError(t, running.Advance(domain.StatusProcessingOCR, 10, "ocr"))
		require.NoError(t, s.Update(ctx, running))

		done := NewRecord(t, "C", base.Add(2*time.Second))
		require.NoError(t, s.Create(ctx, done))
		CompleteRecord(t, done)
		require.NoError(t, s.Update(ctx, done))

		got, err := s.ListByStatus(ctx, domain.ActiveStatuses()...)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, uploaded.ID, got[0].ID)
		assert.Equal(t, running.ID, got[1].ID)

		empty, err := s.ListByStatus(ctx)
		require.NoError(t, err)
		assert.Empty(t, empty)

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		assert.NoError(t, s.Ping(ctx))
	})
}
