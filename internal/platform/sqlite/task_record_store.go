package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/paperpilot/internal/domain"
	"github.com/phrazzld/paperpilot/internal/platform/logger"
	"github.com/phrazzld/paperpilot/internal/store"
)

// timeLayout is fixed-width so that text ordering matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const recordColumns = "id, status, progress, message, subject_name, mark_type, study_mode, has_notes, question_count, docx_filename, pdf_filename, output_filename, created_at, completed_at, updated_at"

// TaskRecordStore implements store.TaskRecordStore on SQLite.
type TaskRecordStore struct {
	db *sql.DB
}

// NewTaskRecordStore creates a new TaskRecordStore backed by db.
func NewTaskRecordStore(db *sql.DB) *TaskRecordStore {
	return &TaskRecordStore{db: db}
}

var _ store.TaskRecordStore = (*TaskRecordStore)(nil)

// Create implements store.TaskRecordStore.
func (s *TaskRecordStore) Create(ctx context.Context, rec *domain.TaskRecord) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM task_records WHERE id = ?`, rec.ID.String()).Scan(&exists)
	switch {
	case err == nil:
		return fmt.Errorf("%w: task record %s", store.ErrDuplicate, rec.ID)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("check task record: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO task_records (`+recordColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID.String(),
		string(rec.Status),
		rec.Progress,
		rec.Message,
		rec.SubjectName,
		rec.MarkType,
		rec.StudyMode,
		boolToInt(rec.HasNotes),
		rec.QuestionCount,
		nullableString(rec.DocxFilename),
		nullableString(rec.PDFFilename),
		nullableString(rec.OutputFilename),
		formatTime(rec.CreatedAt),
		nullableTime(rec.CompletedAt),
		formatTime(rec.UpdatedAt),
	)
	if err != nil {
		logger.FromContextOrDefault(ctx).Error("failed to create task record", "task_id", rec.ID, "error", err)
		return fmt.Errorf("insert task record: %w", err)
	}
	return nil
}

// Update implements store.TaskRecordStore.
func (s *TaskRecordStore) Update(ctx context.Context, rec *domain.TaskRecord) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	return store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		var current string
		err := tx.QueryRowContext(ctx, `SELECT status FROM task_records WHERE id = ?`, rec.ID.String()).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrTaskRecordNotFound
		}
		if err != nil {
			return fmt.Errorf("load task record status: %w", err)
		}

		if status := domain.TaskStatus(current); status.IsTerminal() && status != rec.Status {
			return fmt.Errorf("%w: %s is %s", store.ErrTerminalRecord, rec.ID, status)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE task_records
			SET status = ?, progress = ?, message = ?, question_count = ?,
				docx_filename = ?, pdf_filename = ?, output_filename = ?,
				completed_at = ?, updated_at = ?
			WHERE id = ?`,
			string(rec.Status),
			rec.Progress,
			rec.Message,
			rec.QuestionCount,
			nullableString(rec.DocxFilename),
			nullableString(rec.PDFFilename),
			nullableString(rec.OutputFilename),
			nullableTime(rec.CompletedAt),
			formatTime(rec.UpdatedAt),
			rec.ID.String(),
		)
		if err != nil {
			return fmt.Errorf("update task record: %w", err)
		}
		return nil
	})
}

// GetByID implements store.TaskRecordStore.
func (s *TaskRecordStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.TaskRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM task_records WHERE id = ?`, id.String())
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrTaskRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task record: %w", err)
	}
	return rec, nil
}

// ListCompleted implements store.TaskRecordStore.
func (s *TaskRecordStore) ListCompleted(ctx context.Context, limit int) ([]*domain.TaskRecord, error) {
	if limit <= 0 {
		return []*domain.TaskRecord{}, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM task_records WHERE status = ? ORDER BY created_at DESC LIMIT ?`,
		string(domain.StatusCompleted), limit)
	if err != nil {
		return nil, fmt.Errorf("list completed task records: %w", err)
	}
	return collectRecords(rows)
}

// ListByStatus implements store.TaskRecordStore.
func (s *TaskRecordStore) ListByStatus(ctx context.Context, statuses ...domain.TaskStatus) ([]*domain.TaskRecord, error) {
	if len(statuses) == 0 {
		return []*domain.TaskRecord{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(statuses)), ", ")
	args := make([]any, len(statuses))
	for i, st := range statuses {
		args[i] = string(st)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM task_records WHERE status IN (`+placeholders+`) ORDER BY created_at ASC`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("list task records by status: %w", err)
	}
	return collectRecords(rows)
}

// Count implements store.TaskRecordStore.
func (s *TaskRecordStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM task_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count task records: %w", err)
	}
	return n, nil
}

// Ping implements store.TaskRecordStore.
func (s *TaskRecordStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*domain.TaskRecord, error) {
	var (
		rec         domain.TaskRecord
		idRaw       string
		status      string
		hasNotes    int64
		docx        sql.NullString
		pdf         sql.NullString
		output      sql.NullString
		createdRaw  string
		completedAt sql.NullString
		updatedRaw  string
	)

	if err := scanner.Scan(
		&idRaw,
		&status,
		&rec.Progress,
		&rec.Message,
		&rec.SubjectName,
		&rec.MarkType,
		&rec.StudyMode,
		&hasNotes,
		&rec.QuestionCount,
		&docx,
		&pdf,
		&output,
		&createdRaw,
		&completedAt,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idRaw)
	if err != nil {
		return nil, fmt.Errorf("parse task record id %q: %w", idRaw, err)
	}
	rec.ID = id
	rec.Status = domain.TaskStatus(status)
	rec.HasNotes = hasNotes != 0
	rec.DocxFilename = docx.String
	rec.PDFFilename = pdf.String
	rec.OutputFilename = output.String

	if rec.CreatedAt, err = parseTime(createdRaw); err != nil {
		return nil, err
	}
	if rec.UpdatedAt, err = parseTime(updatedRaw); err != nil {
		return nil, err
	}
	if completedAt.Valid && completedAt.String != "" {
		t, err := parseTime(completedAt.String)
		if err != nil {
			return nil, err
		}
		rec.CompletedAt = &t
	}
	return &rec, nil
}

func collectRecords(rows *sql.Rows) ([]*domain.TaskRecord, error) {
	defer func() { _ = rows.Close() }()

	records := []*domain.TaskRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate task records: %w", err)
	}
	return records, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", raw, err)
	}
	return t.UTC(), nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
