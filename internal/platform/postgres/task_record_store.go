package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/paperpilot/internal/domain"
	"github.com/phrazzld/paperpilot/internal/platform/logger"
	"github.com/phrazzld/paperpilot/internal/store"
)

const recordColumns = `id, status, progress, message, subject_name, mark_type, study_mode,
	has_notes, question_count, docx_filename, pdf_filename, output_filename,
	created_at, completed_at, updated_at`

// TaskRecordStore implements store.TaskRecordStore using PostgreSQL.
type TaskRecordStore struct {
	db *sql.DB
}

// NewTaskRecordStore creates a new TaskRecordStore backed by db, which must
// have been opened with the pgx stdlib driver.
func NewTaskRecordStore(db *sql.DB) *TaskRecordStore {
	return &TaskRecordStore{db: db}
}

var _ store.TaskRecordStore = (*TaskRecordStore)(nil)

// Create implements store.TaskRecordStore.
func (s *TaskRecordStore) Create(ctx context.Context, rec *domain.TaskRecord) error {
	log := logger.FromContextOrDefault(ctx)

	if err := rec.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `INSERT INTO task_records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		string(rec.Status),
		rec.Progress,
		rec.Message,
		rec.SubjectName,
		rec.MarkType,
		rec.StudyMode,
		rec.HasNotes,
		rec.QuestionCount,
		nullString(rec.DocxFilename),
		nullString(rec.PDFFilename),
		nullString(rec.OutputFilename),
		rec.CreatedAt.UTC(),
		nullTime(rec.CompletedAt),
		rec.UpdatedAt.UTC(),
	)
	if err != nil {
		log.Error("failed to create task record", "task_id", rec.ID, "error", err)
		return MapError(err)
	}

	log.Debug("task record created", "task_id", rec.ID)
	return nil
}

// Update implements store.TaskRecordStore. The current row is locked while its
// status is checked so a terminal record cannot be overwritten.
func (s *TaskRecordStore) Update(ctx context.Context, rec *domain.TaskRecord) error {
	log := logger.FromContextOrDefault(ctx)

	if err := rec.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		var current string
		err := tx.QueryRowContext(ctx,
			`SELECT status FROM task_records WHERE id = $1 FOR UPDATE`, rec.ID).Scan(&current)
		if err != nil {
			return MapError(err)
		}

		if status := domain.TaskStatus(current); status.IsTerminal() && status != rec.Status {
			return fmt.Errorf("%w: %s is %s", store.ErrTerminalRecord, rec.ID, status)
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE task_records
			SET status = $2, progress = $3, message = $4, question_count = $5,
				docx_filename = $6, pdf_filename = $7, output_filename = $8,
				completed_at = $9, updated_at = $10
			WHERE id = $1`,
			rec.ID,
			string(rec.Status),
			rec.Progress,
			rec.Message,
			rec.QuestionCount,
			nullString(rec.DocxFilename),
			nullString(rec.PDFFilename),
			nullString(rec.OutputFilename),
			nullTime(rec.CompletedAt),
			rec.UpdatedAt.UTC(),
		)
		if err != nil {
			return MapError(err)
		}
		return CheckRowsAffected(result)
	})
	if err != nil {
		log.Error("failed to update task record",
			"task_id", rec.ID,
			"status", rec.Status,
			"error", err)
		return err
	}
	return nil
}

// GetByID implements store.TaskRecordStore.
func (s *TaskRecordStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.TaskRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM task_records WHERE id = $1`, id)

	rec, err := scanRecord(row)
	if err != nil {
		return nil, MapError(err)
	}
	return rec, nil
}

// ListCompleted implements store.TaskRecordStore.
func (s *TaskRecordStore) ListCompleted(ctx context.Context, limit int) ([]*domain.TaskRecord, error) {
	if limit <= 0 {
		return []*domain.TaskRecord{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM task_records
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2`, string(domain.StatusCompleted), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query completed task records: %w", MapError(err))
	}
	return collectRecords(rows)
}

// ListByStatus implements store.TaskRecordStore.
func (s *TaskRecordStore) ListByStatus(ctx context.Context, statuses ...domain.TaskStatus) ([]*domain.TaskRecord, error) {
	if len(statuses) == 0 {
		return []*domain.TaskRecord{}, nil
	}

	placeholders := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, st := range statuses {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = string(st)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM task_records
		WHERE status IN (`+strings.Join(placeholders, ", ")+`)
		ORDER BY created_at ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query task records by status: %w", MapError(err))
	}
	return collectRecords(rows)
}

// Count implements store.TaskRecordStore.
func (s *TaskRecordStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM task_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count task records: %w", err)
	}
	return n, nil
}

// Ping implements store.TaskRecordStore.
func (s *TaskRecordStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*domain.TaskRecord, error) {
	var (
		rec                  domain.TaskRecord
		status               string
		docx, pdf, output    sql.NullString
		completedAt          sql.NullTime
		createdAt, updatedAt time.Time
	)

	err := row.Scan(
		&rec.ID,
		&status,
		&rec.Progress,
		&rec.Message,
		&rec.SubjectName,
		&rec.MarkType,
		&rec.StudyMode,
		&rec.HasNotes,
		&rec.QuestionCount,
		&docx,
		&pdf,
		&output,
		&createdAt,
		&completedAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Status = domain.TaskStatus(status)
	rec.DocxFilename = docx.String
	rec.PDFFilename = pdf.String
	rec.OutputFilename = output.String
	rec.CreatedAt = createdAt.UTC()
	rec.UpdatedAt = updatedAt.UTC()
	if completedAt.Valid {
		t := completedAt.Time.UTC()
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
			return nil, fmt.Errorf("failed to scan task record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate task records: %w", err)
	}
	return records, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
