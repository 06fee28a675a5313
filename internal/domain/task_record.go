package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Defaults applied to blank submission parameters.
const (
	DefaultMarkType  = "5"
	DefaultStudyMode = "understand"
)

// Field widths shared with the durable schema.
const (
	MaxSubjectNameLength = 100
	MaxMarkTypeLength    = 10
	MaxStudyModeLength   = 20
)

// TaskRecord is the state of one submission as it moves through the
// processing pipeline. The same record is held by the volatile cache and the
// durable store.
type TaskRecord struct {
	ID             uuid.UUID  `json:"id"`
	Status         TaskStatus `json:"status"`
	Progress       int        `json:"progress"`
	Message        string     `json:"message"`
	SubjectName    string     `json:"subject_name"`
	MarkType       string     `json:"mark_type"`
	StudyMode      string     `json:"study_mode"`
	HasNotes       bool       `json:"has_notes"`
	QuestionCount  int        `json:"question_count"`
	DocxFilename   string     `json:"docx_filename,omitempty"`
	PDFFilename    string     `json:"pdf_filename,omitempty"`
	OutputFilename string     `json:"output_filename,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewTaskRecord creates a record in the uploaded state with progress 0.
// Blank mark type and study mode fall back to their defaults.
func NewTaskRecord(id uuid.UUID, subject, markType, studyMode string, hasNotes bool) (*TaskRecord, error) {
	if markType == "" {
		markType = DefaultMarkType
	}
	if studyMode == "" {
		studyMode = DefaultStudyMode
	}

	now := time.Now().UTC()
	rec := &TaskRecord{
		ID:          id,
		Status:      StatusUploaded,
		Progress:    0,
		Message:     "Files uploaded successfully",
		SubjectName: subject,
		MarkType:    markType,
		StudyMode:   studyMode,
		HasNotes:    hasNotes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

// Validate checks the record's invariants.
func (r *TaskRecord) Validate() error {
	if r.ID == uuid.Nil {
		return fmt.Errorf("%w: task record ID cannot be empty", ErrInvalidID)
	}
	if !r.Status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, r.Status)
	}
	if r.Progress < 0 || r.Progress > 100 {
		return ErrInvalidProgress
	}
	if len([]rune(r.SubjectName)) > MaxSubjectNameLength {
		return fmt.Errorf("%w: subject name exceeds %d characters", ErrValidation, MaxSubjectNameLength)
	}
	if len([]rune(r.MarkType)) > MaxMarkTypeLength {
		return fmt.Errorf("%w: mark type exceeds %d characters", ErrValidation, MaxMarkTypeLength)
	}
	if len([]rune(r.StudyMode)) > MaxStudyModeLength {
		return fmt.Errorf("%w: study mode exceeds %d characters", ErrValidation, MaxStudyModeLength)
	}
	hasOutputs := r.DocxFilename != "" || r.PDFFilename != ""
	if hasOutputs != (r.Status == StatusCompleted) {
		return fmt.Errorf("%w: output filenames must be set exactly when completed", ErrValidation)
	}
	return nil
}

// Advance moves the record to a non-terminal stage.
func (r *TaskRecord) Advance(status TaskStatus, progress int, message string) error {
	if status.IsTerminal() {
		return fmt.Errorf("%w: use Complete or Fail to reach %s", ErrInvalidTransition, status)
	}
	if err := r.transition(status); err != nil {
		return err
	}
	if progress < 0 || progress > 100 {
		return ErrInvalidProgress
	}
	if progress < r.Progress {
		return fmt.Errorf("%w: progress cannot decrease from %d to %d", ErrInvalidTransition, r.Progress, progress)
	}

	r.Status = status
	r.Progress = progress
	r.Message = message
	r.touch()
	return nil
}

// SetQuestionCount records how many questions were extracted.
func (r *TaskRecord) SetQuestionCount(n int) error {
	if r.Status.IsTerminal() {
		return fmt.Errorf("%w: record is already %s", ErrInvalidTransition, r.Status)
	}
	if n < 0 {
		return fmt.Errorf("%w: question count cannot be negative", ErrValidation)
	}
	r.QuestionCount = n
	r.touch()
	return nil
}

// Complete marks the record successful and records both output files. The
// default download alias points at the DOCX output.
func (r *TaskRecord) Complete(docxFilename, pdfFilename string, at time.Time) error {
	if docxFilename == "" || pdfFilename == "" {
		return fmt.Errorf("%w: both output filenames are required", ErrValidation)
	}
	if err := r.transition(StatusCompleted); err != nil {
		return err
	}

	completedAt := at.UTC()
	r.Status = StatusCompleted
	r.Progress = 100
	r.Message = "Processing completed successfully"
	r.DocxFilename = docxFilename
	r.PDFFilename = pdfFilename
	r.OutputFilename = docxFilename
	r.CompletedAt = &completedAt
	r.touch()
	return nil
}

// Fail marks the record as errored with progress reset to 0. Any output
// filenames are cleared.
func (r *TaskRecord) Fail(message string) error {
	if err := r.transition(StatusError); err != nil {
		return err
	}

	r.Status = StatusError
	r.Progress = 0
	r.Message = message
	r.DocxFilename = ""
	r.PDFFilename = ""
	r.OutputFilename = ""
	r.CompletedAt = nil
	r.touch()
	return nil
}

// Clone returns a deep copy of the record.
func (r *TaskRecord) Clone() *TaskRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

func (r *TaskRecord) transition(to TaskStatus) error {
	if !CanTransition(r.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, to)
	}
	return nil
}

func (r *TaskRecord) touch() {
	r.UpdatedAt = time.Now().UTC()
}
