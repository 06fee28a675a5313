package api

import "github.com/phrazzld/paperpilot/internal/domain"

// Multipart form fields accepted by POST /api/upload.
const (
	FieldQuestionFile = "question_file"
	FieldNotesFiles   = "notes_files"
	FieldSubjectName  = "subject_name"
	FieldMarkType     = "mark_type"
	FieldStudyMode    = "study_mode"
)

// HistoryResponse is the body of GET /api/history.
type HistoryResponse struct {
	Tasks []*domain.TaskRecord `json:"tasks"`
}

// HealthResponse is the body of the health endpoints. TaskRecords is only
// reported by the database check.
type HealthResponse struct {
	Status      string `json:"status"`
	TaskRecords *int   `json:"task_records,omitempty"`
}
