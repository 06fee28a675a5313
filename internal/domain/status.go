package domain

// TaskStatus represents the processing stage of a submission.
type TaskStatus string

// Possible task status values, in pipeline order.
const (
	StatusUploaded            TaskStatus = "uploaded"
	StatusProcessingOCR       TaskStatus = "processing_ocr"
	StatusExtractingQuestions TaskStatus = "extracting_questions"
	StatusProcessingNotes     TaskStatus = "processing_notes"
	StatusProcessingQuestions TaskStatus = "processing_questions"
	StatusCreatingDocuments   TaskStatus = "creating_documents"
	StatusCompleted           TaskStatus = "completed"
	StatusError               TaskStatus = "error"
)

// transitions lists the statuses reachable from each non-terminal status.
// processing_notes and processing_questions may repeat to report sub-step
// progress. Every non-terminal status may also move to error.
var transitions = map[TaskStatus][]TaskStatus{
	StatusUploaded:            {StatusProcessingOCR},
	StatusProcessingOCR:       {StatusExtractingQuestions},
	StatusExtractingQuestions: {StatusProcessingNotes, StatusProcessingQuestions},
	StatusProcessingNotes:     {StatusProcessingNotes, StatusProcessingQuestions},
	StatusProcessingQuestions: {StatusProcessingQuestions, StatusCreatingDocuments},
	StatusCreatingDocuments:   {StatusCompleted},
}

// AllStatuses returns every known status in pipeline order.
func AllStatuses() []TaskStatus {
	return []TaskStatus{
		StatusUploaded,
		StatusProcessingOCR,
		StatusExtractingQuestions,
		StatusProcessingNotes,
		StatusProcessingQuestions,
		StatusCreatingDocuments,
		StatusCompleted,
		StatusError,
	}
}

// ActiveStatuses returns the non-terminal statuses.
func ActiveStatuses() []TaskStatus {
	return []TaskStatus{
		StatusUploaded,
		StatusProcessingOCR,
		StatusExtractingQuestions,
		StatusProcessingNotes,
		StatusProcessingQuestions,
		StatusCreatingDocuments,
	}
}

// IsValid reports whether s is a known status.
func (s TaskStatus) IsValid() bool {
	for _, known := range AllStatuses() {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s ends the pipeline.
func (s TaskStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

// CanTransition reports whether a record in status from may move to status to.
func CanTransition(from, to TaskStatus) bool {
	if from.IsTerminal() || !from.IsValid() {
		return false
	}
	if to == StatusError {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
