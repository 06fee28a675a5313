package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/paperpilot/internal/domain"
	"github.com/phrazzld/paperpilot/internal/render"
)

// TextExtractor returns the text of every non-empty page of a PDF, joined
// with newlines.
type TextExtractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// QuestionExtractor splits paper text into ordered questions.
type QuestionExtractor interface {
	ExtractQuestions(text string) []domain.Question
}

// Answerer produces one answer per question in batch, in order.
type Answerer interface {
	AnswerBatch(ctx context.Context, batch []domain.Question, params domain.StudyParams) ([]domain.Answer, error)
}

// Renderer writes a study document to path.
type Renderer interface {
	Render(ctx context.Context, doc render.Document, path string) error
}

// Tracker records stage progress for a task. taskstore.Store satisfies it.
type Tracker interface {
	Update(ctx context.Context, id uuid.UUID, fn func(*domain.TaskRecord) error) (*domain.TaskRecord, error)
	Advance(ctx context.Context, id uuid.UUID, status domain.TaskStatus, progress int, message string) (*domain.TaskRecord, error)
	Complete(ctx context.Context, id uuid.UUID, docxFilename, pdfFilename string, at time.Time) (*domain.TaskRecord, error)
	Fail(ctx context.Context, id uuid.UUID, message string) (*domain.TaskRecord, error)
}
