package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/paperpilot/internal/domain"
	"github.com/phrazzld/paperpilot/internal/platform/logger"
	"github.com/phrazzld/paperpilot/internal/render"
)

const (
	// BatchSize is the number of questions sent to the Answerer per call.
	BatchSize = 3

	// Progress milestones.
	ProgressOCR       = 10
	ProgressQuestions = 20
	ProgressNotes     = 30
	ProgressAnswering = 40
	ProgressAnswered  = 80
	ProgressRendering = 90

	// NoQuestionsMessage is the record message when a paper yields no questions.
	NoQuestionsMessage = "No questions found in the document"
)

// ErrNoQuestions is returned when question extraction finds nothing.
var ErrNoQuestions = errors.New("no questions found in the document")

// ErrCompletionNotPersisted is returned when the completed state reached the
// cache but not the durable store.
var ErrCompletionNotPersisted = errors.New("completion not persisted to durable store")

// Errors returned by New for missing collaborators.
var (
	ErrNilTracker   = errors.New("tracker cannot be nil")
	ErrNilExtractor = errors.New("text extractor cannot be nil")
	ErrNilQuestions = errors.New("question extractor cannot be nil")
	ErrNilAnswerer  = errors.New("answerer cannot be nil")
	ErrNilRenderer  = errors.New("renderers cannot be nil")
	ErrNoOutputDir  = errors.New("output directory cannot be empty")
)

// Job is one submission to process. It lives only in memory.
type Job struct {
	TaskID       uuid.UUID
	QuestionPath string
	NotesPaths   []string
	Subject      string
	MarkType     string
	StudyMode    string
}

// Dependencies are the collaborators a Pipeline drives.
type Dependencies struct {
	Tracker   Tracker
	Text      TextExtractor
	Questions QuestionExtractor
	Answerer  Answerer
	DOCX      Renderer
	PDF       Renderer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock replaces the time source used for output names and completion
// timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// Pipeline processes jobs. A single Pipeline may process many jobs
// concurrently; each job touches only its own record and output files.
type Pipeline struct {
	deps      Dependencies
	outputDir string
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a Pipeline writing documents under outputDir.
func New(deps Dependencies, outputDir string, log *slog.Logger, opts ...Option) (*Pipeline, error) {
	switch {
	case deps.Tracker == nil:
		return nil, ErrNilTracker
	case deps.Text == nil:
		return nil, ErrNilExtractor
	case deps.Questions == nil:
		return nil, ErrNilQuestions
	case deps.Answerer == nil:
		return nil, ErrNilAnswerer
	case deps.DOCX == nil || deps.PDF == nil:
		return nil, ErrNilRenderer
	case strings.TrimSpace(outputDir) == "":
		return nil, ErrNoOutputDir
	}
	if log == nil {
		log = slog.Default()
	}

	p := &Pipeline{
		deps:      deps,
		outputDir: outputDir,
		logger:    log.With("component", "pipeline"),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Process runs job to completion. The record always ends completed or
// error; the returned error is the one that ended the run.
func (p *Pipeline) Process(ctx context.Context, job Job) (err error) {
	log := p.logger.With("task_id", job.TaskID)
	ctx = logger.WithLogger(ctx, log)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline panicked", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("unexpected failure: %v", r)
		}
		if errors.Is(err, ErrCompletionNotPersisted) {
			log.Error("task completed but durable store is behind", "error", err)
			return
		}
		if err != nil {
			p.fail(ctx, log, job.TaskID, err)
			return
		}
		log.Info("pipeline completed", "duration", time.Since(start))
	}()

	return p.run(ctx, log, job)
}

func (p *Pipeline) run(ctx context.Context, log *slog.Logger, job Job) error {
	id := job.TaskID

	if err := p.advance(ctx, id, domain.StatusProcessingOCR, ProgressOCR, "Extracting questions from PDF"); err != nil {
		return err
	}
	text, err := p.deps.Text.ExtractText(ctx, job.QuestionPath)
	if err != nil {
		return fmt.Errorf("extract question paper text: %w", err)
	}

	if err := p.advance(ctx, id, domain.StatusExtractingQuestions, ProgressQuestions, "Identifying questions from text"); err != nil {
		return err
	}
	questions := p.deps.Questions.ExtractQuestions(text)
	if len(questions) == 0 {
		return ErrNoQuestions
	}
	log.Info("questions extracted", "stage", domain.StatusExtractingQuestions, "question_count", len(questions))

	notes, err := p.collectNotes(ctx, id, job.NotesPaths)
	if err != nil {
		return err
	}

	params := domain.StudyParams{
		Subject:   job.Subject,
		MarkType:  job.MarkType,
		StudyMode: job.StudyMode,
		Notes:     notes,
	}
	answers, err := p.answer(ctx, log, id, questions, params)
	if err != nil {
		return err
	}

	if err := p.advance(ctx, id, domain.StatusCreatingDocuments, ProgressRendering, "Creating output documents"); err != nil {
		return err
	}
	at := p.now()
	doc := render.Document{
		Subject:     job.Subject,
		MarkType:    job.MarkType,
		StudyMode:   job.StudyMode,
		HasNotes:    params.HasNotes(),
		Questions:   questions,
		Answers:     answers,
		GeneratedAt: at,
	}
	docxName, pdfName, err := p.renderOutputs(ctx, doc, OutputBaseName(job.Subject, at, id))
	if err != nil {
		return err
	}

	rec, err := p.deps.Tracker.Complete(ctx, id, docxName, pdfName, at)
	if err != nil {
		if rec != nil && rec.Status == domain.StatusCompleted {
			return fmt.Errorf("%w: %w", ErrCompletionNotPersisted, err)
		}
		return fmt.Errorf("record completion: %w", err)
	}
	return nil
}

// collectNotes extracts each notes document and wraps it with a numbered
// header. It returns "" when there are no notes.
func (p *Pipeline) collectNotes(ctx context.Context, id uuid.UUID, paths []string) (string, error) {
	if len(paths) == 0 {
		return "", nil
	}

	total := len(paths)
	msg := fmt.Sprintf("Extracting and processing %d reference notes", total)
	if err := p.advance(ctx, id, domain.StatusProcessingNotes, ProgressNotes, msg); err != nil {
		return "", err
	}

	docs := make([]string, 0, total)
	for i, path := range paths {
		msg := fmt.Sprintf("Processing reference note %d of %d", i+1, total)
		if err := p.advance(ctx, id, domain.StatusProcessingNotes, ProgressNotes, msg); err != nil {
			return "", err
		}
		text, err := p.deps.Text.ExtractText(ctx, path)
		if err != nil {
			return "", fmt.Errorf("extract reference note %d: %w", i+1, err)
		}
		docs = append(docs, fmt.Sprintf("--- NOTES DOCUMENT %d ---\n%s\n", i+1, text))
	}
	return strings.Join(docs, "\n"), nil
}

// answer sends questions to the Answerer in sequential batches of BatchSize.
func (p *Pipeline) answer(
	ctx context.Context,
	log *slog.Logger,
	id uuid.UUID,
	questions []domain.Question,
	params domain.StudyParams,
) ([]domain.Answer, error) {
	total := len(questions)
	msg := fmt.Sprintf("Processing %d questions through LLM", total)
	_, err := p.deps.Tracker.Update(ctx, id, func(rec *domain.TaskRecord) error {
		if err := rec.Advance(domain.StatusProcessingQuestions, ProgressAnswering, msg); err != nil {
			return err
		}
		return rec.SetQuestionCount(total)
	})
	if err != nil {
		return nil, fmt.Errorf("record stage %s: %w", domain.StatusProcessingQuestions, err)
	}

	answers := make([]domain.Answer, 0, total)
	for start := 0; start < total; start += BatchSize {
		end := min(start+BatchSize, total)
		batch := questions[start:end]

		got, err := p.deps.Answerer.AnswerBatch(ctx, batch, params)
		if err != nil {
			return nil, fmt.Errorf("answer questions %d-%d: %w", start+1, end, err)
		}
		if len(got) != len(batch) {
			return nil, fmt.Errorf("answerer returned %d answers for %d questions", len(got), len(batch))
		}
		answers = append(answers, got...)

		log.Debug("batch answered", "stage", domain.StatusProcessingQuestions, "processed", end, "total", total)
		msg := fmt.Sprintf("Processed %d of %d questions", end, total)
		if err := p.advance(ctx, id, domain.StatusProcessingQuestions, ProgressForBatch(end, total), msg); err != nil {
			return nil, err
		}
	}
	return answers, nil
}

// renderOutputs writes both documents and returns their filenames. Neither
// file is left behind when either render fails.
func (p *Pipeline) renderOutputs(ctx context.Context, doc render.Document, base string) (string, string, error) {
	docxName := base + ".docx"
	pdfName := base + ".pdf"
	docxPath := filepath.Join(p.outputDir, docxName)
	pdfPath := filepath.Join(p.outputDir, pdfName)

	if err := p.deps.DOCX.Render(ctx, doc, docxPath); err != nil {
		_ = os.Remove(docxPath)
		return "", "", fmt.Errorf("create DOCX document: %w", err)
	}
	if err := p.deps.PDF.Render(ctx, doc, pdfPath); err != nil {
		_ = os.Remove(docxPath)
		_ = os.Remove(pdfPath)
		return "", "", fmt.Errorf("create PDF document: %w", err)
	}
	return docxName, pdfName, nil
}

func (p *Pipeline) advance(ctx context.Context, id uuid.UUID, status domain.TaskStatus, progress int, message string) error {
	if _, err := p.deps.Tracker.Advance(ctx, id, status, progress, message); err != nil {
		return fmt.Errorf("record stage %s: %w", status, err)
	}
	return nil
}

// fail moves the record to the error state. A record that already reached
// a terminal state is left as it is.
func (p *Pipeline) fail(ctx context.Context, log *slog.Logger, id uuid.UUID, cause error) {
	message := "Error: " + cause.Error()
	if errors.Is(cause, ErrNoQuestions) {
		message = NoQuestionsMessage
		log.Warn("no questions found", "stage", domain.StatusExtractingQuestions)
	} else {
		log.Error("pipeline failed", "error", cause)
	}

	if _, err := p.deps.Tracker.Fail(ctx, id, message); err != nil {
		log.Error("failed to record pipeline failure", "error", err, "cause", cause)
	}
}

// ProgressForBatch is the progress recorded after processed of total
// questions have been answered. It runs from ProgressAnswering up to
// ProgressAnswered.
func ProgressForBatch(processed, total int) int {
	if total <= 0 {
		return ProgressAnswering
	}
	return min(ProgressAnswered, ProgressAnswering+processed*(ProgressAnswered-ProgressAnswering)/total)
}
