package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"strings"
	"text/template"
	"time"

	"github.com/phrazzld/paperpilot/internal/config"
	"github.com/phrazzld/paperpilot/internal/domain"
	"github.com/phrazzld/paperpilot/internal/generation"
	"github.com/phrazzld/paperpilot/internal/platform/logger"
	"google.golang.org/genai"
)

const (
	defaultMaxRetries = 3
	defaultRetryDelay = 2 * time.Second
)

// contentGenerator is the slice of the genai client the Answerer uses.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Answerer implements pipeline.Answerer on top of the Gemini API.
type Answerer struct {
	logger     *slog.Logger
	models     contentGenerator
	model      string
	prompt     *template.Template
	maxRetries int
	retryDelay time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewAnswerer creates an Answerer from LLM configuration.
func NewAnswerer(ctx context.Context, log *slog.Logger, cfg config.LLMConfig) (*Answerer, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", ErrInvalidConfig, err)
	}

	return newAnswerer(log, client.Models, cfg)
}

func newAnswerer(log *slog.Logger, models contentGenerator, cfg config.LLMConfig) (*Answerer, error) {
	if log == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", ErrInvalidConfig)
	}

	prompt, err := generation.LoadTemplate(cfg.PromptTemplatePath)
	if err != nil {
		return nil, err
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = defaultMaxRetries
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}

	return &Answerer{
		logger:     log.With("component", "gemini_answerer", "model", cfg.ModelName),
		models:     models,
		model:      cfg.ModelName,
		prompt:     prompt,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		sleep:      sleepContext,
	}, nil
}

// AnswerBatch returns one answer per question in batch, in order.
func (a *Answerer) AnswerBatch(ctx context.Context, batch []domain.Question, params domain.StudyParams) ([]domain.Answer, error) {
	prompt, err := generation.BuildPrompt(a.prompt, batch, params)
	if err != nil {
		return nil, err
	}

	log := a.log(ctx)
	log.DebugContext(ctx, "requesting answers",
		"batch_size", len(batch),
		"prompt_length", len(prompt),
		"has_notes", params.HasNotes())

	text, err := a.generateWithRetry(ctx, log, prompt)
	if err != nil {
		return nil, err
	}
	return generation.ParseAnswers(text, len(batch))
}

// generateWithRetry calls the model up to maxRetries+1 times. Only transient
// failures are retried.
func (a *Answerer) generateWithRetry(ctx context.Context, log *slog.Logger, prompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}

	var lastErr error
	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		resp, err := a.models.GenerateContent(ctx, a.model, genai.Text(prompt), cfg)
		if err == nil {
			text, rerr := responseText(resp)
			if rerr == nil {
				log.DebugContext(ctx, "Gemini API call successful", "attempt", attempt+1)
				return text, nil
			}
			return "", rerr
		}

		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %v", ErrTransient, ctx.Err())
		}
		if !isTransient(err) {
			log.ErrorContext(ctx, "Gemini API call failed", "attempt", attempt+1, "error", err)
			return "", fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
		}

		lastErr = err
		if attempt == a.maxRetries {
			break
		}

		delay := a.backoff(attempt)
		log.WarnContext(ctx, "transient Gemini API failure, retrying",
			"attempt", attempt+1,
			"max_attempts", a.maxRetries+1,
			"delay", delay,
			"error", err)
		if err := a.sleep(ctx, delay); err != nil {
			return "", fmt.Errorf("%w: %v", ErrTransient, err)
		}
	}

	log.ErrorContext(ctx, "maximum retry attempts reached", "max_retries", a.maxRetries, "error", lastErr)
	return "", fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v", ErrTransient, a.maxRetries, lastErr)
}

// backoff is retryDelay * 2^attempt scaled by a jitter factor in [0.5, 1).
func (a *Answerer) backoff(attempt int) time.Duration {
	base := float64(a.retryDelay) * math.Pow(2, float64(attempt))
	return time.Duration(base * (0.5 + rand.Float64()*0.5))
}

func (a *Answerer) log(ctx context.Context) *slog.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l.With("component", "gemini_answerer", "model", a.model)
	}
	return a.logger
}

// responseText extracts the text of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: nil response", ErrInvalidResponse)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt blocked (%s)", ErrContentBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no content generated", ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: content blocked by safety filters", ErrContentBlocked)
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content in response", ErrInvalidResponse)
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", fmt.Errorf("%w: empty text in response", ErrInvalidResponse)
	}
	return b.String(), nil
}

// isTransient reports whether err is worth retrying: rate limiting, server
// errors and failures that never produced an HTTP status.
func isTransient(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return transientStatus(apiErr.Code)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return transientStatus(apiErrPtr.Code)
	}
	return true
}

func transientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= http.StatusInternalServerError
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
