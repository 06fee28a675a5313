package generation

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"text/template"

	"github.com/phrazzld/paperpilot/internal/domain"
)

//go:embed prompts/answer_batch.tmpl
var promptFS embed.FS

const defaultTemplate = "prompts/answer_batch.tmpl"

// PromptData is the data the answer prompt template is executed with.
type PromptData struct {
	Subject   string
	MarkType  string
	StudyMode string
	Notes     string
	Questions []PromptQuestion
}

// PromptQuestion is one question as presented to the model. Index is
// 1-based and is echoed back in the response.
type PromptQuestion struct {
	Index  int
	Number string
	Text   string
}

// LoadTemplate parses the prompt template at path, or the built-in template
// when path is empty.
func LoadTemplate(path string) (*template.Template, error) {
	if path == "" {
		tmpl, err := template.ParseFS(promptFS, defaultTemplate)
		if err != nil {
			return nil, fmt.Errorf("%w: parse built-in prompt template: %v", ErrInvalidConfig, err)
		}
		return tmpl, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read prompt template from %s: %v", ErrInvalidConfig, path, err)
	}
	tmpl, err := template.New("answer_batch").Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("%w: parse prompt template: %v", ErrInvalidConfig, err)
	}
	return tmpl, nil
}

// BuildPrompt renders the prompt for one batch of questions.
func BuildPrompt(tmpl *template.Template, batch []domain.Question, params domain.StudyParams) (string, error) {
	if len(batch) == 0 {
		return "", ErrEmptyBatch
	}

	data := PromptData{
		Subject:   params.Subject,
		MarkType:  params.MarkType,
		StudyMode: params.StudyMode,
		Notes:     params.Notes,
		Questions: make([]PromptQuestion, len(batch)),
	}
	for i, q := range batch {
		data.Questions[i] = PromptQuestion{Index: i + 1, Number: q.Number, Text: q.Text}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute prompt template: %w", err)
	}
	return buf.String(), nil
}
