package generation

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/phrazzld/paperpilot/internal/domain"
)

// ResponseSchema is the JSON document a model must return for a batch.
type ResponseSchema struct {
	Answers []AnswerSchema `json:"answers"`
}

// AnswerSchema is one answer in a ResponseSchema.
type AnswerSchema struct {
	// Index is the 1-based position of the question in the batch.
	Index int `json:"index"`

	// Answer is the answer text.
	Answer string `json:"answer"`
}

// ParseAnswers decodes a model response into exactly want answers, ordered
// by index. A response wrapped in a markdown code fence is accepted.
func ParseAnswers(text string, want int) ([]domain.Answer, error) {
	text = stripCodeFence(text)

	var resp ResponseSchema
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v", ErrInvalidResponse, err)
	}
	if len(resp.Answers) != want {
		return nil, fmt.Errorf("%w: got %d answers for %d questions", ErrInvalidResponse, len(resp.Answers), want)
	}

	indexed := true
	seen := make(map[int]bool, want)
	for _, a := range resp.Answers {
		if a.Index < 1 || a.Index > want || seen[a.Index] {
			indexed = false
			break
		}
		seen[a.Index] = true
	}
	if indexed {
		sort.SliceStable(resp.Answers, func(i, j int) bool { return resp.Answers[i].Index < resp.Answers[j].Index })
	}

	answers := make([]domain.Answer, 0, want)
	for i, a := range resp.Answers {
		text := strings.TrimSpace(a.Answer)
		if text == "" {
			return nil, fmt.Errorf("%w: answer %d is empty", ErrInvalidResponse, i+1)
		}
		answers = append(answers, domain.Answer{Text: text})
	}
	return answers, nil
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "```"))
}
