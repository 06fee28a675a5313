// Package render writes answered question papers to disk as study documents:
// an editable DOCX and a fixed-layout PDF.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/phrazzld/paperpilot/internal/domain"
)

// Document is everything a renderer needs to produce one study document.
// Answers[i] answers Questions[i].
type Document struct {
	Subject     string
	MarkType    string
	StudyMode   string
	HasNotes    bool
	Questions   []domain.Question
	Answers     []domain.Answer
	GeneratedAt time.Time
}

// Validate checks that questions and answers line up.
func (d Document) Validate() error {
	if len(d.Questions) == 0 {
		return fmt.Errorf("document has no questions")
	}
	if len(d.Questions) != len(d.Answers) {
		return fmt.Errorf("document has %d questions but %d answers", len(d.Questions), len(d.Answers))
	}
	return nil
}

// Title returns the document heading.
func (d Document) Title() string {
	if s := strings.TrimSpace(d.Subject); s != "" {
		return "Study Answers: " + s
	}
	return "Study Answers"
}

// Metadata returns the labelled summary lines printed under the title.
func (d Document) Metadata() []string {
	notes := "No"
	if d.HasNotes {
		notes = "Yes"
	}
	return []string{
		"Mark weight: " + d.MarkType + " marks",
		"Study mode: " + d.StudyMode,
		"Reference notes used: " + notes,
		"Generated: " + d.GeneratedAt.Format("2 January 2006 15:04"),
	}
}

// QuestionHeading returns the heading for the i-th question.
func (d Document) QuestionHeading(i int) string {
	if n := strings.TrimSpace(d.Questions[i].Number); n != "" {
		return "Question " + n
	}
	return fmt.Sprintf("Question %d", i+1)
}

// block is one paragraph of answer text.
type block struct {
	text   string
	bullet bool
}

// answerBlocks splits model output into paragraphs, turning markdown list
// items into bullets and dropping emphasis and heading markers.
func answerBlocks(text string) []block {
	var blocks []block
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		b := block{}
		switch {
		case strings.HasPrefix(line, "- "), strings.HasPrefix(line, "* "), strings.HasPrefix(line, "• "):
			b.bullet = true
			line = strings.TrimSpace(line[strings.Index(line, " ")+1:])
		case strings.HasPrefix(line, "#"):
			line = strings.TrimSpace(strings.TrimLeft(line, "#"))
		}

		line = strings.ReplaceAll(line, "**", "")
		line = strings.ReplaceAll(line, "__", "")
		b.text = line
		blocks = append(blocks, b)
	}
	return blocks
}
