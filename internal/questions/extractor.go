// Package questions splits the text of a question paper into individual
// questions.
package questions

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/phrazzld/paperpilot/internal/domain"
)

// markerPattern matches a line that opens a numbered question:
// "Q1.", "Q 2)", "Question 3:", "4.", "5)" and "(6)". Sub-question letters
// such as "7a." stay part of the number.
var markerPattern = regexp.MustCompile(
	`^(?i:q(?:uestion)?\.?\s*(\d{1,3}[a-z]?)\s*[.):\-]?|\(?(\d{1,3}[a-z]?)[.)])\s+(\S.*)$` +
		`|^(?i:q(?:uestion)?\.?\s*(\d{1,3}[a-z]?))\s*[.):\-]?$`,
)

// Extractor finds numbered questions, falling back to one question per line
// ending in "?" when the paper carries no numbering.
type Extractor struct{}

// NewExtractor creates an Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractQuestions returns the questions in text in paper order. Text before
// the first numbered question is treated as a header and dropped; lines after
// a marker are joined onto that question.
func (e *Extractor) ExtractQuestions(text string) []domain.Question {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	if qs := numbered(lines); len(qs) > 0 {
		return qs
	}
	return interrogative(lines)
}

func numbered(lines []string) []domain.Question {
	var (
		qs      []domain.Question
		current *domain.Question
		last    int
	)

	flush := func() {
		if current == nil {
			return
		}
		current.Text = strings.TrimSpace(current.Text)
		if current.Text != "" {
			qs = append(qs, *current)
		}
		current = nil
	}

	for _, raw := range lines {
		line := strings.Join(strings.Fields(raw), " ")
		if line == "" {
			continue
		}

		if number, rest, ok := parseMarker(line); ok {
			n := leadingInt(number)
			// A lower number inside a question is a numbered list, not a new question.
			if current == nil || n > last || (n == last && number != current.Number) {
				flush()
				current = &domain.Question{Number: number, Text: rest}
				last = n
				continue
			}
		}

		if current != nil {
			current.Text += " " + line
		}
	}
	flush()
	return qs
}

func parseMarker(line string) (number, rest string, ok bool) {
	m := markerPattern.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	switch {
	case m[1] != "":
		return strings.ToLower(m[1]), m[3], true
	case m[2] != "":
		return strings.ToLower(m[2]), m[3], true
	default:
		return strings.ToLower(m[4]), "", true
	}
}

func leadingInt(number string) int {
	end := 0
	for end < len(number) && number[end] >= '0' && number[end] <= '9' {
		end++
	}
	n, _ := strconv.Atoi(number[:end])
	return n
}

func interrogative(lines []string) []domain.Question {
	var qs []domain.Question
	for _, raw := range lines {
		line := strings.Join(strings.Fields(raw), " ")
		if strings.HasSuffix(line, "?") {
			qs = append(qs, domain.Question{Text: line})
		}
	}
	return qs
}
