package pipeline

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// DefaultSubjectFilename replaces a subject that sanitizes to nothing.
const DefaultSubjectFilename = "subject"

// SanitizeSubject reduces a subject name to a filename-safe stem: letters,
// digits and spaces are kept, the result is trimmed and spaces become
// underscores.
func SanitizeSubject(subject string) string {
	var b strings.Builder
	for _, r := range subject {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			b.WriteRune(r)
		}
	}

	s := strings.ReplaceAll(strings.TrimSpace(b.String()), " ", "_")
	if s == "" {
		return DefaultSubjectFilename
	}
	return s
}

// OutputBaseName is the extensionless name shared by a task's DOCX and PDF
// outputs.
func OutputBaseName(subject string, at time.Time, id uuid.UUID) string {
	return SanitizeSubject(subject) + "_" + at.Format("20060102-150405") + "_" + id.String()[:8]
}
