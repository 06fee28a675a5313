package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/phrazzld/paperpilot/internal/domain"
)

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// writeJSONLines writes one compact JSON document per record.
func writeJSONLines(w io.Writer, records []*domain.TaskRecord) error {
	enc := json.NewEncoder(w)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}

// writeJSON encodes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderHistoryTable(records []*domain.TaskRecord, now time.Time) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"ID", "Subject", "Mark", "Mode", "Questions", "Created", "Outputs"})
	for _, rec := range records {
		tw.AppendRow(table.Row{
			shortID(rec),
			subjectLabel(rec.SubjectName),
			rec.MarkType,
			rec.StudyMode,
			rec.QuestionCount,
			humanize.RelTime(rec.CreatedAt, now, "ago", "from now"),
			outputsLabel(rec),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

func renderRecordTable(rec *domain.TaskRecord, now time.Time) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Field", "Value"})
	tw.AppendRows([]table.Row{
		{"ID", rec.ID.String()},
		{"Status", string(rec.Status)},
		{"Progress", fmt.Sprintf("%d%%", rec.Progress)},
		{"Message", rec.Message},
		{"Subject", subjectLabel(rec.SubjectName)},
		{"Mark", rec.MarkType},
		{"Mode", rec.StudyMode},
		{"Notes", yesNo(rec.HasNotes)},
		{"Questions", rec.QuestionCount},
		{"Created", rec.CreatedAt.Format(time.RFC3339) + " (" + humanize.RelTime(rec.CreatedAt, now, "ago", "from now") + ")"},
	})
	if rec.CompletedAt != nil {
		tw.AppendRow(table.Row{"Completed", rec.CompletedAt.Format(time.RFC3339)})
	}
	if out := outputsLabel(rec); out != "" {
		tw.AppendRow(table.Row{"Outputs", out})
	}
	return tw.Render()
}

func shortID(rec *domain.TaskRecord) string {
	return rec.ID.String()[:8]
}

func subjectLabel(subject string) string {
	if strings.TrimSpace(subject) == "" {
		return "-"
	}
	return subject
}

func outputsLabel(rec *domain.TaskRecord) string {
	var names []string
	for _, name := range []string{rec.DocxFilename, rec.PDFFilename} {
		if name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
