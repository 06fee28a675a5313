package render

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/phrazzld/paperpilot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() Document {
	return Document{
		Subject:   "Organic Chemistry",
		MarkType:  "10",
		StudyMode: "exam",
		HasNotes:  true,
		Questions: []domain.Question{
			{Number: "1", Text: "Define an alkene & give an example."},
			{Text: "Explain Markovnikov's rule."},
		},
		Answers: []domain.Answer{
			{Text: "An alkene is a hydrocarbon with a **C=C** double bond.\n- Ethene\n- Propene"},
			{Text: "## Rule\nThe hydrogen adds to the carbon with more hydrogens."},
		},
		GeneratedAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

func TestDocumentValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, sampleDocument().Validate())

	empty := sampleDocument()
	empty.Questions = nil
	empty.Answers = nil
	assert.Error(t, empty.Validate())

	mismatched := sampleDocument()
	mismatched.Answers = mismatched.Answers[:1]
	assert.Error(t, mismatched.Validate())
}

func TestDocumentHeadings(t *testing.T) {
	t.Parallel()

	doc := sampleDocument()
	assert.Equal(t, "Study Answers: Organic Chemistry", doc.Title())
	assert.Equal(t, "Question 1", doc.QuestionHeading(0))
	assert.Equal(t, "Question 2", doc.QuestionHeading(1))

	doc.Subject = "  "
	assert.Equal(t, "Study Answers", doc.Title())

	meta := doc.Metadata()
	assert.Contains(t, meta, "Mark weight: 10 marks")
	assert.Contains(t, meta, "Reference notes used: Yes")
	assert.Contains(t, meta, "Generated: 14 March 2026 09:30")
}

func TestAnswerBlocks(t *testing.T) {
	t.Parallel()

	blocks := answerBlocks("# Heading\r\n\r\nPlain **bold** text\n* first\n- second\n• third\n")
	require.Len(t, blocks, 5)
	assert.Equal(t, block{text: "Heading"}, blocks[0])
	assert.Equal(t, block{text: "Plain bold text"}, blocks[1])
	assert.Equal(t, block{text: "first", bullet: true}, blocks[2])
	assert.Equal(t, block{text: "second", bullet: true}, blocks[3])
	assert.Equal(t, block{text: "third", bullet: true}, blocks[4])
}

func TestDOCXRenderer(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out", "answers.docx")
	require.NoError(t, NewDOCXRenderer().Render(context.Background(), sampleDocument(), path))

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer func() { _ = zr.Close() }()

	files := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		_ = rc.Close()
		files[f.Name] = string(data)
	}

	require.Contains(t, files, "[Content_Types].xml")
	require.Contains(t, files, "_rels/.rels")
	require.Contains(t, files, "word/document.xml")

	body := files["word/document.xml"]
	assert.Contains(t, body, "Study Answers: Organic Chemistry")
	assert.Contains(t, body, "Question 1")
	assert.Contains(t, body, "Question 2")
	assert.Contains(t, body, "Define an alkene &amp; give an example.")
	assert.Contains(t, body, "C=C double bond")
	assert.Contains(t, body, "• Ethene")
	assert.NotContains(t, body, "**")
}

func TestPDFRenderer(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "answers.pdf")
	require.NoError(t, NewPDFRenderer().Render(context.Background(), sampleDocument(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF"))
}

func TestRenderersRejectInvalidDocument(t *testing.T) {
	t.Parallel()

	doc := sampleDocument()
	doc.Answers = nil
	dir := t.TempDir()

	assert.Error(t, NewDOCXRenderer().Render(context.Background(), doc, filepath.Join(dir, "a.docx")))
	assert.Error(t, NewPDFRenderer().Render(context.Background(), doc, filepath.Join(dir, "a.pdf")))
	assert.NoFileExists(t, filepath.Join(dir, "a.docx"))
	assert.NoFileExists(t, filepath.Join(dir, "a.pdf"))
}

func TestRenderHonoursCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewDOCXRenderer().Render(ctx, sampleDocument(), filepath.Join(t.TempDir(), "a.docx"))
	assert.ErrorIs(t, err, context.Canceled)
}
