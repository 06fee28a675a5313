package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-pdf/fpdf"
)

const (
	pdfFont       = "Helvetica"
	pdfLineHeight = 6.0
)

// PDFRenderer writes A4 study documents with the PDF core fonts.
type PDFRenderer struct{}

// NewPDFRenderer creates a PDFRenderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// Render writes doc to path as a PDF.
func (r *PDFRenderer) Render(ctx context.Context, doc Document, path string) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetTitle(doc.Title(), true)
	pdf.SetCreator("paperpilot", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()

	pdf.SetFont(pdfFont, "B", 18)
	pdf.MultiCell(0, 9, tr(doc.Title()), "", "L", false)
	pdf.Ln(2)

	pdf.SetFont(pdfFont, "I", 10)
	for _, line := range doc.Metadata() {
		pdf.MultiCell(0, 5, tr(line), "", "L", false)
	}
	pdf.Ln(4)

	for i, q := range doc.Questions {
		pdf.SetFont(pdfFont, "B", 14)
		pdf.MultiCell(0, 8, tr(doc.QuestionHeading(i)), "", "L", false)

		pdf.SetFont(pdfFont, "", 11)
		pdf.MultiCell(0, pdfLineHeight, tr(q.Text), "", "L", false)
		pdf.Ln(2)

		pdf.SetFont(pdfFont, "B", 12)
		pdf.MultiCell(0, 7, "Answer", "", "L", false)

		pdf.SetFont(pdfFont, "", 11)
		for _, blk := range answerBlocks(doc.Answers[i].Text) {
			if blk.bullet {
				pdf.SetX(pdf.GetX() + 5)
				pdf.MultiCell(0, pdfLineHeight, tr("- "+blk.text), "", "L", false)
				continue
			}
			pdf.MultiCell(0, pdfLineHeight, tr(blk.text), "", "L", false)
		}
		pdf.Ln(5)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("build pdf: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
