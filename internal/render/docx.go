package render

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
)

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

// DOCXRenderer writes a minimal WordprocessingML package.
type DOCXRenderer struct{}

// NewDOCXRenderer creates a DOCXRenderer.
func NewDOCXRenderer() *DOCXRenderer {
	return &DOCXRenderer{}
}

// Render writes doc to path as a .docx file.
func (r *DOCXRenderer) Render(ctx context.Context, doc Document, path string) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body := documentXML(doc)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	parts := []struct {
		name string
		data []byte
	}{
		{"[Content_Types].xml", []byte(contentTypesXML)},
		{"_rels/.rels", []byte(relsXML)},
		{"word/document.xml", body},
	}
	for _, part := range parts {
		w, err := zw.Create(part.name)
		if err != nil {
			return fmt.Errorf("create docx part %s: %w", part.name, err)
		}
		if _, err := w.Write(part.data); err != nil {
			return fmt.Errorf("write docx part %s: %w", part.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish docx archive: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write docx: %w", err)
	}
	return nil
}

func documentXML(doc Document) []byte {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)

	paragraph(&b, doc.Title(), runStyle{bold: true, size: 36}, false)
	for _, line := range doc.Metadata() {
		paragraph(&b, line, runStyle{italic: true, size: 20}, false)
	}

	for i, q := range doc.Questions {
		paragraph(&b, doc.QuestionHeading(i), runStyle{bold: true, size: 28}, false)
		paragraph(&b, q.Text, runStyle{size: 22}, false)
		paragraph(&b, "Answer", runStyle{bold: true, size: 24}, false)
		for _, blk := range answerBlocks(doc.Answers[i].Text) {
			paragraph(&b, blk.text, runStyle{size: 22}, blk.bullet)
		}
	}

	b.WriteString(`<w:sectPr><w:pgSz w:w="11906" w:h="16838"/>`)
	b.WriteString(`<w:pgMar w:top="1134" w:right="1134" w:bottom="1134" w:left="1134" w:header="708" w:footer="708" w:gutter="0"/>`)
	b.WriteString(`</w:sectPr></w:body></w:document>`)
	return b.Bytes()
}

// runStyle sizes are in half-points.
type runStyle struct {
	bold   bool
	italic bool
	size   int
}

func paragraph(b *bytes.Buffer, text string, style runStyle, bullet bool) {
	b.WriteString(`<w:p>`)
	if bullet {
		b.WriteString(`<w:pPr><w:ind w:left="720" w:hanging="360"/></w:pPr>`)
		text = "• " + text
	}
	b.WriteString(`<w:r><w:rPr>`)
	if style.bold {
		b.WriteString(`<w:b/>`)
	}
	if style.italic {
		b.WriteString(`<w:i/>`)
	}
	if style.size > 0 {
		fmt.Fprintf(b, `<w:sz w:val="%d"/>`, style.size)
	}
	b.WriteString(`</w:rPr><w:t xml:space="preserve">`)
	_ = xml.EscapeText(b, []byte(text))
	b.WriteString(`</w:t></w:r></w:p>`)
}
