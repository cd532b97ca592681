package normalisers

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Normaliser = (*DOCXNormaliser)(nil)

// DOCXMIMEType is the Office Open XML word processing type
const DOCXMIMEType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

var errNoDocumentXML = errors.New("word/document.xml not found")

// DOCXNormaliser extracts paragraph text from DOCX files.
type DOCXNormaliser struct{}

// NewDOCXNormaliser creates a new DOCX normaliser.
func NewDOCXNormaliser() *DOCXNormaliser {
	return &DOCXNormaliser{}
}

func (n *DOCXNormaliser) Normalise(content []byte, mimeType string) (*domain.DecodedText, error) {
	reader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", file.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file.Name, err)
		}

		text, err := parseDocumentXML(data)
		if err != nil {
			return nil, err
		}
		return &domain.DecodedText{Text: text}, nil
	}
	return nil, errNoDocumentXML
}

func (n *DOCXNormaliser) SupportedTypes() []string {
	return []string{DOCXMIMEType}
}

func (n *DOCXNormaliser) Format() domain.DocumentFormat {
	return domain.FormatDOCX
}

func (n *DOCXNormaliser) Priority() int {
	return 60 // Format-specific
}

// documentXML represents the structure of word/document.xml.
type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"body"`
}

type paragraph struct {
	Runs []run `xml:"r"`
}

type run struct {
	Text []textElement `xml:"t"`
}

type textElement struct {
	Content string `xml:",chardata"`
}

// parseDocumentXML renders each paragraph on its own block
func parseDocumentXML(content []byte) (string, error) {
	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return "", fmt.Errorf("failed to parse document.xml: %w", err)
	}

	paras := make([]string, 0, len(doc.Body.Paragraphs))
	for _, para := range doc.Body.Paragraphs {
		var b strings.Builder
		for _, r := range para.Runs {
			for _, t := range r.Text {
				b.WriteString(t.Content)
			}
		}
		if s := strings.TrimSpace(b.String()); s != "" {
			paras = append(paras, s)
		}
	}
	return strings.Join(paras, "\n\n"), nil
}
