package normalisers

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Normaliser = (*PDFNormaliser)(nil)

// PDFNormaliser extracts per-page text from PDF files.
// Pages are joined with domain.PageBreak and their start offsets recorded.
type PDFNormaliser struct{}

// NewPDFNormaliser creates a new PDF normaliser.
func NewPDFNormaliser() *PDFNormaliser {
	return &PDFNormaliser{}
}

func (n *PDFNormaliser) Normalise(content []byte, mimeType string) (decoded *domain.DecodedText, err error) {
	// The PDF parser panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			decoded = nil
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	pages := make([]string, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to extract text from page %d: %w", i, err)
		}
		pages[i-1] = pageText
	}

	return joinPages(pages), nil
}

// joinPages concatenates page texts with domain.PageBreak and records
// where each page starts.
func joinPages(pages []string) *domain.DecodedText {
	var text strings.Builder
	offsets := make([]int, 0, len(pages))
	for i, p := range pages {
		if i > 0 {
			text.WriteString(domain.PageBreak)
		}
		offsets = append(offsets, text.Len())
		text.WriteString(cleanPageText(p))
	}
	return &domain.DecodedText{Text: text.String(), PageOffsets: offsets}
}

func (n *PDFNormaliser) SupportedTypes() []string {
	return []string{"application/pdf", "application/x-pdf"}
}

func (n *PDFNormaliser) Format() domain.DocumentFormat {
	return domain.FormatPDF
}

func (n *PDFNormaliser) Priority() int {
	return 60 // Format-specific
}

// cleanPageText normalises one page without touching page separators
func cleanPageText(s string) string {
	return cleanText(strings.ReplaceAll(s, domain.PageBreak, "\n"))
}
