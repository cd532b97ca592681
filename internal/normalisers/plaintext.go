package normalisers

import (
	"regexp"
	"strings"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Normaliser = (*PlaintextNormaliser)(nil)

var (
	trailingSpace = regexp.MustCompile(`[ \t]+\n`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
)

// PlaintextNormaliser passes structured text through with line endings normalised.
type PlaintextNormaliser struct{}

// NewPlaintextNormaliser creates a new plain text normaliser.
func NewPlaintextNormaliser() *PlaintextNormaliser {
	return &PlaintextNormaliser{}
}

func (n *PlaintextNormaliser) Normalise(content []byte, mimeType string) (*domain.DecodedText, error) {
	return &domain.DecodedText{Text: cleanText(string(content))}, nil
}

func (n *PlaintextNormaliser) SupportedTypes() []string {
	return []string{
		"text/*",
		"application/json",
		"application/xml",
		"application/x-yaml",
		"application/csv",
	}
}

func (n *PlaintextNormaliser) Format() domain.DocumentFormat {
	return domain.FormatText
}

func (n *PlaintextNormaliser) Priority() int {
	return 10 // Generic
}

// cleanText normalises line endings, drops invalid UTF-8 and trailing
// whitespace, and collapses runs of blank lines to one.
func cleanText(content string) string {
	content = strings.ToValidUTF8(content, "")
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	content = strings.ReplaceAll(content, "\x00", "")
	content = trailingSpace.ReplaceAllString(content, "\n")
	content = multiNewlines.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
