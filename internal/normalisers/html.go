package normalisers

import (
	"html"
	"regexp"
	"strings"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Normaliser = (*HTMLNormaliser)(nil)

// Pre-compiled regular expressions for HTML stripping.
var (
	scriptTag          = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag           = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptTag        = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	headTag            = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	svgTag             = regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`)
	htmlComments       = regexp.MustCompile(`(?s)<!--.*?-->`)
	openBlockElements  = regexp.MustCompile(`(?i)<(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article|ul|ol)[^>]*>`)
	closeBlockElements = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article|ul|ol)>`)
	lineBreakTags      = regexp.MustCompile(`(?i)<(br|hr)\s*/?>`)
	cellTags           = regexp.MustCompile(`(?i)</t[dh]>`)
	allTags            = regexp.MustCompile(`<[^>]+>`)
	multiSpaces        = regexp.MustCompile(`[ \t\x{00a0}]+`)
)

// HTMLNormaliser extracts readable text from HTML.
// Block elements become paragraph breaks so the chunker can split on them.
type HTMLNormaliser struct{}

// NewHTMLNormaliser creates a new HTML normaliser.
func NewHTMLNormaliser() *HTMLNormaliser {
	return &HTMLNormaliser{}
}

func (n *HTMLNormaliser) Normalise(content []byte, mimeType string) (*domain.DecodedText, error) {
	return &domain.DecodedText{Text: StripHTML(string(content))}, nil
}

func (n *HTMLNormaliser) SupportedTypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

func (n *HTMLNormaliser) Format() domain.DocumentFormat {
	return domain.FormatHTML
}

func (n *HTMLNormaliser) Priority() int {
	return 50 // Format-specific
}

// StripHTML removes markup and returns the visible text.
func StripHTML(content string) string {
	content = scriptTag.ReplaceAllString(content, "")
	content = styleTag.ReplaceAllString(content, "")
	content = noscriptTag.ReplaceAllString(content, "")
	content = headTag.ReplaceAllString(content, "")
	content = svgTag.ReplaceAllString(content, "")
	content = htmlComments.ReplaceAllString(content, "")

	content = openBlockElements.ReplaceAllString(content, "\n\n")
	content = closeBlockElements.ReplaceAllString(content, "\n\n")
	content = lineBreakTags.ReplaceAllString(content, "\n")
	content = cellTags.ReplaceAllString(content, " ")
	content = allTags.ReplaceAllString(content, "")

	content = html.UnescapeString(content)
	content = multiSpaces.ReplaceAllString(content, " ")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return cleanText(strings.Join(lines, "\n"))
}
