package normalisers

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Normaliser = (*EmailNormaliser)(nil)

// EmailNormaliser decodes RFC 822 messages.
// The text/plain part is preferred; HTML parts are stripped as a fallback.
type EmailNormaliser struct{}

// NewEmailNormaliser creates a new email normaliser.
func NewEmailNormaliser() *EmailNormaliser {
	return &EmailNormaliser{}
}

func (n *EmailNormaliser) Normalise(content []byte, mimeType string) (*domain.DecodedText, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	body, err := extractBody(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body)
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, h := range []string{"Subject", "From", "Date"} {
		if v := decodeHeader(msg.Header.Get(h)); v != "" {
			text.WriteString(h)
			text.WriteString(": ")
			text.WriteString(v)
			text.WriteString("\n")
		}
	}
	text.WriteString("\n")
	text.WriteString(body)

	return &domain.DecodedText{Text: cleanText(text.String())}, nil
}

func (n *EmailNormaliser) SupportedTypes() []string {
	return []string{"message/rfc822"}
}

func (n *EmailNormaliser) Format() domain.DocumentFormat {
	return domain.FormatEmail
}

func (n *EmailNormaliser) Priority() int {
	return 50 // Format-specific
}

// decodeHeader decodes RFC 2047 encoded headers.
func decodeHeader(header string) string {
	if header == "" {
		return ""
	}
	dec := new(mime.WordDecoder)
	decoded, err := dec.DecodeHeader(header)
	if err != nil {
		return header
	}
	return decoded
}

// decodeTransfer undoes a Content-Transfer-Encoding
func decodeTransfer(r io.Reader, encoding string) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	default:
		return r
	}
}

// extractBody returns the readable text of a message or MIME part.
func extractBody(contentType, encoding string, r io.Reader) (string, error) {
	if contentType == "" {
		contentType = "text/plain"
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		body, readErr := io.ReadAll(decodeTransfer(r, encoding))
		if readErr != nil {
			return "", fmt.Errorf("failed to read body: %w", readErr)
		}
		return string(body), nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return extractMultipartBody(r, params["boundary"])
	}

	body, err := io.ReadAll(decodeTransfer(r, encoding))
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	if mediaType == "text/html" {
		return StripHTML(string(body)), nil
	}
	return string(body), nil
}

// extractMultipartBody walks a multipart body, preferring text/plain parts.
func extractMultipartBody(r io.Reader, boundary string) (string, error) {
	if boundary == "" {
		return "", nil
	}

	mr := multipart.NewReader(r, boundary)
	var textParts, htmlParts []string

	for {
		part, err := mr.NextPart()
		if err != nil {
			break
		}

		partType := part.Header.Get("Content-Type")
		mediaType, _, parseErr := mime.ParseMediaType(partType)
		if parseErr != nil {
			mediaType = "text/plain"
			partType = mediaType
		}

		// multipart.Reader already undoes quoted-printable
		text, readErr := extractBody(partType, part.Header.Get("Content-Transfer-Encoding"), part)
		part.Close()
		if readErr != nil {
			continue
		}

		switch {
		case mediaType == "text/plain", strings.HasPrefix(mediaType, "multipart/"):
			if strings.TrimSpace(text) != "" {
				textParts = append(textParts, text)
			}
		case mediaType == "text/html":
			htmlParts = append(htmlParts, text)
		}
	}

	if len(textParts) > 0 {
		return strings.Join(textParts, "\n\n"), nil
	}
	return strings.Join(htmlParts, "\n\n"), nil
}
