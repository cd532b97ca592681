package fetcher

import (
	"bytes"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/custodia-labs/sercha-docqa/internal/normalisers"
)

// genericTypes carry no format information and are ignored in the header
var genericTypes = map[string]bool{
	"application/octet-stream":   true,
	"binary/octet-stream":        true,
	"application/download":       true,
	"application/x-download":     true,
	"application/force-download": true,
	"application/unknown":        true,
}

var extensionTypes = map[string]string{
	".pdf":      "application/pdf",
	".docx":     normalisers.DOCXMIMEType,
	".html":     "text/html",
	".htm":      "text/html",
	".xhtml":    "application/xhtml+xml",
	".eml":      "message/rfc822",
	".txt":      "text/plain",
	".text":     "text/plain",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".csv":      "text/csv",
	".json":     "application/json",
	".xml":      "application/xml",
}

// emailHeaders commonly open an RFC 822 message
var emailHeaders = []string{
	"from:", "to:", "subject:", "date:", "received:", "return-path:",
	"message-id:", "mime-version:", "delivered-to:",
}

// DetectContentType picks the MIME type of a fetched document.
// Order: a specific Content-Type header, the URL path extension, then the
// body's magic bytes.
func DetectContentType(header, urlPath string, body []byte) string {
	if header != "" {
		if mediaType, _, err := mime.ParseMediaType(header); err == nil && !genericTypes[mediaType] {
			return header
		}
	}

	if t, ok := extensionTypes[strings.ToLower(path.Ext(urlPath))]; ok {
		return t
	}

	return sniff(body)
}

// sniff inspects the leading bytes of body
func sniff(body []byte) string {
	switch {
	case bytes.HasPrefix(body, []byte("%PDF-")):
		return "application/pdf"
	case bytes.HasPrefix(body, []byte("PK\x03\x04")) && bytes.Contains(body, []byte("word/")):
		return normalisers.DOCXMIMEType
	}

	head := body
	if len(head) > 1024 {
		head = head[:1024]
	}
	lower := strings.ToLower(strings.TrimSpace(string(head)))
	if strings.HasPrefix(lower, "<!doctype html") || strings.HasPrefix(lower, "<html") {
		return "text/html"
	}
	if looksLikeEmail(lower) {
		return "message/rfc822"
	}

	return http.DetectContentType(body)
}

// looksLikeEmail checks for a header block starting with a known mail header
func looksLikeEmail(lower string) bool {
	if !strings.Contains(lower, "\n\n") && !strings.Contains(lower, "\r\n\r\n") {
		return false
	}
	firstLine := lower
	if i := strings.IndexByte(lower, '\n'); i >= 0 {
		firstLine = lower[:i]
	}
	for _, h := range emailHeaders {
		if strings.HasPrefix(firstLine, h) {
			return true
		}
	}
	return false
}
