package fetcher

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-docqa/internal/normalisers"
)

// Verify interface compliance
var _ driven.DocumentFetcher = (*HTTPFetcher)(nil)

// Config holds fetcher configuration
type Config struct {
	Timeout          time.Duration
	MaxDocumentBytes int64
	MinDocumentChars int
	UserAgent        string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Timeout:          30 * time.Second,
		MaxDocumentBytes: 50 << 20,
		MinDocumentChars: 20,
		UserAgent:        "sercha-docqa/1.0",
	}
}

// HTTPFetcher downloads a document over HTTP(S) and decodes it through the
// normaliser registry.
type HTTPFetcher struct {
	client   *http.Client
	registry *normalisers.Registry
	config   Config
	now      func() time.Time
}

// New creates a fetcher. A nil registry uses normalisers.DefaultRegistry().
func New(cfg Config, registry *normalisers.Registry) *HTTPFetcher {
	if registry == nil {
		registry = normalisers.DefaultRegistry()
	}
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxDocumentBytes <= 0 {
		cfg.MaxDocumentBytes = def.MaxDocumentBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	return &HTTPFetcher{
		client:   &http.Client{Timeout: cfg.Timeout},
		registry: registry,
		config:   cfg,
		now:      time.Now,
	}
}

// Fetch retrieves and decodes the document at rawURL.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*domain.Document, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid document URL %q", domain.ErrFetch, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", domain.ErrFetch, err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: timed out after %s: %v", domain.ErrFetch, f.config.Timeout, err)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: HTTP %d from %s", domain.ErrFetch, resp.StatusCode, u.Host)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxDocumentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read body: %v", domain.ErrFetch, err)
	}
	if int64(len(body)) > f.config.MaxDocumentBytes {
		return nil, fmt.Errorf("%w: document exceeds %d bytes", domain.ErrFetch, f.config.MaxDocumentBytes)
	}

	contentType := DetectContentType(resp.Header.Get("Content-Type"), u.Path, body)
	decoded, format, err := f.registry.Decode(body, contentType)
	if err != nil {
		return nil, err
	}

	if len(strings.TrimSpace(decoded.Text)) < f.config.MinDocumentChars {
		return nil, fmt.Errorf("%w: %d characters of text extracted from %s document",
			domain.ErrEmptyDocument, len(strings.TrimSpace(decoded.Text)), format)
	}

	return &domain.Document{
		ID:          DocumentID(body),
		SourceURL:   rawURL,
		ContentType: contentType,
		Format:      format,
		Raw:         body,
		Text:        decoded.Text,
		PageOffsets: decoded.PageOffsets,
		FetchedAt:   f.now(),
	}, nil
}

// DocumentID derives a stable document identifier from its raw bytes
func DocumentID(raw []byte) string {
	sum := blake2b.Sum256(raw)
	return hex.EncodeToString(sum[:16])
}

// isTimeout reports whether err is a client or context deadline
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}
