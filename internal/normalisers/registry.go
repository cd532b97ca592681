package normalisers

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry picks the decoder for a detected content type. Normalisers are
// kept ordered by descending priority; equal priorities keep registration order.
type Registry struct {
	mu      sync.RWMutex
	ordered []driven.Normaliser
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

// DefaultRegistry registers every document decoder the fetcher supports
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, n := range []driven.Normaliser{
		NewPDFNormaliser(),
		NewDOCXNormaliser(),
		NewHTMLNormaliser(),
		NewEmailNormaliser(),
		NewPlaintextNormaliser(),
	} {
		r.Register(n)
	}
	return r
}

// Register adds a normaliser
func (r *Registry) Register(normaliser driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ordered = append(r.ordered, normaliser)
	sort.SliceStable(r.ordered, func(i, j int) bool {
		return r.ordered[i].Priority() > r.ordered[j].Priority()
	})
}

// Get returns the highest-priority normaliser for mimeType, or nil
func (r *Registry) Get(mimeType string) driven.Normaliser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, n := range r.ordered {
		if matchesMIMEType(n.SupportedTypes(), mimeType) {
			return n
		}
	}
	return nil
}

// GetAll returns every normaliser for mimeType, highest priority first
func (r *Registry) GetAll(mimeType string) []driven.Normaliser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []driven.Normaliser
	for _, n := range r.ordered {
		if matchesMIMEType(n.SupportedTypes(), mimeType) {
			matches = append(matches, n)
		}
	}
	return matches
}

// List returns the registered MIME types, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var types []string
	for _, n := range r.ordered {
		for _, t := range n.SupportedTypes() {
			if !seen[t] {
				seen[t] = true
				types = append(types, t)
			}
		}
	}
	sort.Strings(types)
	return types
}

// Decode decodes content with the normaliser chosen for mimeType.
// Unknown types and decoder failures are fetch errors: the document
// cannot be read either way.
func (r *Registry) Decode(content []byte, mimeType string) (*domain.DecodedText, domain.DocumentFormat, error) {
	n := r.Get(mimeType)
	if n == nil {
		return nil, "", fmt.Errorf("%w: unsupported format %q", domain.ErrFetch, mimeType)
	}
	decoded, err := n.Normalise(content, mimeType)
	if err != nil {
		return nil, "", fmt.Errorf("%w: decode %s: %v", domain.ErrFetch, n.Format(), err)
	}
	return decoded, n.Format(), nil
}

// mediaType lowercases a content type and drops its parameters
func mediaType(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// matchesMIMEType reports whether mimeType is covered by one of supported.
// "type/*" covers every subtype and "*/*" covers everything.
func matchesMIMEType(supported []string, mimeType string) bool {
	want := mediaType(mimeType)
	for _, s := range supported {
		s = mediaType(s)
		switch {
		case s == "*/*", s == want:
			return true
		case strings.HasSuffix(s, "/*") && strings.HasPrefix(want, strings.TrimSuffix(s, "*")):
			return true
		}
	}
	return false
}
