package normalisers

import (
	"errors"
	"testing"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
)

// Mock normaliser for testing
type mockNormaliser struct {
	name     string
	types    []string
	priority int
	err      error
}

func (m *mockNormaliser) Normalise(content []byte, mimeType string) (*domain.DecodedText, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.DecodedText{Text: string(content) + "-" + m.name}, nil
}

func (m *mockNormaliser) SupportedTypes() []string {
	return m.types
}

func (m *mockNormaliser) Format() domain.DocumentFormat {
	return domain.FormatText
}

func (m *mockNormaliser) Priority() int {
	return m.priority
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("expected non-nil registry")
	}
	if len(r.List()) != 0 {
		t.Error("expected empty registry")
	}
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockNormaliser{name: "test", types: []string{"text/plain"}, priority: 50})

	if n := r.Get("text/plain"); n == nil {
		t.Fatal("expected to find normaliser")
	}
	if n := r.Get("application/json"); n != nil {
		t.Error("expected nil for unregistered type")
	}
}

func TestRegistry_Get_PrioritySelection(t *testing.T) {
	r := NewRegistry()

	r.Register(&mockNormaliser{name: "low", types: []string{"text/plain"}, priority: 10})
	r.Register(&mockNormaliser{name: "high", types: []string{"text/plain"}, priority: 90})
	r.Register(&mockNormaliser{name: "medium", types: []string{"text/plain"}, priority: 50})

	n := r.Get("text/plain")
	if n == nil {
		t.Fatal("expected to find normaliser")
	}

	result, err := n.Normalise([]byte("test"), "text/plain")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Text != "test-high" {
		t.Errorf("expected high priority normaliser, got %s", result.Text)
	}
}

func TestRegistry_GetAll(t *testing.T) {
	r := NewRegistry()

	r.Register(&mockNormaliser{name: "n1", types: []string{"text/plain"}, priority: 10})
	r.Register(&mockNormaliser{name: "n2", types: []string{"text/plain"}, priority: 90})
	r.Register(&mockNormaliser{name: "n3", types: []string{"text/html"}, priority: 50})

	all := r.GetAll("text/plain")
	if len(all) != 2 {
		t.Fatalf("expected 2 normalisers, got %d", len(all))
	}
	if all[0].Priority() != 90 {
		t.Errorf("expected first priority 90, got %d", all[0].Priority())
	}
}

func TestRegistry_List(t *testing.T) {
	r := NewRegistry()

	r.Register(&mockNormaliser{name: "n1", types: []string{"text/plain", "text/csv"}, priority: 50})
	r.Register(&mockNormaliser{name: "n2", types: []string{"text/html"}, priority: 50})

	types := r.List()

	expected := []string{"text/csv", "text/html", "text/plain"}
	if len(types) != len(expected) {
		t.Fatalf("expected %d types, got %d", len(expected), len(types))
	}
	for i, exp := range expected {
		if types[i] != exp {
			t.Errorf("expected type %s at index %d, got %s", exp, i, types[i])
		}
	}
}

func TestRegistry_Decode(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockNormaliser{name: "ok", types: []string{"text/plain"}, priority: 50})
	r.Register(&mockNormaliser{name: "bad", types: []string{"application/pdf"}, priority: 50, err: errors.New("corrupt")})

	decoded, format, err := r.Decode([]byte("body"), "text/plain; charset=utf-8")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded.Text != "body-ok" || format != domain.FormatText {
		t.Errorf("unexpected decode result %q / %s", decoded.Text, format)
	}

	if _, _, err := r.Decode([]byte("x"), "image/png"); !errors.Is(err, domain.ErrFetch) {
		t.Errorf("expected ErrFetch for unsupported type, got %v", err)
	}
	if _, _, err := r.Decode([]byte("x"), "application/pdf"); !errors.Is(err, domain.ErrFetch) {
		t.Errorf("expected ErrFetch for decode failure, got %v", err)
	}
}

func TestMatchesMIMEType(t *testing.T) {
	tests := []struct {
		name      string
		supported []string
		mimeType  string
		expected  bool
	}{
		{"exact match", []string{"text/plain"}, "text/plain", true},
		{"case insensitive", []string{"TEXT/PLAIN"}, "text/plain", true},
		{"with charset", []string{"text/plain"}, "text/plain; charset=utf-8", true},
		{"wildcard subtype", []string{"text/*"}, "text/plain", true},
		{"wildcard no match", []string{"text/*"}, "application/json", false},
		{"universal wildcard", []string{"*/*"}, "anything/here", true},
		{"no match", []string{"text/plain"}, "text/html", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := matchesMIMEType(tt.supported, tt.mimeType)
			if result != tt.expected {
				t.Errorf("matchesMIMEType(%v, %s) = %v, want %v",
					tt.supported, tt.mimeType, result, tt.expected)
			}
		})
	}
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	tests := []struct {
		mimeType string
		format   domain.DocumentFormat
	}{
		{"text/plain", domain.FormatText},
		{"text/markdown", domain.FormatText},
		{"application/json", domain.FormatText},
		{"text/html; charset=utf-8", domain.FormatHTML},
		{"message/rfc822", domain.FormatEmail},
		{"application/pdf", domain.FormatPDF},
		{DOCXMIMEType, domain.FormatDOCX},
	}

	for _, tt := range tests {
		t.Run(tt.mimeType, func(t *testing.T) {
			n := r.Get(tt.mimeType)
			if n == nil {
				t.Fatalf("expected normaliser for %s", tt.mimeType)
			}
			if n.Format() != tt.format {
				t.Errorf("expected format %s, got %s", tt.format, n.Format())
			}
		})
	}

	if n := r.Get("image/png"); n != nil {
		t.Error("expected no normaliser for images")
	}
}
