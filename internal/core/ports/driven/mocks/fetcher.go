package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
)

// MockFetcher serves documents from memory, keyed by URL.
// Unknown URLs fail with ErrFetch, like an unreachable host.
type MockFetcher struct {
	mu        sync.Mutex
	documents map[string]*domain.Document
	fetches   int
}

// NewMockFetcher creates an empty MockFetcher
func NewMockFetcher() *MockFetcher {
	return &MockFetcher{documents: make(map[string]*domain.Document)}
}

// AddText registers a plain-text document at url
func (m *MockFetcher) AddText(url, id, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents[url] = &domain.Document{
		ID:          id,
		SourceURL:   url,
		ContentType: "text/plain",
		Format:      domain.FormatText,
		Raw:         []byte(text),
		Text:        text,
	}
}

func (m *MockFetcher) Fetch(ctx context.Context, url string) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fetches++
	doc, ok := m.documents[url]
	if !ok {
		return nil, fmt.Errorf("%w: %s: connection refused", domain.ErrFetch, url)
	}
	return doc, nil
}

// Fetches returns the number of Fetch calls
func (m *MockFetcher) Fetches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches
}
