package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven"
)

// MockIndexProvider simulates a remote vector index backend.
// Set OpenErr to make it unavailable, or FailQueries/FailUpserts to make
// it fail once indexes are open.
type MockIndexProvider struct {
	mu      sync.Mutex
	indexes map[string]*MockVectorIndex

	OpenErr     error
	FailQueries bool
	FailUpserts bool
}

// NewMockIndexProvider creates a healthy mock remote backend
func NewMockIndexProvider() *MockIndexProvider {
	return &MockIndexProvider{indexes: make(map[string]*MockVectorIndex)}
}

func (p *MockIndexProvider) Open(ctx context.Context, scope string) (driven.VectorIndex, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.OpenErr != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndex, p.OpenErr)
	}
	idx, ok := p.indexes[scope]
	if !ok {
		idx = &MockVectorIndex{provider: p, entries: make(map[string]mockEntry)}
		p.indexes[scope] = idx
	}
	return idx, nil
}

func (p *MockIndexProvider) Name() string {
	return "mock-remote"
}

func (p *MockIndexProvider) HealthCheck(ctx context.Context) error {
	return p.OpenErr
}

// Scopes returns the number of scopes opened
func (p *MockIndexProvider) Scopes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.indexes)
}

type mockEntry struct {
	chunk  *domain.Chunk
	vector []float32
}

// MockVectorIndex is a brute-force index owned by a MockIndexProvider
type MockVectorIndex struct {
	provider *MockIndexProvider
	mu       sync.RWMutex
	entries  map[string]mockEntry
}

func (m *MockVectorIndex) Upsert(ctx context.Context, chunk *domain.Chunk, vector []float32) error {
	m.provider.mu.Lock()
	fail := m.provider.FailUpserts
	m.provider.mu.Unlock()
	if fail {
		return fmt.Errorf("%w: mock upsert failure", domain.ErrIndex)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[chunk.ID] = mockEntry{chunk: chunk, vector: vector}
	return nil
}

func (m *MockVectorIndex) Query(ctx context.Context, vector []float32, k int) ([]domain.ScoredChunk, error) {
	m.provider.mu.Lock()
	fail := m.provider.FailQueries
	m.provider.mu.Unlock()
	if fail {
		return nil, fmt.Errorf("%w: mock query failure", domain.ErrIndex)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]domain.ScoredChunk, 0, len(m.entries))
	for _, e := range m.entries {
		results = append(results, domain.ScoredChunk{Chunk: e.chunk, Score: dot(vector, e.vector)})
	}
	domain.SortScored(results)
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (m *MockVectorIndex) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]mockEntry)
	return nil
}

func (m *MockVectorIndex) Len(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

func (m *MockVectorIndex) Backend() string {
	return "mock-remote"
}

// dot assumes normalised vectors, as produced by MockEmbeddingService
func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		if i < len(b) {
			sum += float64(a[i]) * float64(b[i])
		}
	}
	return sum
}
