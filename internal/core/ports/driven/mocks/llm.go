package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven"
)

// MockLLMService is a scripted LLMService for testing.
// CompleteFn decides the reply; without it every call returns Reply.
type MockLLMService struct {
	mu       sync.Mutex
	requests []driven.CompletionRequest

	Reply      string
	CompleteFn func(ctx context.Context, req driven.CompletionRequest) (*driven.Completion, error)
	PingErr    error
}

// NewMockLLMService creates a mock returning reply for every prompt
func NewMockLLMService(reply string) *MockLLMService {
	return &MockLLMService{Reply: reply}
}

func (m *MockLLMService) Complete(ctx context.Context, req driven.CompletionRequest) (*driven.Completion, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.CompleteFn != nil {
		return m.CompleteFn(ctx, req)
	}
	return &driven.Completion{Text: m.Reply}, nil
}

func (m *MockLLMService) Model() string {
	return "mock-llm"
}

func (m *MockLLMService) Ping(ctx context.Context) error {
	return m.PingErr
}

func (m *MockLLMService) Close() error {
	return nil
}

// Requests returns every request received, in arrival order
func (m *MockLLMService) Requests() []driven.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]driven.CompletionRequest, len(m.requests))
	copy(out, m.requests)
	return out
}
