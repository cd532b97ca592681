package driven

import (
	"context"
)

// CompletionRequest is a single grounded completion call
type CompletionRequest struct {
	// System is the instruction block (answer only from context, decline otherwise)
	System string

	// Prompt carries the assembled context and the question
	Prompt string

	MaxTokens   int
	Temperature float64
}

// Completion is the backend's reply
type Completion struct {
	Text string

	// Confidence is the backend's own reliability signal in [0,1], when it has one
	// (for example mean token probability from logprobs). Nil when unavailable.
	Confidence *float64

	// TokensUsed is reported when the backend exposes usage
	TokensUsed int
}

// LLMService is a generative completion backend
type LLMService interface {
	// Complete generates text for the request
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)

	// Model returns the model name being used
	Model() string

	// Ping verifies the LLM service is available
	Ping(ctx context.Context) error

	// Close releases resources held by the LLM service
	Close() error
}
