package ai

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven"
)

// Ensure the Ollama adapters implement their ports
var (
	_ driven.EmbeddingService = (*OllamaEmbedding)(nil)
	_ driven.LLMService       = (*OllamaLLM)(nil)
)

// ollamaModelDimensions lists vector sizes of common embedding models
var ollamaModelDimensions = map[string]int{
	"nomic-embed-text":       768,
	"mxbai-embed-large":      1024,
	"all-minilm":             384,
	"snowflake-arctic-embed": 1024,
}

// newOllamaClient builds an API client; an empty host falls back to OLLAMA_HOST
func newOllamaClient(host string, timeout time.Duration) (*api.Client, error) {
	hostURL := envconfig.Host()
	if host != "" {
		u, err := url.Parse(host)
		if err != nil {
			return nil, fmt.Errorf("invalid Ollama host %q: %w", host, err)
		}
		hostURL = u
	}
	return api.NewClient(hostURL, &http.Client{Timeout: timeout}), nil
}

// OllamaEmbedding implements EmbeddingService against a local Ollama server
type OllamaEmbedding struct {
	client     *api.Client
	model      string
	dimensions int
}

// NewOllamaEmbedding creates an Ollama embedding service.
// When dimensions is 0 it is looked up from the model name.
func NewOllamaEmbedding(host, model string, dimensions int) (*OllamaEmbedding, error) {
	if model == "" {
		model = "nomic-embed-text"
	}
	if dimensions <= 0 {
		dimensions = ollamaModelDimensions[strings.SplitN(model, ":", 2)[0]]
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("unknown dimensions for Ollama model %q", model)
	}

	client, err := newOllamaClient(host, 60*time.Second)
	if err != nil {
		return nil, err
	}
	return &OllamaEmbedding{client: client, model: model, dimensions: dimensions}, nil
}

// Embed generates embeddings for multiple texts in one request
func (e *OllamaEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.Embed(ctx, &api.EmbedRequest{
		Model: e.model,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create embeddings: %v", domain.ErrEmbeddingService, err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", domain.ErrEmbeddingService, len(texts), len(resp.Embeddings))
	}
	for i, v := range resp.Embeddings {
		if len(v) != e.dimensions {
			return nil, fmt.Errorf("%w: embedding %d has %d dimensions, expected %d", domain.ErrEmbeddingService, i, len(v), e.dimensions)
		}
	}
	return resp.Embeddings, nil
}

// EmbedQuery generates an embedding for a question
func (e *OllamaEmbedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	embeddings, err := e.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

func (e *OllamaEmbedding) Dimensions() int {
	return e.dimensions
}

func (e *OllamaEmbedding) Model() string {
	return e.model
}

// HealthCheck verifies the Ollama server responds
func (e *OllamaEmbedding) HealthCheck(ctx context.Context) error {
	if err := e.client.Heartbeat(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}
	return nil
}

func (e *OllamaEmbedding) Close() error {
	return nil
}

// OllamaLLM implements LLMService with the Ollama generate endpoint
type OllamaLLM struct {
	client *api.Client
	model  string
}

// NewOllamaLLM creates an Ollama generation service
func NewOllamaLLM(host, model string) (*OllamaLLM, error) {
	if model == "" {
		model = "llama3.2"
	}
	client, err := newOllamaClient(host, 180*time.Second)
	if err != nil {
		return nil, err
	}
	return &OllamaLLM{client: client, model: model}, nil
}

// Complete generates a single non-streamed reply
func (l *OllamaLLM) Complete(ctx context.Context, req driven.CompletionRequest) (*driven.Completion, error) {
	stream := false
	options := map[string]any{
		"temperature": req.Temperature,
	}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}

	var text strings.Builder
	var tokens int
	err := l.client.Generate(ctx, &api.GenerateRequest{
		Model:   l.model,
		Prompt:  req.Prompt,
		System:  req.System,
		Stream:  &stream,
		Options: options,
	}, func(resp api.GenerateResponse) error {
		text.WriteString(resp.Response)
		if resp.Done {
			tokens = resp.PromptEvalCount + resp.EvalCount
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGeneration, err)
	}

	return &driven.Completion{
		Text:       strings.TrimSpace(text.String()),
		TokensUsed: tokens,
	}, nil
}

func (l *OllamaLLM) Model() string {
	return l.model
}

// Ping verifies the Ollama server responds
func (l *OllamaLLM) Ping(ctx context.Context) error {
	if err := l.client.Heartbeat(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}
	return nil
}

func (l *OllamaLLM) Close() error {
	return nil
}
