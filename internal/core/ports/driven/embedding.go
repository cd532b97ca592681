package driven

import (
	"context"
)

// EmbeddingService converts chunks and questions into fixed-dimension vectors.
// Implementations must be deterministic for identical input and model, and
// Embed must return vectors in input order: a batch of N texts is equivalent
// to N sequential EmbedQuery calls.
type EmbeddingService interface {
	// Embed generates embeddings for multiple texts
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single question
	EmbedQuery(ctx context.Context, query string) ([]float32, error)

	// Dimensions returns the embedding dimension size
	Dimensions() int

	// Model returns the model identifier; every vector in one index shares it
	Model() string

	// HealthCheck verifies the embedding service is available
	HealthCheck(ctx context.Context) error

	// Close releases resources held by the embedding service
	Close() error
}
