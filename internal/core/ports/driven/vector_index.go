package driven

import (
	"context"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
)

// VectorIndex stores chunk vectors for a single scope and answers
// nearest-neighbour queries. Entries of different scopes never mix.
type VectorIndex interface {
	// Upsert adds or replaces the entry for chunk.ID. Idempotent.
	Upsert(ctx context.Context, chunk *domain.Chunk, vector []float32) error

	// Query returns up to k entries by descending cosine similarity,
	// ties broken by ascending sequence index.
	Query(ctx context.Context, vector []float32, k int) ([]domain.ScoredChunk, error)

	// Clear drops every entry of this scope
	Clear(ctx context.Context) error

	// Len returns the number of entries in this scope
	Len(ctx context.Context) (int, error)

	// Backend names the implementation ("memory", "postgres", "vespa")
	Backend() string
}

// VectorIndexProvider opens scoped indexes on one backend
type VectorIndexProvider interface {
	// Open returns an empty-or-existing index for scope.
	// Fails with domain.ErrIndex when the backend is unreachable.
	Open(ctx context.Context, scope string) (VectorIndex, error)

	// Name names the backend
	Name() string

	// HealthCheck verifies the backend is reachable
	HealthCheck(ctx context.Context) error
}
