package driven

import (
	"context"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
)

// IndexCache shares built index snapshots across requests.
// Published entries are immutable: Put never overwrites an existing key.
type IndexCache interface {
	// Get returns the snapshot for key, or domain.ErrNotFound
	Get(ctx context.Context, key string) (*domain.IndexSnapshot, error)

	// Put publishes a snapshot if key is absent.
	// Returns false when another snapshot was already published.
	Put(ctx context.Context, key string, snap *domain.IndexSnapshot) (stored bool, err error)

	// Name names the backend ("memory", "redis")
	Name() string
}
