package driven

import (
	"context"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
)

// DocumentFetcher retrieves and decodes a document by URL.
// Failures wrap domain.ErrFetch or domain.ErrEmptyDocument.
type DocumentFetcher interface {
	Fetch(ctx context.Context, url string) (*domain.Document, error)
}
