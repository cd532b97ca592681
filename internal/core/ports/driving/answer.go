package driving

import (
	"context"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
)

// AnswerService answers a batch of questions about one document
type AnswerService interface {
	// Answer runs the full pipeline for the request and returns one answer
	// per question, in question order. Document-level failures (fetch,
	// empty document, embedding) are returned as errors; per-question
	// failures become placeholder answers.
	Answer(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error)
}

// StatusService reports the capabilities the pipeline is running with
type StatusService interface {
	// Status returns the current component status
	Status(ctx context.Context) *domain.ServiceStatus
}
