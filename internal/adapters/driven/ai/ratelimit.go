package ai

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven"
)

// Ensure the rate-limited wrappers implement their ports
var (
	_ driven.EmbeddingService = (*RateLimitedEmbedding)(nil)
	_ driven.LLMService       = (*RateLimitedLLM)(nil)
)

// newLimiter allows requestsPerSecond with a burst of at least one
func newLimiter(requestsPerSecond float64) *rate.Limiter {
	burst := int(requestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

// RateLimitedEmbedding throttles calls to an embedding backend
type RateLimitedEmbedding struct {
	driven.EmbeddingService
	limiter *rate.Limiter
}

// WithEmbeddingRateLimit wraps svc; a non-positive limit returns svc unchanged
func WithEmbeddingRateLimit(svc driven.EmbeddingService, requestsPerSecond float64) driven.EmbeddingService {
	if svc == nil || requestsPerSecond <= 0 {
		return svc
	}
	return &RateLimitedEmbedding{EmbeddingService: svc, limiter: newLimiter(requestsPerSecond)}
}

func (r *RateLimitedEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %v", domain.ErrEmbeddingService, err)
	}
	return r.EmbeddingService.Embed(ctx, texts)
}

func (r *RateLimitedEmbedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %v", domain.ErrEmbeddingService, err)
	}
	return r.EmbeddingService.EmbedQuery(ctx, query)
}

// RateLimitedLLM throttles calls to a generation backend
type RateLimitedLLM struct {
	driven.LLMService
	limiter *rate.Limiter
}

// WithLLMRateLimit wraps svc; a non-positive limit returns svc unchanged
func WithLLMRateLimit(svc driven.LLMService, requestsPerSecond float64) driven.LLMService {
	if svc == nil || requestsPerSecond <= 0 {
		return svc
	}
	return &RateLimitedLLM{LLMService: svc, limiter: newLimiter(requestsPerSecond)}
}

func (r *RateLimitedLLM) Complete(ctx context.Context, req driven.CompletionRequest) (*driven.Completion, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %v", domain.ErrGeneration, err)
	}
	return r.LLMService.Complete(ctx, req)
}
