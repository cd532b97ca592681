package runtime

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driving"
)

// Verify interface compliance
var _ driving.StatusService = (*Services)(nil)

// Services holds the backends the answering pipeline runs against.
// The LLM and cache may be nil; the pipeline then answers extractively
// and rebuilds every index. Thread-safe for concurrent access.
type Services struct {
	mu sync.RWMutex

	// Config tracks capability flags
	config *domain.RuntimeConfig

	embeddingService driven.EmbeddingService
	llmService       driven.LLMService
	indexProvider    driven.VectorIndexProvider
	indexCache       driven.IndexCache
	lock             driven.DistributedLock
}

// NewServices creates a new Services registry
func NewServices(config *domain.RuntimeConfig) *Services {
	if config == nil {
		config = domain.NewRuntimeConfig("memory", "none")
	}
	return &Services{
		config: config,
	}
}

// Config returns the runtime configuration
func (s *Services) Config() *domain.RuntimeConfig {
	return s.config
}

// EmbeddingService returns the current embedding service (may be nil)
func (s *Services) EmbeddingService() driven.EmbeddingService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.embeddingService
}

// LLMService returns the current LLM service (may be nil)
func (s *Services) LLMService() driven.LLMService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.llmService
}

// IndexProvider returns the configured remote index provider (may be nil)
func (s *Services) IndexProvider() driven.VectorIndexProvider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexProvider
}

// IndexCache returns the cross-request snapshot cache (may be nil)
func (s *Services) IndexCache() driven.IndexCache {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexCache
}

// Lock returns the build lock shared between replicas (may be nil)
func (s *Services) Lock() driven.DistributedLock {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lock
}

// SetEmbeddingService updates the embedding service.
// Closes the old service if present. Updates config flags.
func (s *Services) SetEmbeddingService(svc driven.EmbeddingService) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.embeddingService != nil && s.embeddingService != svc {
		_ = s.embeddingService.Close()
	}

	s.embeddingService = svc
	s.config.SetEmbeddingAvailable(svc != nil)
}

// SetLLMService updates the LLM service.
// Closes the old service if present. Updates config flags.
func (s *Services) SetLLMService(svc driven.LLMService) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.llmService != nil && s.llmService != svc {
		_ = s.llmService.Close()
	}

	s.llmService = svc
	s.config.SetLLMAvailable(svc != nil)
}

// SetIndexProvider sets the remote index provider
func (s *Services) SetIndexProvider(p driven.VectorIndexProvider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexProvider = p
}

// SetIndexCache sets the snapshot cache
func (s *Services) SetIndexCache(c driven.IndexCache) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexCache = c
}

// SetLock sets the build lock
func (s *Services) SetLock(l driven.DistributedLock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lock = l
}

// ValidateAndSetEmbedding validates connectivity before setting embedding service
func (s *Services) ValidateAndSetEmbedding(ctx context.Context, svc driven.EmbeddingService) error {
	if svc == nil {
		s.SetEmbeddingService(nil)
		return nil
	}

	if err := svc.HealthCheck(ctx); err != nil {
		_ = svc.Close()
		return err
	}

	s.SetEmbeddingService(svc)
	return nil
}

// ValidateAndSetLLM validates connectivity before setting LLM service
func (s *Services) ValidateAndSetLLM(ctx context.Context, svc driven.LLMService) error {
	if svc == nil {
		s.SetLLMService(nil)
		return nil
	}

	if err := svc.Ping(ctx); err != nil {
		_ = svc.Close()
		return err
	}

	s.SetLLMService(svc)
	return nil
}

// Status reports the backends currently in use.
// The index is reported healthy when no remote backend is configured,
// since the in-process fallback is always available.
func (s *Services) Status(ctx context.Context) *domain.ServiceStatus {
	s.mu.RLock()
	embedding := s.embeddingService
	llm := s.llmService
	provider := s.indexProvider
	cache := s.indexCache
	s.mu.RUnlock()

	status := &domain.ServiceStatus{
		IndexBackend: "memory",
		IndexHealthy: true,
		CacheBackend: "none",
		Generator:    s.config.EffectiveGenerator(),
	}
	if provider != nil {
		status.IndexBackend = provider.Name()
		status.IndexHealthy = provider.HealthCheck(ctx) == nil
	}
	if cache != nil {
		status.CacheBackend = cache.Name()
	}
	if embedding != nil {
		status.EmbeddingModel = embedding.Model()
		status.EmbeddingDimension = embedding.Dimensions()
	}
	if llm != nil {
		status.LLMModel = llm.Model()
	}
	return status
}

// Close shuts down the AI services
func (s *Services) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.embeddingService != nil {
		_ = s.embeddingService.Close()
		s.embeddingService = nil
	}
	if s.llmService != nil {
		_ = s.llmService.Close()
		s.llmService = nil
	}

	s.config.SetEmbeddingAvailable(false)
	s.config.SetLLMAvailable(false)

	return nil
}
