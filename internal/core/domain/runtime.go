package domain

import "sync"

// Generator strategies
const (
	GeneratorGrounded   = "grounded"
	GeneratorExtractive = "extractive"
)

// RuntimeConfig tracks which backends are available at runtime.
// This is determined at startup and can be updated when AI services change.
// Thread-safe for concurrent access.
type RuntimeConfig struct {
	mu sync.RWMutex

	// Static (set at startup, read-only)
	IndexBackend string // "memory", "postgres" or "vespa"
	CacheBackend string // "none", "memory" or "redis"

	// Dynamic capability flags
	embeddingAvailable bool
	llmAvailable       bool
}

// NewRuntimeConfig creates a new RuntimeConfig with initial values
func NewRuntimeConfig(indexBackend, cacheBackend string) *RuntimeConfig {
	return &RuntimeConfig{
		IndexBackend: indexBackend,
		CacheBackend: cacheBackend,
	}
}

// EmbeddingAvailable returns whether an embedding service is configured
func (c *RuntimeConfig) EmbeddingAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.embeddingAvailable
}

// LLMAvailable returns whether a generation backend is configured
func (c *RuntimeConfig) LLMAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.llmAvailable
}

// SetEmbeddingAvailable updates the embedding availability flag
func (c *RuntimeConfig) SetEmbeddingAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.embeddingAvailable = available
}

// SetLLMAvailable updates the LLM availability flag
func (c *RuntimeConfig) SetLLMAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.llmAvailable = available
}

// EffectiveGenerator returns the answer strategy the pipeline will use
func (c *RuntimeConfig) EffectiveGenerator() string {
	if c.LLMAvailable() {
		return GeneratorGrounded
	}
	return GeneratorExtractive
}

// ServiceStatus describes the backends a running instance uses
type ServiceStatus struct {
	IndexBackend       string `json:"index_backend"`
	IndexHealthy       bool   `json:"index_healthy"`
	CacheBackend       string `json:"cache_backend"`
	EmbeddingModel     string `json:"embedding_model"`
	EmbeddingDimension int    `json:"embedding_dimensions"`
	Generator          string `json:"generator"`
	LLMModel           string `json:"llm_model,omitempty"`
}
