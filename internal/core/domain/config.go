package domain

import (
	"fmt"
	"time"
)

// PipelineConfig holds every tunable of the answering pipeline.
// It is passed to the orchestrator at construction; there is no global state.
type PipelineConfig struct {
	// Chunking
	ChunkSize        int `json:"chunk_size" yaml:"chunk_size"`
	ChunkOverlap     int `json:"chunk_overlap" yaml:"chunk_overlap"`
	BoundaryLookback int `json:"boundary_lookback" yaml:"boundary_lookback"`
	MinTailChars     int `json:"min_tail_chars" yaml:"min_tail_chars"`
	MaxChunks        int `json:"max_chunks" yaml:"max_chunks"` // 0 = unlimited

	// Fetching
	MinDocumentChars int `json:"min_document_chars" yaml:"min_document_chars"`

	// Embedding
	EmbedBatchSize int `json:"embed_batch_size" yaml:"embed_batch_size"`
	EmbedRetries   int `json:"embed_retries" yaml:"embed_retries"` // Total attempts

	// Retrieval
	TopK                int     `json:"top_k" yaml:"top_k"`
	SimilarityThreshold float64 `json:"similarity_threshold" yaml:"similarity_threshold"`

	// Generation
	ContextBudget int     `json:"context_budget" yaml:"context_budget"` // Characters of context
	MaxTokens     int     `json:"max_tokens" yaml:"max_tokens"`
	Temperature   float64 `json:"temperature" yaml:"temperature"`

	// Concurrency and deadlines
	MaxConcurrency  int           `json:"max_concurrency" yaml:"max_concurrency"`
	EmbedTimeout    time.Duration `json:"embed_timeout" yaml:"embed_timeout"`
	QueryTimeout    time.Duration `json:"query_timeout" yaml:"query_timeout"`
	GenerateTimeout time.Duration `json:"generate_timeout" yaml:"generate_timeout"`
	QuestionTimeout time.Duration `json:"question_timeout" yaml:"question_timeout"`
	RequestTimeout  time.Duration `json:"request_timeout" yaml:"request_timeout"`
}

// DefaultPipelineConfig returns sensible defaults
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		ChunkSize:           1000,
		ChunkOverlap:        200,
		BoundaryLookback:    100,
		MinTailChars:        50,
		MaxChunks:           0,
		MinDocumentChars:    20,
		EmbedBatchSize:      64,
		EmbedRetries:        3,
		TopK:                5,
		SimilarityThreshold: 0,
		ContextBudget:       6000,
		MaxTokens:           1000,
		Temperature:         0.1,
		MaxConcurrency:      4,
		EmbedTimeout:        30 * time.Second,
		QueryTimeout:        10 * time.Second,
		GenerateTimeout:     60 * time.Second,
		QuestionTimeout:     90 * time.Second,
		RequestTimeout:      5 * time.Minute,
	}
}

// Validate checks the configuration is internally consistent
func (c PipelineConfig) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive", ErrInvalidInput)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap must be in [0, chunk_size)", ErrInvalidInput)
	}
	if c.BoundaryLookback < 0 {
		return fmt.Errorf("%w: boundary_lookback must not be negative", ErrInvalidInput)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive", ErrInvalidInput)
	}
	if c.MaxConcurrency <= 0 {
		return fmt.Errorf("%w: max_concurrency must be positive", ErrInvalidInput)
	}
	if c.EmbedRetries <= 0 {
		return fmt.Errorf("%w: embed_retries must be positive", ErrInvalidInput)
	}
	if c.ContextBudget <= 0 {
		return fmt.Errorf("%w: context_budget must be positive", ErrInvalidInput)
	}
	timeouts := []struct {
		name string
		d    time.Duration
	}{
		{"embed_timeout", c.EmbedTimeout},
		{"query_timeout", c.QueryTimeout},
		{"generate_timeout", c.GenerateTimeout},
		{"question_timeout", c.QuestionTimeout},
		{"request_timeout", c.RequestTimeout},
	}
	for _, t := range timeouts {
		if t.d <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalidInput, t.name)
		}
	}
	return nil
}
