package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven/mocks"
)

func TestNewServices(t *testing.T) {
	s := NewServices(domain.NewRuntimeConfig("vespa", "redis"))

	if s.Config().IndexBackend != "vespa" {
		t.Errorf("expected vespa, got %s", s.Config().IndexBackend)
	}
	if s.EmbeddingService() != nil || s.LLMService() != nil {
		t.Error("expected no AI services initially")
	}
	if s.IndexProvider() != nil || s.IndexCache() != nil || s.Lock() != nil {
		t.Error("expected no optional backends initially")
	}

	if NewServices(nil).Config() == nil {
		t.Error("expected a default runtime config")
	}
}

func TestServices_EmbeddingService(t *testing.T) {
	s := NewServices(nil)
	svc := mocks.NewMockEmbeddingService()

	s.SetEmbeddingService(svc)
	if s.EmbeddingService() != svc {
		t.Error("expected embedding service to be set")
	}
	if !s.Config().EmbeddingAvailable() {
		t.Error("expected embedding to be available")
	}

	s.SetEmbeddingService(nil)
	if s.Config().EmbeddingAvailable() {
		t.Error("expected embedding to be unavailable after clearing")
	}
}

func TestServices_LLMServiceSelectsGenerator(t *testing.T) {
	s := NewServices(nil)

	if s.Config().EffectiveGenerator() != domain.GeneratorExtractive {
		t.Error("expected extractive generator without an LLM")
	}

	s.SetLLMService(mocks.NewMockLLMService("ok"))
	if s.Config().EffectiveGenerator() != domain.GeneratorGrounded {
		t.Error("expected grounded generator with an LLM")
	}
}

func TestServices_ValidateAndSetLLM(t *testing.T) {
	s := NewServices(nil)
	ctx := context.Background()

	failing := mocks.NewMockLLMService("ok")
	failing.PingErr = errors.New("connection refused")
	if err := s.ValidateAndSetLLM(ctx, failing); err == nil {
		t.Fatal("expected ping failure to be returned")
	}
	if s.LLMService() != nil {
		t.Error("expected unreachable LLM not to be set")
	}

	healthy := mocks.NewMockLLMService("ok")
	if err := s.ValidateAndSetLLM(ctx, healthy); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.LLMService() != healthy {
		t.Error("expected healthy LLM to be set")
	}

	if err := s.ValidateAndSetLLM(ctx, nil); err != nil || s.LLMService() != nil {
		t.Error("expected nil to clear the LLM")
	}
}

func TestServices_ValidateAndSetEmbedding(t *testing.T) {
	s := NewServices(nil)
	svc := mocks.NewMockEmbeddingService()

	if err := s.ValidateAndSetEmbedding(context.Background(), svc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.EmbeddingService() != svc {
		t.Error("expected embedding service to be set")
	}
}

func TestServices_Status(t *testing.T) {
	s := NewServices(nil)
	ctx := context.Background()

	status := s.Status(ctx)
	if status.IndexBackend != "memory" || !status.IndexHealthy || status.CacheBackend != "none" {
		t.Errorf("unexpected default status %+v", status)
	}
	if status.Generator != domain.GeneratorExtractive {
		t.Errorf("expected extractive generator, got %s", status.Generator)
	}

	provider := mocks.NewMockIndexProvider()
	s.SetIndexProvider(provider)
	embedder := mocks.NewMockEmbeddingService()
	embedder.SetModel("text-embedding-3-small")
	embedder.SetDimensions(1536)
	s.SetEmbeddingService(embedder)
	s.SetLLMService(mocks.NewMockLLMService("ok"))

	status = s.Status(ctx)
	if status.IndexBackend != "mock-remote" || !status.IndexHealthy {
		t.Errorf("unexpected index status %+v", status)
	}
	if status.EmbeddingModel != "text-embedding-3-small" || status.EmbeddingDimension != 1536 || status.LLMModel != "mock-llm" {
		t.Errorf("unexpected AI status %+v", status)
	}

	provider.OpenErr = domain.ErrIndex
	if s.Status(ctx).IndexHealthy {
		t.Error("expected unhealthy index when the backend fails")
	}
}

func TestServices_Close(t *testing.T) {
	s := NewServices(nil)
	s.SetEmbeddingService(mocks.NewMockEmbeddingService())
	s.SetLLMService(mocks.NewMockLLMService("ok"))

	if err := s.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.EmbeddingService() != nil || s.LLMService() != nil {
		t.Error("expected services to be cleared")
	}
	if s.Config().EmbeddingAvailable() || s.Config().LLMAvailable() {
		t.Error("expected capability flags to be cleared")
	}
}
