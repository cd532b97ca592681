package ai

import (
	"errors"
	"testing"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven"
)

func TestNewFactory(t *testing.T) {
	factory := NewFactory()
	if factory == nil {
		t.Fatal("expected non-nil factory")
	}
}

func TestFactory_CreateEmbeddingService_NilSettings(t *testing.T) {
	svc, err := NewFactory().CreateEmbeddingService(nil)
	if err != nil {
		t.Errorf("expected no error for nil settings, got %v", err)
	}
	if svc != nil {
		t.Error("expected nil service for nil settings")
	}
}

func TestFactory_CreateEmbeddingService_NotConfigured(t *testing.T) {
	settings := &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI}

	svc, err := NewFactory().CreateEmbeddingService(settings)
	if err != nil {
		t.Errorf("expected no error for unconfigured settings, got %v", err)
	}
	if svc != nil {
		t.Error("expected nil service when the API key is missing")
	}
}

func TestFactory_CreateEmbeddingService_Providers(t *testing.T) {
	tests := []struct {
		name     string
		settings domain.EmbeddingSettings
		model    string
		dims     int
	}{
		{"openai", domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI, APIKey: "sk-test"}, "text-embedding-3-small", 1536},
		{"openai reduced", domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI, APIKey: "sk-test", Model: "text-embedding-3-large", Dimensions: 256}, "text-embedding-3-large", 256},
		{"ollama", domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: "http://localhost:11434"}, "nomic-embed-text", 768},
		{"local", domain.EmbeddingSettings{Provider: domain.AIProviderLocal}, "local-hash", DefaultLocalDimensions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewFactory().CreateEmbeddingService(&tt.settings)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if svc.Model() != tt.model {
				t.Errorf("expected model %s, got %s", tt.model, svc.Model())
			}
			if svc.Dimensions() != tt.dims {
				t.Errorf("expected %d dimensions, got %d", tt.dims, svc.Dimensions())
			}
		})
	}
}

func TestFactory_CreateEmbeddingService_RateLimited(t *testing.T) {
	settings := &domain.EmbeddingSettings{Provider: domain.AIProviderLocal, RateLimit: 5}

	svc, err := NewFactory().CreateEmbeddingService(settings)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := svc.(*RateLimitedEmbedding); !ok {
		t.Errorf("expected rate-limited wrapper, got %T", svc)
	}
}

func TestFactory_CreateEmbeddingService_InvalidProvider(t *testing.T) {
	settings := &domain.EmbeddingSettings{Provider: "voyage"}

	_, err := NewFactory().CreateEmbeddingService(settings)
	if !errors.Is(err, domain.ErrInvalidProvider) {
		t.Errorf("expected ErrInvalidProvider, got %v", err)
	}
}

func TestFactory_CreateLLMService_NilSettings(t *testing.T) {
	svc, err := NewFactory().CreateLLMService(nil)
	if err != nil {
		t.Errorf("expected no error for nil settings, got %v", err)
	}
	if svc != nil {
		t.Error("expected nil service for nil settings")
	}
}

func TestFactory_CreateLLMService_LocalIsNotAnLLM(t *testing.T) {
	svc, err := NewFactory().CreateLLMService(&domain.LLMSettings{Provider: domain.AIProviderLocal})
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if svc != nil {
		t.Error("expected no LLM for the local provider")
	}
}

func TestFactory_CreateLLMService_OpenAI(t *testing.T) {
	svc, err := NewFactory().CreateLLMService(&domain.LLMSettings{
		Provider: domain.AIProviderOpenAI,
		APIKey:   "sk-test",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.Model() != "gpt-4o-mini" {
		t.Errorf("expected default model, got %s", svc.Model())
	}
}

func TestFactory_CreateLLMService_Ollama(t *testing.T) {
	svc, err := NewFactory().CreateLLMService(&domain.LLMSettings{
		Provider: domain.AIProviderOllama,
		Model:    "llama3.1:8b",
		BaseURL:  "http://localhost:11434",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.Model() != "llama3.1:8b" {
		t.Errorf("expected llama3.1:8b, got %s", svc.Model())
	}
}

func TestFactory_CreateLLMService_InvalidProvider(t *testing.T) {
	_, err := NewFactory().CreateLLMService(&domain.LLMSettings{Provider: "anthropic", APIKey: "x"})
	if !errors.Is(err, domain.ErrInvalidProvider) {
		t.Errorf("expected ErrInvalidProvider, got %v", err)
	}
}

func TestFactory_ImplementsInterface(t *testing.T) {
	var _ driven.AIServiceFactory = NewFactory()
}
