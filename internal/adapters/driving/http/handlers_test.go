package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/swaggo/swag"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
)

// Mock services for testing

type mockAnswerService struct {
	answerFn func(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error)
	requests []domain.QueryRequest
}

func (m *mockAnswerService) Answer(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	m.requests = append(m.requests, req)
	if m.answerFn != nil {
		return m.answerFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

type mockStatusService struct {
	status domain.ServiceStatus
}

func (m *mockStatusService) Status(ctx context.Context) *domain.ServiceStatus {
	s := m.status
	return &s
}

type mockVerifier struct {
	enabled  bool
	verifyFn func(token string) (*domain.AuthContext, error)
}

func (m *mockVerifier) Verify(token string) (*domain.AuthContext, error) {
	if m.verifyFn != nil {
		return m.verifyFn(token)
	}
	return nil, domain.ErrUnauthorized
}

func (m *mockVerifier) Enabled() bool {
	return m.enabled
}

// graceResult is a two-answer result as produced by the pipeline
func graceResult(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	return &domain.QueryResult{
		RequestID: "req-1",
		Answers: []*domain.Answer{
			{Question: req.Questions[0], Text: "30 days", Confidence: 0.8, SourceChunks: []*domain.Chunk{{SequenceIndex: 0, Page: 1}}},
			{Question: req.Questions[1], Text: "48 months", Confidence: 0.7, SourceChunks: []*domain.Chunk{{SequenceIndex: 1, Page: 1}, {SequenceIndex: 2, Page: 2}}},
		},
		ProcessingTime: 2 * time.Second,
	}, nil
}

func newTestServer(answers *mockAnswerService, verifier *mockVerifier) *Server {
	cfg := DefaultConfig()
	cfg.Version = "test"
	status := &mockStatusService{status: domain.ServiceStatus{
		IndexBackend:       "memory",
		IndexHealthy:       true,
		CacheBackend:       "none",
		EmbeddingModel:     "mock-embedding-model",
		EmbeddingDimension: 384,
		Generator:          domain.GeneratorExtractive,
	}}
	if verifier == nil {
		return NewServer(cfg, answers, status, nil)
	}
	return NewServer(cfg, answers, status, verifier)
}

func runRequest(t *testing.T, s *Server, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		t.Fatalf("failed to encode body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

var graceBody = RunRequest{
	Documents: "https://example.com/policy.pdf",
	Questions: []string{"What is the grace period?", "What is the PED waiting period?"},
}

func TestHandleRun_Extended(t *testing.T) {
	answers := &mockAnswerService{answerFn: graceResult}
	s := newTestServer(answers, nil)

	rec := runRequest(t, s, "/hackrx/run", graceBody, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp domain.QueryResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Answers) != 2 || resp.Answers[0] != "30 days" || resp.Answers[1] != "48 months" {
		t.Errorf("unexpected answers %v", resp.Answers)
	}
	if len(resp.ConfidenceScores) != 2 || resp.ConfidenceScores[1] != 0.7 {
		t.Errorf("unexpected confidence scores %v", resp.ConfidenceScores)
	}
	if resp.Sources[1] != "page 1 (chunk 1), page 2 (chunk 2)" {
		t.Errorf("unexpected sources %q", resp.Sources[1])
	}
	if resp.ProcessingTime == nil || *resp.ProcessingTime != 2 {
		t.Errorf("unexpected processing time %v", resp.ProcessingTime)
	}

	if len(answers.requests) != 1 || answers.requests[0].Documents != graceBody.Documents {
		t.Errorf("unexpected forwarded request %+v", answers.requests)
	}
}

func TestHandleRun_MinimalMode(t *testing.T) {
	s := newTestServer(&mockAnswerService{answerFn: graceResult}, nil)

	rec := runRequest(t, s, "/api/v1/hackrx/run?mode=minimal", graceBody, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(rec.Body).Decode(&raw); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(raw) != 1 {
		t.Errorf("expected only answers in minimal mode, got keys %v", raw)
	}
	if _, ok := raw["answers"]; !ok {
		t.Error("expected answers key")
	}
}

func TestHandleRun_DefaultModeFromConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ResponseMode = domain.ResponseModeMinimal
	s := NewServer(cfg, &mockAnswerService{answerFn: graceResult}, nil, nil)

	rec := runRequest(t, s, "/hackrx/run", graceBody, nil)
	var raw map[string]json.RawMessage
	_ = json.NewDecoder(rec.Body).Decode(&raw)
	if _, ok := raw["confidence_scores"]; ok {
		t.Error("expected minimal response by default")
	}

	rec = runRequest(t, s, "/hackrx/run?mode=extended", graceBody, nil)
	raw = nil
	_ = json.NewDecoder(rec.Body).Decode(&raw)
	if _, ok := raw["confidence_scores"]; !ok {
		t.Error("expected ?mode=extended to override the default")
	}
}

func TestHandleRun_InvalidBody(t *testing.T) {
	answers := &mockAnswerService{answerFn: graceResult}
	s := newTestServer(answers, nil)

	req := httptest.NewRequest(http.MethodPost, "/hackrx/run", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if len(answers.requests) != 0 {
		t.Error("expected the pipeline not to run")
	}
}

func TestHandleRun_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", fmt.Errorf("%w: at least one question is required", domain.ErrInvalidInput), http.StatusBadRequest},
		{"fetch", fmt.Errorf("%w: connection refused", domain.ErrFetch), http.StatusBadGateway},
		{"empty document", domain.ErrEmptyDocument, http.StatusUnprocessableEntity},
		{"embedding", fmt.Errorf("%w: upstream 500", domain.ErrEmbeddingService), http.StatusServiceUnavailable},
		{"timeout", fmt.Errorf("%w: request exceeded 5m0s", domain.ErrTimeout), http.StatusGatewayTimeout},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&mockAnswerService{answerFn: func(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
				return nil, tt.err
			}}, nil)

			rec := runRequest(t, s, "/hackrx/run", graceBody, nil)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}

			var resp ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode error: %v", err)
			}
			if resp.Error != tt.err.Error() {
				t.Errorf("expected error %q, got %q", tt.err.Error(), resp.Error)
			}
		})
	}
}

func TestHandleRun_MethodNotAllowed(t *testing.T) {
	s := newTestServer(&mockAnswerService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/hackrx/run", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestHandleRun_RequiresToken(t *testing.T) {
	verifier := &mockVerifier{
		enabled: true,
		verifyFn: func(token string) (*domain.AuthContext, error) {
			if token == "good" {
				return &domain.AuthContext{Subject: "api", Method: "api_token"}, nil
			}
			return nil, domain.ErrUnauthorized
		},
	}
	s := newTestServer(&mockAnswerService{answerFn: graceResult}, verifier)

	if rec := runRequest(t, s, "/hackrx/run", graceBody, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}
	if rec := runRequest(t, s, "/hackrx/run", graceBody, map[string]string{"Authorization": "Bearer bad"}); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with bad token, got %d", rec.Code)
	}
	if rec := runRequest(t, s, "/hackrx/run", graceBody, map[string]string{"Authorization": "Bearer good"}); rec.Code != http.StatusOK {
		t.Errorf("expected 200 with good token, got %d", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(&mockAnswerService{}, &mockVerifier{enabled: true})

	tests := []struct {
		path string
		want string
	}{
		{"/health", `"status":"ok"`},
		{"/version", `"version":"test"`},
		{"/", `"service":"sercha-docqa"`},
		{"/ready", `"embedding_model":"mock-embedding-model"`},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			if !bytes.Contains(rec.Body.Bytes(), []byte(tt.want)) {
				t.Errorf("expected body to contain %s, got %s", tt.want, rec.Body.String())
			}
		})
	}
}

func TestHandleReady_NoEmbedding(t *testing.T) {
	cfg := DefaultConfig()
	s := NewServer(cfg, &mockAnswerService{}, &mockStatusService{status: domain.ServiceStatus{IndexBackend: "memory", IndexHealthy: true}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestHandleReady_DegradedIndex(t *testing.T) {
	s := NewServer(DefaultConfig(), &mockAnswerService{}, &mockStatusService{status: domain.ServiceStatus{
		IndexBackend:   "vespa",
		IndexHealthy:   false,
		EmbeddingModel: "m",
	}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var resp ReadyResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if rec.Code != http.StatusOK || resp.Status != "degraded" || resp.IndexBackend != "vespa" {
		t.Errorf("unexpected readiness %d %+v", rec.Code, resp)
	}
}

func TestHandleSwagger(t *testing.T) {
	s := newTestServer(&mockAnswerService{}, nil)

	get := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		return rec
	}

	if rec := get(); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 before registration, got %d", rec.Code)
	}

	swag.Register(swag.Name, &swag.Spec{
		Title:            "test",
		InfoInstanceName: swag.Name,
		SwaggerTemplate:  `{"info":{"title":"{{.Title}}"}}`,
	})

	rec := get()
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after registration, got %d", rec.Code)
	}
	if rec.Body.String() != `{"info":{"title":"test"}}` {
		t.Errorf("unexpected doc %s", rec.Body.String())
	}
}

func TestStatusForError(t *testing.T) {
	if got := statusForError(fmt.Errorf("wrapped: %w", domain.ErrTokenExpired)); got != http.StatusUnauthorized {
		t.Errorf("expected 401 for expired token, got %d", got)
	}
	if got := statusForError(domain.ErrServiceUnavailable); got != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", got)
	}
}
