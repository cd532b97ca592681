package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/swaggo/swag"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
)

// maxRequestBody bounds the JSON body of a query request
const maxRequestBody = 1 << 20

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// BannerResponse describes the service at the root path
// @Description Service banner
type BannerResponse struct {
	Service   string   `json:"service" example:"sercha-docqa"`
	Version   string   `json:"version" example:"1.0.0"`
	Endpoints []string `json:"endpoints"`
}

// ReadyResponse reports the components the pipeline runs with
// @Description Readiness and component status
type ReadyResponse struct {
	Status string `json:"status" example:"ready"`
	domain.ServiceStatus
}

// RunRequest is the body of a query request
// @Description Document URL and the questions to answer about it
type RunRequest struct {
	Documents string   `json:"documents" example:"https://example.com/policy.pdf"`
	Questions []string `json:"questions"`
}

// Service endpoints

// handleRoot godoc
// @Summary      Service banner
// @Description  Returns the service name, version and endpoints
// @Tags         Health
// @Produce      json
// @Success      200  {object}  BannerResponse
// @Router       / [get]
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, BannerResponse{
		Service:   "sercha-docqa",
		Version:   s.version,
		Endpoints: []string{"POST /hackrx/run", "POST /api/v1/hackrx/run", "GET /health", "GET /ready", "GET /version"},
	})
}

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Reports the index backend, cache, embedding model and generator in use.
// @Description  Not ready while no embedding service is configured.
// @Tags         Health
// @Produce      json
// @Success      200  {object}  ReadyResponse
// @Failure      503  {object}  ReadyResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.statusService == nil {
		writeJSON(w, http.StatusOK, StatusResponse{Status: "ready"})
		return
	}

	status := s.statusService.Status(r.Context())
	resp := ReadyResponse{Status: "ready", ServiceStatus: *status}
	code := http.StatusOK
	switch {
	case status.EmbeddingModel == "":
		resp.Status = "unavailable"
		code = http.StatusServiceUnavailable
	case !status.IndexHealthy:
		// Queries still succeed on the in-process index
		resp.Status = "degraded"
	}
	writeJSON(w, code, resp)
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

// handleSwagger serves the registered OpenAPI document
func (s *Server) handleSwagger(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		writeError(w, http.StatusNotFound, "api documentation not registered")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}

// Query endpoints

// handleRun godoc
// @Summary      Answer questions about a document
// @Description  Fetches the document, indexes it and answers every question from its content.
// @Description  Answers are returned in question order; a question that fails gets a placeholder answer.
// @Tags         Query
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        mode     query     string      false  "Response shape"  Enums(minimal, extended)
// @Param        request  body      RunRequest  true   "Document and questions"
// @Success      200      {object}  domain.QueryResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request"
// @Failure      401      {object}  ErrorResponse  "Missing or invalid token"
// @Failure      422      {object}  ErrorResponse  "Document has no usable text"
// @Failure      502      {object}  ErrorResponse  "Document could not be fetched"
// @Failure      503      {object}  ErrorResponse  "Embedding service unavailable"
// @Failure      504      {object}  ErrorResponse  "Request timed out"
// @Router       /hackrx/run [post]
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	mode := s.mode
	switch domain.ResponseMode(r.URL.Query().Get("mode")) {
	case domain.ResponseModeMinimal:
		mode = domain.ResponseModeMinimal
	case domain.ResponseModeExtended:
		mode = domain.ResponseModeExtended
	}

	var req RunRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.answerService.Answer(r.Context(), domain.QueryRequest{
		Documents: req.Documents,
		Questions: req.Questions,
	})
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result.Response(mode))
}

// statusForError maps a pipeline error to an HTTP status
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrTokenInvalid), errors.Is(err, domain.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrFetch):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrEmptyDocument):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrEmbeddingService), errors.Is(err, domain.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
