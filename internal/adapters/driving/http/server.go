package http

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-docqa/internal/core/ports/driving"
)

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	handler    http.Handler
	version    string
	mode       domain.ResponseMode

	// Services
	answerService driving.AnswerService
	statusService driving.StatusService
	verifier      driven.TokenVerifier
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string

	// ResponseMode is the default response shape; ?mode= overrides it per request
	ResponseMode domain.ResponseMode

	// WriteTimeout must exceed the pipeline's request timeout
	WriteTimeout time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:         "0.0.0.0",
		Port:         8000,
		Version:      "dev",
		ResponseMode: domain.ResponseModeExtended,
		WriteTimeout: 6 * time.Minute,
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	answerService driving.AnswerService,
	statusService driving.StatusService,
	verifier driven.TokenVerifier, // can be nil
) *Server {
	mode := cfg.ResponseMode
	if mode != domain.ResponseModeMinimal {
		mode = domain.ResponseModeExtended
	}

	s := &Server{
		router:        http.NewServeMux(),
		version:       cfg.Version,
		mode:          mode,
		answerService: answerService,
		statusService: statusService,
		verifier:      verifier,
	}
	s.setupRoutes()

	s.handler = NewRecoveryMiddleware().Handler(
		NewRequestIDMiddleware().Handler(
			NewLoggingMiddleware().Handler(s.router)))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.verifier)

	// Service endpoints (no auth)
	s.router.HandleFunc("GET /{$}", s.handleRoot)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	s.router.HandleFunc("GET /swagger/doc.json", s.handleSwagger)

	// Query endpoints (authenticated when credentials are configured)
	s.router.Handle("POST /hackrx/run",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleRun)))
	s.router.Handle("POST /api/v1/hackrx/run",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleRun)))
}

// Handler returns the root handler including middleware
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the HTTP server with graceful shutdown
func (s *Server) Start() error {
	// Channel to listen for OS signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-stop:
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
