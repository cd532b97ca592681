package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")

	// ErrInvalidProvider indicates an unknown AI provider was specified
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrServiceUnavailable indicates a backend could not be reached
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrFetch indicates the document could not be retrieved or decoded
	ErrFetch = errors.New("fetch failed")

	// ErrEmptyDocument indicates the document decoded to (almost) no text
	ErrEmptyDocument = errors.New("empty document")

	// ErrEmbeddingService indicates the embedding backend failed
	ErrEmbeddingService = errors.New("embedding service error")

	// ErrIndex indicates the vector index backend is unavailable or rejected an operation
	ErrIndex = errors.New("index error")

	// ErrGeneration indicates the generation backend failed
	ErrGeneration = errors.New("generation failed")

	// ErrTimeout indicates a stage or the overall request deadline was exceeded
	ErrTimeout = errors.New("timeout")
)
