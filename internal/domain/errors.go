package domain

import (
	"errors"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrFileNotFound signals a missing file or directory given for ingestion.
	ErrFileNotFound = errors.New("file not found")
	// ErrForbidden signals a resource owned by another user.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthorized signals a missing or unknown caller identity.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidRequest signals a malformed or incomplete request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNoChunks signals that ingestion produced no chunks.
	ErrNoChunks = errors.New("no chunks produced")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")

	// ErrModelUnavailable signals that no language model is configured.
	ErrModelUnavailable = errors.New("LLM service not available")
	// ErrModelProviderError signals a language model provider failure.
	ErrModelProviderError = errors.New("LLM provider error")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)
