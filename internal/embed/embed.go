// Package embed turns text into dense vectors through a pluggable backend.
//
// Two backends are provided: Service talks to the embedding microservice
// over its JSON API, and Ollama talks to a local Ollama server directly.
// WithRetry wraps any backend with bounded exponential backoff so transient
// network failures do not surface as request errors.
package embed

import (
	"context"
	"errors"
)

var (
	// ErrEmptyInput indicates an empty text or text batch was submitted.
	ErrEmptyInput = errors.New("empty embedding input")

	// ErrBackend indicates the embedding backend returned a failure.
	ErrBackend = errors.New("embedding backend error")
)

// Embedder converts text into vector representations.
type Embedder interface {
	// EmbedQuery embeds a single query string.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// EmbedDocuments embeds a batch of document chunks. The result has one
	// vector per input, in input order.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}
