// Package llm provides text generation through a pluggable backend.
//
// Ollama streams completions from a local Ollama server; Groq calls the
// hosted OpenAI-compatible chat completions API. Both implement Generator,
// so the answer pipeline never depends on a concrete backend.
package llm

import (
	"context"
	"errors"
)

var (
	// ErrEmptyPrompt indicates an empty prompt was submitted.
	ErrEmptyPrompt = errors.New("empty prompt")

	// ErrBackend indicates the generation backend returned a failure.
	ErrBackend = errors.New("generation backend error")
)

// Params holds per-backend generation parameters.
type Params struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// Generator produces a completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
