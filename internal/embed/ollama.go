package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultOllamaTimeout = 5 * time.Minute

// Ollama is an Embedder backed by a local Ollama server.
type Ollama struct {
	host       string
	model      string
	httpClient *http.Client
}

// OllamaOption configures an Ollama client.
type OllamaOption func(*Ollama)

// WithOllamaHTTPClient replaces the default HTTP client.
func WithOllamaHTTPClient(c *http.Client) OllamaOption {
	return func(o *Ollama) { o.httpClient = c }
}

// NewOllama creates an Embedder that calls {host}/api/embeddings with the
// given model.
func NewOllama(host, model string, opts ...OllamaOption) *Ollama {
	o := &Ollama{
		host:       strings.TrimSuffix(host, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: defaultOllamaTimeout},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// EmbedQuery embeds a single query string.
func (o *Ollama) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}
	return o.embed(ctx, text)
}

// EmbedDocuments embeds a batch of document chunks. The Ollama embeddings
// endpoint takes one prompt per call, so the batch is embedded sequentially.
func (o *Ollama) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := o.embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding document %d: %w", i, err)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (o *Ollama) embed(ctx context.Context, text string) ([]float32, error) {
	payload, err := json.Marshal(ollamaEmbedRequest{Model: o.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.host+"/api/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: ollama returned %d: %s", ErrBackend, resp.StatusCode, detail)
	}

	var out ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrBackend, err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding in response", ErrBackend)
	}
	return out.Embedding, nil
}
