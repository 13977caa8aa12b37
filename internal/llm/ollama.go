package llm

import (
	"bufio"
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

// Ollama generates completions through a local Ollama server.
type Ollama struct {
	host       string
	params     Params
	httpClient *http.Client
}

// OllamaOption configures an Ollama generator.
type OllamaOption func(*Ollama)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) OllamaOption {
	return func(o *Ollama) { o.httpClient = c }
}

// NewOllama creates a Generator that calls {host}/api/generate.
func NewOllama(host string, params Params, opts ...OllamaOption) *Ollama {
	o := &Ollama{
		host:       strings.TrimSuffix(host, "/"),
		params:     params,
		httpClient: &http.Client{Timeout: defaultOllamaTimeout},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Options ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float32 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaGenerateChunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate sends the prompt and concatenates the streamed response.
// Ollama returns one JSON object per line; the full completion is the
// concatenation of every chunk's response field.
func (o *Ollama) Generate(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", ErrEmptyPrompt
	}

	payload, err := json.Marshal(ollamaGenerateRequest{
		Model:  o.params.Model,
		Prompt: prompt,
		Options: ollamaOptions{
			Temperature: o.params.Temperature,
			NumPredict:  o.params.MaxTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.host+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackend, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: ollama returned %d: %s", ErrBackend, resp.StatusCode, detail)
	}

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var chunk ollamaGenerateChunk
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			return "", fmt.Errorf("%w: parsing response chunk: %v", ErrBackend, err)
		}
		full.WriteString(chunk.Response)
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("%w: reading response stream: %v", ErrBackend, err)
	}

	return full.String(), nil
}
