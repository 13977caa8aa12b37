package llm

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

const defaultGroqTimeout = 2 * time.Minute

// Groq generates completions through the Groq OpenAI-compatible
// chat completions API.
type Groq struct {
	baseURL    string
	apiKey     string
	params     Params
	httpClient *http.Client
}

// GroqOption configures a Groq generator.
type GroqOption func(*Groq)

// WithGroqHTTPClient replaces the default HTTP client.
func WithGroqHTTPClient(c *http.Client) GroqOption {
	return func(g *Groq) { g.httpClient = c }
}

// NewGroq creates a Generator against the chat completions endpoint under
// baseURL (e.g. https://api.groq.com/openai/v1). The API key comes from the
// caller, which resolves it through the secret provider.
func NewGroq(baseURL, apiKey string, params Params, opts ...GroqOption) *Groq {
	g := &Groq{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		params:     params,
		httpClient: &http.Client{Timeout: defaultGroqTimeout},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqRequest struct {
	Model       string        `json:"model"`
	Messages    []groqMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type groqResponse struct {
	Choices []struct {
		Message groqMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate sends the prompt as a single user message and returns the first
// choice's content.
func (g *Groq) Generate(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", ErrEmptyPrompt
	}

	payload, err := json.Marshal(groqRequest{
		Model:       g.params.Model,
		Messages:    []groqMessage{{Role: "user", Content: prompt}},
		Temperature: g.params.Temperature,
		MaxTokens:   g.params.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackend, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: groq returned %d: %s", ErrBackend, resp.StatusCode, detail)
	}

	var out groqResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", ErrBackend, err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrBackend, out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: response has no choices", ErrBackend)
	}

	return out.Choices[0].Message.Content, nil
}
