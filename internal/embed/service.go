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

const defaultServiceTimeout = 2 * time.Minute

// Service is an Embedder backed by the embedding microservice.
//
// Wire format:
//
//	POST /embed_query     {"text": "..."}        -> {"embedding": [...]}
//	POST /embed_documents {"texts": ["...", ...]}  -> {"embeddings": [[...], ...]}
//	GET  /status                                 -> {"status": "ok", ...}
type Service struct {
	baseURL    string
	httpClient *http.Client
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceHTTPClient replaces the default HTTP client.
func WithServiceHTTPClient(c *http.Client) ServiceOption {
	return func(s *Service) { s.httpClient = c }
}

// NewService creates a client for the embedding microservice at baseURL.
func NewService(baseURL string, opts ...ServiceOption) *Service {
	s := &Service{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultServiceTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type embedQueryRequest struct {
	Text string `json:"text"`
}

type embedQueryResponse struct {
	Embedding []float32 `json:"embedding"`
}

type embedDocumentsRequest struct {
	Texts []string `json:"texts"`
}

type embedDocumentsResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// EmbedQuery embeds a single query string.
func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}

	var resp embedQueryResponse
	if err := s.post(ctx, "/embed_query", embedQueryRequest{Text: text}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding in response", ErrBackend)
	}
	return resp.Embedding, nil
}

// EmbedDocuments embeds a batch of document chunks in one round trip.
func (s *Service) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}

	var resp embedDocumentsResponse
	if err := s.post(ctx, "/embed_documents", embedDocumentsRequest{Texts: texts}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrBackend, len(resp.Embeddings), len(texts))
	}
	return resp.Embeddings, nil
}

// Status checks the /status endpoint. A nil error means the service is up.
func (s *Service) Status(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/status", nil)
	if err != nil {
		return fmt.Errorf("creating status request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status endpoint returned %d", ErrBackend, resp.StatusCode)
	}
	return nil
}

func (s *Service) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s returned %d: %s", ErrBackend, path, resp.StatusCode, detail)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrBackend, err)
	}
	return nil
}
