// Package embedapi exposes an embedding backend as the embedding
// microservice HTTP API.
//
// Routes:
//
//	GET  /status           service and model status
//	POST /embed_query      embed one query string
//	POST /embed_documents  embed a batch of documents
//
// The wire format matches what the embed.Service client consumes, so the
// main API can point at this process or at any drop-in replacement.
package embedapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/sovereigntyai/sovereign/internal/embed"
)

// maxTextLength is the per-text length limit in runes.
const maxTextLength = 5120

// ServerConfig contains configuration for creating the embedding server.
type ServerConfig struct {
	Logger   *slog.Logger
	Embedder embed.Embedder // Required
	Model    string         // Reported by GET /status
}

// Server is the embedding service HTTP server.
type Server struct {
	mux      *http.ServeMux
	embedder embed.Embedder
	model    string
	logger   *slog.Logger
}

// NewServer creates a server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Embedder == nil {
		return nil, errors.New("embedder is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		embedder: cfg.Embedder,
		model:    cfg.Model,
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.status)
	mux.HandleFunc("POST /embed_query", s.embedQuery)
	mux.HandleFunc("POST /embed_documents", s.embedDocuments)
	s.mux = mux

	return s, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

type statusResponse struct {
	Message string `json:"message"`
	Model   string `json:"model,omitempty"`
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, statusResponse{Message: "embedding service is running", Model: s.model})
}

type queryRequest struct {
	Text string `json:"text"`
}

type queryResponse struct {
	Embedding []float32 `json:"embedding"`
}

func (s *Server) embedQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if req.Text == "" {
		s.writeError(w, http.StatusUnprocessableEntity, "invalid_text", "text must not be empty")
		return
	}
	if n := utf8.RuneCountInString(req.Text); n > maxTextLength {
		s.writeError(w, http.StatusUnprocessableEntity, "invalid_text",
			"text exceeds "+strconv.Itoa(maxTextLength)+" characters")
		return
	}

	vec, err := s.embedder.EmbedQuery(r.Context(), req.Text)
	if err != nil {
		s.logger.Error("query embedding failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "embed_failed", "failed to embed text")
		return
	}

	s.writeJSON(w, http.StatusOK, queryResponse{Embedding: vec})
}

type documentsRequest struct {
	Texts []string `json:"texts"`
}

type documentsResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (s *Server) embedDocuments(w http.ResponseWriter, r *http.Request) {
	var req documentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if len(req.Texts) == 0 {
		s.writeError(w, http.StatusUnprocessableEntity, "invalid_texts", "texts must not be empty")
		return
	}
	for i, text := range req.Texts {
		if text == "" {
			s.writeError(w, http.StatusUnprocessableEntity, "invalid_texts",
				"texts["+strconv.Itoa(i)+"] must not be empty")
			return
		}
	}

	vecs, err := s.embedder.EmbedDocuments(r.Context(), req.Texts)
	if err != nil {
		s.logger.Error("document embedding failed", "count", len(req.Texts), "error", err)
		s.writeError(w, http.StatusInternalServerError, "embed_failed", "failed to embed texts")
		return
	}

	s.writeJSON(w, http.StatusOK, documentsResponse{Embeddings: vecs})
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		s.logger.Error("encoding JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.logger.Debug("writing response body", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, errorResponse{Error: code, Message: message})
}
