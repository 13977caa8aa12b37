package embed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllama_EmbedQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("path = %q, want /api/embeddings", r.URL.Path)
		}

		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Model != "nomic-embed-text" {
			t.Errorf("model = %q", req.Model)
		}
		if req.Prompt != "hello" {
			t.Errorf("prompt = %q", req.Prompt)
		}

		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: []float32{1, 2}})
	}))
	defer srv.Close()

	vec, err := NewOllama(srv.URL, "nomic-embed-text").EmbedQuery(context.Background(), "hello")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if len(vec) != 2 {
		t.Errorf("EmbedQuery() = %v", vec)
	}
}

func TestOllama_EmbedDocuments_SequentialOrder(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaEmbedRequest
		json.NewDecoder(r.Body).Decode(&req)
		calls++
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: []float32{float32(len(req.Prompt))}})
	}))
	defer srv.Close()

	vecs, err := NewOllama(srv.URL, "m").EmbedDocuments(context.Background(), []string{"a", "bb", "ccc"})
	if err != nil {
		t.Fatalf("EmbedDocuments() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if vecs[0][0] != 1 || vecs[1][0] != 2 || vecs[2][0] != 3 {
		t.Errorf("vectors out of order: %v", vecs)
	}
}

func TestOllama_EmbedDocuments_FailsFast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewOllama(srv.URL, "m").EmbedDocuments(context.Background(), []string{"a", "b"})
	if !errors.Is(err, ErrBackend) {
		t.Errorf("error = %v, want ErrBackend", err)
	}
}

func TestOllama_EmbedQuery_EmptyEmbedding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaEmbedResponse{})
	}))
	defer srv.Close()

	_, err := NewOllama(srv.URL, "m").EmbedQuery(context.Background(), "q")
	if !errors.Is(err, ErrBackend) {
		t.Errorf("error = %v, want ErrBackend", err)
	}
}
