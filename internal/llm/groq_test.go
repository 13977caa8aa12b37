package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGroq_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}

		var req groqRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Model != "llama-3.1-8b-instant" {
			t.Errorf("model = %q", req.Model)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("messages = %+v", req.Messages)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "the answer"}},
			},
		})
	}))
	defer srv.Close()

	g := NewGroq(srv.URL, "test-key", Params{Model: "llama-3.1-8b-instant", MaxTokens: 2048})
	got, err := g.Generate(context.Background(), "question")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "the answer" {
		t.Errorf("Generate() = %q", got)
	}
}

func TestGroq_Generate_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"invalid api key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	g := NewGroq(srv.URL, "bad-key", Params{Model: "m"})
	_, err := g.Generate(context.Background(), "q")
	if !errors.Is(err, ErrBackend) {
		t.Errorf("error = %v, want ErrBackend", err)
	}
}

func TestGroq_Generate_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	g := NewGroq(srv.URL, "k", Params{Model: "m"})
	_, err := g.Generate(context.Background(), "q")
	if !errors.Is(err, ErrBackend) {
		t.Errorf("error = %v, want ErrBackend", err)
	}
}

func TestGroq_Generate_EmptyPrompt(t *testing.T) {
	g := NewGroq("http://unused", "k", Params{Model: "m"})
	_, err := g.Generate(context.Background(), "")
	if !errors.Is(err, ErrEmptyPrompt) {
		t.Errorf("error = %v, want ErrEmptyPrompt", err)
	}
}
