package embed

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// flakyEmbedder fails a fixed number of times before succeeding.
type flakyEmbedder struct {
	failures int
	calls    int
	err      error
}

func (f *flakyEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return []float32{1}, nil
}

func (f *flakyEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1}
	}
	return out, nil
}

func TestRetrying_RecoversFromTransientFailure(t *testing.T) {
	inner := &flakyEmbedder{failures: 2, err: fmt.Errorf("%w: connection refused", ErrBackend)}
	r := WithRetry(inner, WithMaxRetries(3), WithRetryInterval(time.Millisecond))

	vec, err := r.EmbedQuery(context.Background(), "q")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if len(vec) != 1 {
		t.Errorf("EmbedQuery() = %v", vec)
	}
	if inner.calls != 3 {
		t.Errorf("calls = %d, want 3", inner.calls)
	}
}

func TestRetrying_ExhaustsBudget(t *testing.T) {
	inner := &flakyEmbedder{failures: 100, err: fmt.Errorf("%w: connection refused", ErrBackend)}
	r := WithRetry(inner, WithMaxRetries(2), WithRetryInterval(time.Millisecond))

	_, err := r.EmbedQuery(context.Background(), "q")
	if !errors.Is(err, ErrBackend) {
		t.Fatalf("error = %v, want ErrBackend", err)
	}
	// Initial attempt plus two retries.
	if inner.calls != 3 {
		t.Errorf("calls = %d, want 3", inner.calls)
	}
}

func TestRetrying_DoesNotRetryValidation(t *testing.T) {
	inner := &flakyEmbedder{failures: 100, err: ErrEmptyInput}
	r := WithRetry(inner, WithMaxRetries(5), WithRetryInterval(time.Millisecond))

	_, err := r.EmbedQuery(context.Background(), "")
	if !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("error = %v, want ErrEmptyInput", err)
	}
	if inner.calls != 1 {
		t.Errorf("calls = %d, want 1 (no retries on validation error)", inner.calls)
	}
}

func TestRetrying_EmbedDocuments(t *testing.T) {
	inner := &flakyEmbedder{failures: 1, err: fmt.Errorf("%w: timeout", ErrBackend)}
	r := WithRetry(inner, WithMaxRetries(3), WithRetryInterval(time.Millisecond))

	vecs, err := r.EmbedDocuments(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("EmbedDocuments() error = %v", err)
	}
	if len(vecs) != 2 {
		t.Errorf("got %d vectors, want 2", len(vecs))
	}
}

func TestRetrying_RespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inner := &flakyEmbedder{failures: 100, err: fmt.Errorf("%w: down", ErrBackend)}
	r := WithRetry(inner, WithMaxRetries(10), WithRetryInterval(50*time.Millisecond))

	start := time.Now()
	_, err := r.EmbedQuery(ctx, "q")
	if err == nil {
		t.Fatal("expected error with canceled context")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("retry loop ignored context cancellation, took %v", elapsed)
	}
}
