package embed

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultMaxRetries is the retry budget applied by WithRetry when none is
// given. Exhaustion surfaces the last backend error to the caller.
const DefaultMaxRetries = 3

// Retrying wraps an Embedder with bounded exponential backoff.
// Input validation errors are not retried.
type Retrying struct {
	inner      Embedder
	maxRetries uint64
	interval   time.Duration
}

// RetryOption configures a Retrying embedder.
type RetryOption func(*Retrying)

// WithMaxRetries sets the retry budget per call.
func WithMaxRetries(n uint64) RetryOption {
	return func(r *Retrying) { r.maxRetries = n }
}

// WithRetryInterval sets the initial backoff interval.
func WithRetryInterval(d time.Duration) RetryOption {
	return func(r *Retrying) { r.interval = d }
}

// WithRetry wraps inner so each call is retried on backend failure.
func WithRetry(inner Embedder, opts ...RetryOption) *Retrying {
	r := &Retrying{
		inner:      inner,
		maxRetries: DefaultMaxRetries,
		interval:   500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Retrying) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.interval
	return backoff.WithContext(backoff.WithMaxRetries(b, r.maxRetries), ctx)
}

// EmbedQuery embeds a single query string, retrying transient failures.
func (r *Retrying) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	var result []float32
	op := func() error {
		vec, err := r.inner.EmbedQuery(ctx, text)
		if err != nil {
			if errors.Is(err, ErrEmptyInput) {
				return backoff.Permanent(err)
			}
			return err
		}
		result = vec
		return nil
	}
	if err := backoff.Retry(op, r.policy(ctx)); err != nil {
		return nil, err
	}
	return result, nil
}

// EmbedDocuments embeds a batch of documents, retrying transient failures.
// The whole batch is retried as a unit.
func (r *Retrying) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	var result [][]float32
	op := func() error {
		vecs, err := r.inner.EmbedDocuments(ctx, texts)
		if err != nil {
			if errors.Is(err, ErrEmptyInput) {
				return backoff.Permanent(err)
			}
			return err
		}
		result = vecs
		return nil
	}
	if err := backoff.Retry(op, r.policy(ctx)); err != nil {
		return nil, err
	}
	return result, nil
}
