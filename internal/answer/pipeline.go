// Package answer implements retrieval-augmented question answering: embed
// the question, retrieve the most similar chunks, and generate an answer
// grounded in them.
package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/sovereigntyai/sovereign/internal/knowledge"
	"github.com/sovereigntyai/sovereign/internal/lang"
	"github.com/sovereigntyai/sovereign/internal/llm"
)

var (
	// ErrEmptyQuestion indicates a blank question.
	ErrEmptyQuestion = errors.New("empty question")

	// ErrQuestionTooLong indicates the question exceeds the length limit.
	ErrQuestionTooLong = errors.New("question too long")

	// ErrRetrieval indicates the similarity search failed.
	ErrRetrieval = errors.New("retrieval failed")

	// ErrGeneration indicates the generation backend failed and degraded
	// answers are disabled.
	ErrGeneration = errors.New("generation failed")

	// ErrEmptyFeedback indicates a blank feedback value.
	ErrEmptyFeedback = errors.New("empty feedback value")
)

// promptTemplate grounds the generator in the retrieved context.
const promptTemplate = `Answer the question based only on the following context.
If the context does not contain the information needed to answer, say that the available context is insufficient.
Be precise and answer directly, without preamble.

Context:
%s

Question: %s

Answer:`

// searcher is the slice of the knowledge store the pipeline reads from.
type searcher interface {
	Search(ctx context.Context, query string, k int, threshold float32) ([]knowledge.Result, error)
}

// Options parameterizes a Pipeline.
type Options struct {
	// TopK is the default number of chunks to retrieve.
	TopK int

	// ScoreThreshold is the default minimum similarity for retrieved chunks.
	ScoreThreshold float32

	// MaxQuestionLength is the question length limit in runes.
	MaxQuestionLength int

	// DegradeOnError turns generation failures into textual answers instead
	// of request errors.
	DegradeOnError bool
}

// Response is the outcome of one question.
type Response struct {
	Answer     string `json:"answer"`
	FeedbackID string `json:"feedback_id"`
}

// FeedbackRecord echoes an accepted feedback submission.
type FeedbackRecord struct {
	FeedbackID string `json:"feedback_id"`
	Value      string `json:"value"`
}

// Pipeline answers questions against the knowledge store.
type Pipeline struct {
	store     searcher
	generator llm.Generator
	opts      Options
	logger    *slog.Logger
}

// New creates a Pipeline.
func New(store searcher, generator llm.Generator, opts Options, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		store:     store,
		generator: generator,
		opts:      opts,
		logger:    logger,
	}
}

// Answer runs the full question pipeline. k and threshold override the
// configured defaults when positive; pass k <= 0 and threshold < 0 to use
// the defaults. Every response carries a fresh feedback id, including
// degraded ones.
func (p *Pipeline) Answer(ctx context.Context, question string, k int, threshold float32) (Response, error) {
	if strings.TrimSpace(question) == "" {
		return Response{}, ErrEmptyQuestion
	}
	if n := utf8.RuneCountInString(question); n > p.opts.MaxQuestionLength {
		return Response{}, fmt.Errorf("%w: %d runes, limit %d", ErrQuestionTooLong, n, p.opts.MaxQuestionLength)
	}

	if k <= 0 {
		k = p.opts.TopK
	}
	if threshold < 0 {
		threshold = p.opts.ScoreThreshold
	}

	// Question language is recorded for operators but never changes the
	// pipeline's behavior.
	p.logger.Debug("question received",
		"language", lang.Detect(question),
		"top_k", k,
		"score_threshold", threshold,
	)

	results, err := p.store.Search(ctx, question, k, threshold)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}

	contents := make([]string, len(results))
	for i, r := range results {
		contents[i] = r.Content
	}
	prompt := fmt.Sprintf(promptTemplate, strings.Join(contents, "\n\n"), question)

	answer, err := p.generator.Generate(ctx, prompt)
	if err != nil {
		if !p.opts.DegradeOnError {
			return Response{}, fmt.Errorf("%w: %v", ErrGeneration, err)
		}
		p.logger.Error("generation failed, degrading to error text", "error", err)
		answer = err.Error()
	}

	resp := Response{
		Answer:     answer,
		FeedbackID: uuid.NewString(),
	}
	p.logger.Info("question answered",
		"feedback_id", resp.FeedbackID,
		"retrieved", len(results),
	)
	return resp, nil
}

// Feedback records a feedback submission for a previously returned
// feedback id and echoes it back. Values are free-form; storage is limited
// to the structured log.
func (p *Pipeline) Feedback(ctx context.Context, feedbackID, value string) (FeedbackRecord, error) {
	_ = ctx

	if strings.TrimSpace(value) == "" {
		return FeedbackRecord{}, ErrEmptyFeedback
	}
	if feedbackID == "" {
		feedbackID = uuid.NewString()
	}

	p.logger.Info("feedback received", "feedback_id", feedbackID, "value", value)
	return FeedbackRecord{FeedbackID: feedbackID, Value: value}, nil
}
