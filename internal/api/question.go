package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sovereigntyai/sovereign/internal/answer"
)

// answerer is the slice of the answer pipeline the handlers call.
type answerer interface {
	Answer(ctx context.Context, question string, k int, threshold float32) (answer.Response, error)
	Feedback(ctx context.Context, feedbackID, value string) (answer.FeedbackRecord, error)
}

type questionHandler struct {
	pipeline answerer
	logger   *slog.Logger
}

type questionRequest struct {
	Question string `json:"question"`

	// Optional per-request overrides of the configured retrieval defaults.
	TopK           int      `json:"top_k,omitempty"`
	ScoreThreshold *float32 `json:"score_threshold,omitempty"`
}

// ask handles POST /api/question.
func (h *questionHandler) ask(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON", h.logger)
		return
	}

	threshold := float32(-1)
	if req.ScoreThreshold != nil {
		threshold = *req.ScoreThreshold
	}

	resp, err := h.pipeline.Answer(r.Context(), req.Question, req.TopK, threshold)
	if err != nil {
		switch {
		case errors.Is(err, answer.ErrEmptyQuestion), errors.Is(err, answer.ErrQuestionTooLong):
			writeError(w, http.StatusUnprocessableEntity, "invalid_question", err.Error(), h.logger)
		default:
			h.logger.Error("answering question failed", "error", err)
			writeError(w, http.StatusInternalServerError, "answer_failed", "failed to answer question", h.logger)
		}
		return
	}

	writeJSON(w, http.StatusOK, resp, h.logger)
}

type feedbackRequest struct {
	FeedbackID string `json:"feedback_id"`
	Value      string `json:"value"`
}

// feedback handles POST /api/feedback.
func (h *questionHandler) feedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON", h.logger)
		return
	}

	rec, err := h.pipeline.Feedback(r.Context(), req.FeedbackID, req.Value)
	if err != nil {
		if errors.Is(err, answer.ErrEmptyFeedback) {
			writeError(w, http.StatusUnprocessableEntity, "invalid_feedback", err.Error(), h.logger)
			return
		}
		h.logger.Error("recording feedback failed", "error", err)
		writeError(w, http.StatusInternalServerError, "feedback_failed", "failed to record feedback", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, rec, h.logger)
}
