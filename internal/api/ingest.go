package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sovereigntyai/sovereign/internal/ingest"
)

// ingester is the slice of the ingestion pipeline the handler calls.
type ingester interface {
	IngestDirectory(ctx context.Context, root string) ([]ingest.Document, error)
}

type ingestHandler struct {
	pipeline ingester
	dataDir  string
	logger   *slog.Logger
}

type ingestRequest struct {
	// Path overrides the configured data directory when set.
	Path string `json:"path,omitempty"`
}

type ingestResponse struct {
	Documents []ingest.Document `json:"documents"`
	Summary   map[string]int    `json:"summary"`
}

// run handles POST /api/ingest. The body is optional; an empty body
// ingests the configured data directory.
func (h *ingestHandler) run(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON", h.logger)
		return
	}

	root := req.Path
	if root == "" {
		root = h.dataDir
	}

	docs, err := h.pipeline.IngestDirectory(r.Context(), root)
	if err != nil {
		if errors.Is(err, ingest.ErrNotDirectory) {
			writeError(w, http.StatusBadRequest, "invalid_path", err.Error(), h.logger)
			return
		}
		h.logger.Error("ingestion failed", "root", root, "error", err)
		writeError(w, http.StatusInternalServerError, "ingest_failed", "ingestion failed", h.logger)
		return
	}

	summary := map[string]int{}
	for _, d := range docs {
		summary[d.Status]++
	}
	if docs == nil {
		docs = []ingest.Document{}
	}

	writeJSON(w, http.StatusOK, ingestResponse{Documents: docs, Summary: summary}, h.logger)
}
