// Package ingest walks a document directory, deduplicates files by content
// hash, chunks new files, and stores the chunks with embeddings.
//
// A file's catalog row is written only after its chunks are stored, so a
// failed file is retried in full on the next run instead of being silently
// skipped.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/sovereigntyai/sovereign/internal/fingerprint"
	"github.com/sovereigntyai/sovereign/internal/knowledge"
	"github.com/sovereigntyai/sovereign/internal/lang"
	"github.com/sovereigntyai/sovereign/internal/textsplit"
)

// ErrNotDirectory indicates the ingestion root is missing or not a directory.
var ErrNotDirectory = errors.New("ingestion root is not a directory")

// Status of a single file after an ingestion run.
const (
	StatusAdded   = "added"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// Document reports the outcome for one file.
type Document struct {
	RelativePath string `json:"relative_path"`
	FileName     string `json:"file_name"`
	Hash         string `json:"hash,omitempty"`
	Language     string `json:"language,omitempty"`
	Status       string `json:"status"`
	Chunks       int    `json:"chunks"`
	Error        string `json:"error,omitempty"`
}

// chunkStore is the slice of the knowledge store the pipeline writes to.
type chunkStore interface {
	AddTexts(ctx context.Context, texts []string, metadata map[string]string) (int, error)
}

// catalog is the slice of the file catalog the pipeline consults.
type catalog interface {
	HasHash(ctx context.Context, hash string) (bool, error)
	Upsert(ctx context.Context, rec knowledge.FileRecord) error
}

// Pipeline ingests a directory of text files into the knowledge store.
type Pipeline struct {
	store      chunkStore
	catalog    catalog
	splitter   *textsplit.Splitter
	extensions map[string]bool
	logger     *slog.Logger
}

// New creates a Pipeline. extensions lists recognized file extensions
// including the leading dot, e.g. [".txt", ".text"].
func New(store chunkStore, cat catalog, splitter *textsplit.Splitter, extensions []string, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	exts := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		exts[strings.ToLower(ext)] = true
	}
	return &Pipeline{
		store:      store,
		catalog:    cat,
		splitter:   splitter,
		extensions: exts,
		logger:     logger,
	}
}

// IngestDirectory walks root in lexical order and ingests every recognized
// file. Per-file failures are reported in the result and do not stop the
// run; only a bad root or a canceled context aborts it.
func (p *Pipeline) IngestDirectory(ctx context.Context, root string) ([]Document, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotDirectory, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %q", ErrNotDirectory, root)
	}

	jobID := uuid.NewString()
	logger := p.logger.With("job_id", jobID, "root", root)
	logger.Info("ingestion started")

	var results []Document
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !p.extensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		results = append(results, p.ingestFile(ctx, logger, path, rel))
		return nil
	})
	if err != nil {
		return results, fmt.Errorf("walking %q: %w", root, err)
	}

	logger.Info("ingestion finished", "files", len(results), "summary", summarize(results))
	return results, nil
}

func (p *Pipeline) ingestFile(ctx context.Context, logger *slog.Logger, path, rel string) Document {
	doc := Document{
		RelativePath: rel,
		FileName:     filepath.Base(path),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("unreadable file", "path", rel, "error", err)
		doc.Status = StatusFailed
		doc.Error = err.Error()
		return doc
	}

	doc.Hash = fingerprint.Bytes(data)

	known, err := p.catalog.HasHash(ctx, doc.Hash)
	if err != nil {
		logger.Error("hash lookup failed", "path", rel, "error", err)
		doc.Status = StatusFailed
		doc.Error = err.Error()
		return doc
	}
	if known {
		logger.Debug("unchanged file skipped", "path", rel, "hash", doc.Hash)
		doc.Status = StatusSkipped
		return doc
	}

	text := string(data)
	doc.Language = lang.Detect(text)

	chunks := p.splitter.Split(text)
	metadata := map[string]string{
		knowledge.MetaSourceFileName: firstLine(text),
		knowledge.MetaFileName:       doc.FileName,
		knowledge.MetaFileDirectory:  filepath.ToSlash(filepath.Dir(rel)),
		knowledge.MetaFileHash:       doc.Hash,
		knowledge.MetaLanguage:       doc.Language,
	}

	stored, err := p.store.AddTexts(ctx, chunks, metadata)
	if err != nil {
		// The catalog row is withheld so the next run retries this file.
		logger.Error("chunk storage failed", "path", rel, "stored", stored, "error", err)
		doc.Status = StatusFailed
		doc.Chunks = stored
		doc.Error = err.Error()
		return doc
	}
	doc.Chunks = stored

	rec := knowledge.FileRecord{
		Path:     rel,
		Name:     doc.FileName,
		Hash:     doc.Hash,
		Language: doc.Language,
	}
	if err := p.catalog.Upsert(ctx, rec); err != nil {
		logger.Error("catalog update failed", "path", rel, "error", err)
		doc.Status = StatusFailed
		doc.Error = err.Error()
		return doc
	}

	logger.Info("file ingested", "path", rel, "chunks", stored, "language", doc.Language)
	doc.Status = StatusAdded
	return doc
}

// firstLine returns the first non-blank line of text, trimmed.
func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func summarize(docs []Document) map[string]int {
	counts := map[string]int{}
	for _, d := range docs {
		counts[d.Status]++
	}
	return counts
}
