// Package knowledge stores text chunks with vector embeddings in
// PostgreSQL + pgvector and retrieves them by cosine similarity.
//
// Store handles the chunks table; Catalog tracks ingested files in
// files_metadata so unchanged files are skipped on re-ingestion.
package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/sovereigntyai/sovereign/internal/embed"
)

var (
	// ErrDimensionMismatch indicates an embedding does not match the
	// configured vector column dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
)

// Querier is the subset of pgx operations the knowledge package needs.
// Interfaces are defined by the consumer, not the provider; *pgxpool.Pool
// satisfies this directly.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const searchTimeout = 10 * time.Second

// Store manages text chunks with vector search.
// It is safe for concurrent use by multiple goroutines.
type Store struct {
	q         Querier
	embedder  embed.Embedder
	dimension int
	logger    *slog.Logger
}

// NewStore creates a Store over the given querier and embedder.
// dimension must match the vector(N) column of the chunks table.
func NewStore(q Querier, embedder embed.Embedder, dimension int, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		q:         q,
		embedder:  embedder,
		dimension: dimension,
		logger:    logger,
	}
}

// AddTexts embeds the given texts as one batch and stores each as a chunk
// row with the shared metadata. It returns the number of chunks stored;
// on a mid-batch insert failure the earlier inserts remain.
func (s *Store) AddTexts(ctx context.Context, texts []string, metadata map[string]string) (int, error) {
	if len(texts) == 0 {
		return 0, nil
	}

	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding %d texts: %w", len(texts), err)
	}
	for i, vec := range vectors {
		if len(vec) != s.dimension {
			return 0, fmt.Errorf("%w: text %d has dimension %d, want %d",
				ErrDimensionMismatch, i, len(vec), s.dimension)
		}
	}

	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return 0, fmt.Errorf("marshaling metadata: %w", err)
	}

	const insert = `
		INSERT INTO chunks (id, content, embedding, metadata)
		VALUES ($1, $2, $3, $4)`

	stored := 0
	for i, text := range texts {
		id := uuid.NewString()
		vec := pgvector.NewVector(vectors[i])
		if _, err := s.q.Exec(ctx, insert, id, text, vec, metadataJSON); err != nil {
			return stored, fmt.Errorf("inserting chunk %d: %w", i, err)
		}
		stored++
	}

	s.logger.Debug("stored chunks", "count", stored)
	return stored, nil
}

// Search embeds the query and returns up to k chunks whose cosine
// similarity meets threshold, most similar first.
func (s *Store) Search(ctx context.Context, query string, k int, threshold float32) ([]Result, error) {
	queryCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	vec, err := s.embedder.EmbedQuery(queryCtx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vec) != s.dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, want %d",
			ErrDimensionMismatch, len(vec), s.dimension)
	}

	const search = `
		SELECT id, content, metadata, created_at,
		       1 - (embedding <=> $1) AS similarity
		FROM chunks
		WHERE 1 - (embedding <=> $1) >= $2
		ORDER BY embedding <=> $1
		LIMIT $3`

	rows, err := s.q.Query(queryCtx, search, pgvector.NewVector(vec), threshold, k)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("search query timeout: %w", err)
		}
		return nil, fmt.Errorf("searching chunks: %w", err)
	}
	defer rows.Close()

	results := make([]Result, 0, k)
	for rows.Next() {
		var (
			r            Result
			metadataJSON []byte
		)
		if err := rows.Scan(&r.ID, &r.Content, &metadataJSON, &r.CreatedAt, &r.Similarity); err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}
		if err := json.Unmarshal(metadataJSON, &r.Metadata); err != nil {
			s.logger.Warn("unparseable chunk metadata", "chunk_id", r.ID, "error", err)
			r.Metadata = map[string]string{}
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading search rows: %w", err)
	}

	return results, nil
}

// Count returns the number of stored chunks, optionally restricted to
// chunks whose metadata contains the filter.
func (s *Store) Count(ctx context.Context, filter map[string]string) (int64, error) {
	var row pgx.Row
	if len(filter) > 0 {
		filterJSON, err := json.Marshal(filter)
		if err != nil {
			return 0, fmt.Errorf("marshaling filter: %w", err)
		}
		row = s.q.QueryRow(ctx, `SELECT count(*) FROM chunks WHERE metadata @> $1`, filterJSON)
	} else {
		row = s.q.QueryRow(ctx, `SELECT count(*) FROM chunks`)
	}

	var count int64
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return count, nil
}

// DeleteByMetadata removes every chunk whose metadata contains the filter
// and returns the number of rows deleted. The filter is always marshaled
// here, never interpolated, so the JSONB containment query stays
// parameterized.
func (s *Store) DeleteByMetadata(ctx context.Context, filter map[string]string) (int64, error) {
	if len(filter) == 0 {
		return 0, errors.New("empty filter would delete every chunk")
	}

	filterJSON, err := json.Marshal(filter)
	if err != nil {
		return 0, fmt.Errorf("marshaling filter: %w", err)
	}

	tag, err := s.q.Exec(ctx, `DELETE FROM chunks WHERE metadata @> $1`, filterJSON)
	if err != nil {
		return 0, fmt.Errorf("deleting chunks: %w", err)
	}

	deleted := tag.RowsAffected()
	s.logger.Debug("deleted chunks", "count", deleted, "filter", filter)
	return deleted, nil
}
