package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
)

// Catalog tracks ingested files in the files_metadata table.
// Rows are keyed by file path; the hash gate for skip decisions queries by
// content hash, so a file keeps being skipped even after it is renamed.
type Catalog struct {
	q      Querier
	logger *slog.Logger
}

// NewCatalog creates a Catalog over the given querier.
func NewCatalog(q Querier, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{q: q, logger: logger}
}

// HasHash reports whether any cataloged file has the given content hash.
func (c *Catalog) HasHash(ctx context.Context, hash string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM files_metadata WHERE file_hash = $1)`

	var exists bool
	if err := c.q.QueryRow(ctx, query, hash).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking file hash: %w", err)
	}
	return exists, nil
}

// Upsert inserts or updates the catalog row for rec.Path.
func (c *Catalog) Upsert(ctx context.Context, rec FileRecord) error {
	const upsert = `
		INSERT INTO files_metadata (file_path, file_name, file_hash, language)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (file_path) DO UPDATE SET
			file_name = EXCLUDED.file_name,
			file_hash = EXCLUDED.file_hash,
			language = EXCLUDED.language,
			updated_at = now()`

	if _, err := c.q.Exec(ctx, upsert, rec.Path, rec.Name, rec.Hash, rec.Language); err != nil {
		return fmt.Errorf("upserting catalog row for %q: %w", rec.Path, err)
	}

	c.logger.Debug("cataloged file", "path", rec.Path, "hash", rec.Hash)
	return nil
}

// Get returns the catalog row for the given path.
// Returns ErrNotFound when the path has never been cataloged.
func (c *Catalog) Get(ctx context.Context, path string) (FileRecord, error) {
	const query = `
		SELECT file_path, file_name, file_hash, language, updated_at
		FROM files_metadata
		WHERE file_path = $1`

	var rec FileRecord
	err := c.q.QueryRow(ctx, query, path).Scan(
		&rec.Path, &rec.Name, &rec.Hash, &rec.Language, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FileRecord{}, fmt.Errorf("%w: %q", ErrNotFound, path)
		}
		return FileRecord{}, fmt.Errorf("reading catalog row for %q: %w", path, err)
	}
	return rec, nil
}

// Delete removes the catalog row for the given path.
// Returns ErrNotFound when no row exists.
func (c *Catalog) Delete(ctx context.Context, path string) error {
	tag, err := c.q.Exec(ctx, `DELETE FROM files_metadata WHERE file_path = $1`, path)
	if err != nil {
		return fmt.Errorf("deleting catalog row for %q: %w", path, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, path)
	}
	return nil
}
