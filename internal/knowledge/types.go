package knowledge

import "time"

// Metadata keys attached to every stored chunk.
const (
	// MetaSourceFileName is the first non-blank line of the source file,
	// kept as a human-readable title for provenance.
	MetaSourceFileName = "source_file_name"

	// MetaFileName is the base name of the source file.
	MetaFileName = "file_name"

	// MetaFileDirectory is the directory of the source file relative to the
	// ingestion root.
	MetaFileDirectory = "file_directory"

	// MetaFileHash is the content hash of the whole source file.
	MetaFileHash = "file_hash"

	// MetaLanguage is the detected language code of the source file.
	MetaLanguage = "language"
)

// Entry is a stored chunk of knowledge.
type Entry struct {
	ID        string
	Content   string
	Metadata  map[string]string
	CreatedAt time.Time
}

// Result is a search hit: an entry plus its cosine similarity to the query,
// in [0, 1] where 1 is identical direction.
type Result struct {
	Entry
	Similarity float32
}

// FileRecord is a catalog row describing an ingested file.
type FileRecord struct {
	Path      string
	Name      string
	Hash      string
	Language  string
	UpdatedAt time.Time
}
