package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

var (
	// ErrInvalidChunking indicates the chunk window parameters are unusable.
	ErrInvalidChunking = errors.New("invalid chunking parameters")

	// ErrInvalidPostgres indicates the PostgreSQL settings are invalid.
	ErrInvalidPostgres = errors.New("invalid PostgreSQL configuration")

	// ErrInvalidProvider indicates an unknown embedder or generator provider.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidAnswer indicates the answer pipeline parameters are invalid.
	ErrInvalidAnswer = errors.New("invalid answer configuration")

	// ErrInvalidLogLevel indicates an unrecognized log level name.
	ErrInvalidLogLevel = errors.New("invalid log level")
)

// Embedder provider identifiers used in EmbedderConfig.Provider.
const (
	EmbedderService = "service"
	EmbedderOllama  = "ollama"
)

// Generator provider identifiers used in GeneratorConfig.Provider.
const (
	GeneratorGroq   = "groq"
	GeneratorOllama = "ollama"
)

var validSSLModes = map[string]bool{
	"disable": true, "allow": true, "prefer": true,
	"require": true, "verify-ca": true, "verify-full": true,
}

// Validate performs fail-fast configuration validation.
// It aggregates nothing: the first violation is returned so startup logs
// point at a single actionable problem.
func (c *Config) Validate() error {
	// Chunking
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive, got %d", ErrInvalidChunking, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap must be in [0, chunk_size), got %d", ErrInvalidChunking, c.ChunkOverlap)
	}
	if len(c.FileExtensions) == 0 {
		return fmt.Errorf("%w: file_extensions must not be empty", ErrInvalidChunking)
	}
	for _, ext := range c.FileExtensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("%w: file extension %q must start with '.'", ErrInvalidChunking, ext)
		}
	}

	// Storage
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: postgres_host must not be empty", ErrInvalidPostgres)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: postgres_port %d out of range", ErrInvalidPostgres, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: postgres_db_name must not be empty", ErrInvalidPostgres)
	}
	if !validSSLModes[c.PostgresSSLMode] {
		return fmt.Errorf("%w: postgres_ssl_mode %q not recognized", ErrInvalidPostgres, c.PostgresSSLMode)
	}
	if c.VectorDimension <= 0 {
		return fmt.Errorf("%w: vector_dimension must be positive, got %d", ErrInvalidPostgres, c.VectorDimension)
	}

	// Backends
	switch c.Embedder.Provider {
	case EmbedderService:
		if c.Embedder.ServiceURL == "" {
			return fmt.Errorf("%w: embedder.service_url required for provider %q", ErrInvalidProvider, EmbedderService)
		}
	case EmbedderOllama:
		if c.Embedder.OllamaHost == "" {
			return fmt.Errorf("%w: embedder.ollama_host required for provider %q", ErrInvalidProvider, EmbedderOllama)
		}
	default:
		return fmt.Errorf("%w: embedder provider %q (expected %q or %q)",
			ErrInvalidProvider, c.Embedder.Provider, EmbedderService, EmbedderOllama)
	}

	switch c.Generator.Provider {
	case GeneratorGroq, GeneratorOllama:
	default:
		return fmt.Errorf("%w: generator provider %q (expected %q or %q)",
			ErrInvalidProvider, c.Generator.Provider, GeneratorGroq, GeneratorOllama)
	}
	if c.Generator.Model == "" {
		return fmt.Errorf("%w: generator.model must not be empty", ErrInvalidProvider)
	}
	if c.Generator.MaxTokens <= 0 {
		return fmt.Errorf("%w: generator.max_tokens must be positive, got %d", ErrInvalidProvider, c.Generator.MaxTokens)
	}
	if c.Generator.Temperature < 0 || c.Generator.Temperature > 2 {
		return fmt.Errorf("%w: generator.temperature must be in [0, 2], got %g", ErrInvalidProvider, c.Generator.Temperature)
	}

	// Answer pipeline
	if c.Answer.TopK < 1 {
		return fmt.Errorf("%w: answer.top_k must be at least 1, got %d", ErrInvalidAnswer, c.Answer.TopK)
	}
	if c.Answer.ScoreThreshold < 0 || c.Answer.ScoreThreshold > 1 {
		return fmt.Errorf("%w: answer.score_threshold must be in [0, 1], got %g", ErrInvalidAnswer, c.Answer.ScoreThreshold)
	}
	if c.Answer.MaxQuestionLength < 1 {
		return fmt.Errorf("%w: answer.max_question_length must be positive, got %d", ErrInvalidAnswer, c.Answer.MaxQuestionLength)
	}

	// Logging
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}

	return nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, level)
	}
}
