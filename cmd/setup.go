package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sovereigntyai/sovereign/internal/config"
	"github.com/sovereigntyai/sovereign/internal/embed"
	"github.com/sovereigntyai/sovereign/internal/llm"
	"github.com/sovereigntyai/sovereign/internal/log"
	"github.com/sovereigntyai/sovereign/internal/secret"
)

// Secret names resolved through the secret provider at startup.
const (
	secretDBPassword = "DB_PASSWORD"
	secretGroqAPIKey = "GROQ_API_KEY"
)

// loadConfig loads and validates configuration for the current environment.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the service logger from config.
func newLogger(cfg *config.Config, service string) (log.Logger, error) {
	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	var file string
	if cfg.Log.Dir != "" {
		file = filepath.Join(cfg.Log.Dir, service+".log")
	}

	logger, err := log.New(log.Config{
		Level:       level,
		JSON:        cfg.Log.JSON,
		File:        file,
		Service:     service,
		Environment: cfg.Environment,
	})
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	return logger, nil
}

// applySecrets overlays secret-provider values onto the loaded config.
// The database password never travels through the config file in
// production; DB_PASSWORD wins when set.
func applySecrets(cfg *config.Config, secrets secret.Provider) error {
	password, err := secrets.Get(secretDBPassword)
	switch {
	case err == nil:
		cfg.PostgresPassword = password
	case errors.Is(err, secret.ErrNotFound):
		// Config value stands.
	default:
		return fmt.Errorf("resolving %s: %w", secretDBPassword, err)
	}
	return nil
}

// openPool connects a pgx pool and verifies it with a ping.
func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

// buildEmbedder constructs the configured embedding backend, wrapped with
// bounded retries.
func buildEmbedder(cfg *config.Config) (embed.Embedder, error) {
	var inner embed.Embedder
	switch cfg.Embedder.Provider {
	case config.EmbedderService:
		inner = embed.NewService(cfg.Embedder.ServiceURL)
	case config.EmbedderOllama:
		inner = embed.NewOllama(cfg.Embedder.OllamaHost, cfg.Embedder.Model)
	default:
		return nil, fmt.Errorf("unknown embedder provider %q", cfg.Embedder.Provider)
	}
	return embed.WithRetry(inner), nil
}

// buildGenerator constructs the configured generation backend. The Groq
// API key comes from the secret provider, never from config files.
func buildGenerator(cfg *config.Config, secrets secret.Provider) (llm.Generator, error) {
	params := llm.Params{
		Model:       cfg.Generator.Model,
		Temperature: cfg.Generator.Temperature,
		MaxTokens:   cfg.Generator.MaxTokens,
	}

	switch cfg.Generator.Provider {
	case config.GeneratorOllama:
		return llm.NewOllama(cfg.Generator.OllamaHost, params), nil
	case config.GeneratorGroq:
		apiKey, err := secrets.Get(secretGroqAPIKey)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", secretGroqAPIKey, err)
		}
		return llm.NewGroq(cfg.Generator.GroqURL, apiKey, params), nil
	default:
		return nil, fmt.Errorf("unknown generator provider %q", cfg.Generator.Provider)
	}
}
