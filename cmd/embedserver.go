package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sovereigntyai/sovereign/internal/api"
	"github.com/sovereigntyai/sovereign/internal/embed"
	"github.com/sovereigntyai/sovereign/internal/embedapi"
)

func newEmbedServerCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "embed-server",
		Short: "Run the embedding microservice",
		Long: `Run the embedding microservice.

The service embeds text through the configured Ollama host and exposes
the /embed_query, /embed_documents, and /status endpoints consumed by
the API server.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEmbedServer(cmd, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func runEmbedServer(cmd *cobra.Command, addr string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg, "embed")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The microservice always embeds through Ollama directly; pointing it
	// at itself through the service provider would recurse.
	embedder := embed.NewOllama(cfg.Embedder.OllamaHost, cfg.Embedder.Model)

	srv, err := embedapi.NewServer(embedapi.ServerConfig{
		Logger:   logger,
		Embedder: embedder,
		Model:    cfg.Embedder.Model,
	})
	if err != nil {
		return fmt.Errorf("creating embedding server: %w", err)
	}

	if addr == "" {
		addr = cfg.API.EmbedAddr
	}
	logger.Info("starting embedding server",
		"addr", addr,
		"ollama_host", cfg.Embedder.OllamaHost,
		"model", cfg.Embedder.Model,
	)
	return api.Serve(ctx, addr, srv.Handler(), logger)
}
