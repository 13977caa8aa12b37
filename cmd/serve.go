package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sovereigntyai/sovereign/internal/answer"
	"github.com/sovereigntyai/sovereign/internal/api"
	"github.com/sovereigntyai/sovereign/internal/ingest"
	"github.com/sovereigntyai/sovereign/internal/knowledge"
	"github.com/sovereigntyai/sovereign/internal/secret"
	"github.com/sovereigntyai/sovereign/internal/textsplit"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the question-answering API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func runServe(cmd *cobra.Command, addr string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg, "api")
	if err != nil {
		return err
	}

	secrets := secret.Env{}
	if err := applySecrets(cfg, secrets); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return err
	}
	generator, err := buildGenerator(cfg, secrets)
	if err != nil {
		return err
	}

	store := knowledge.NewStore(pool, embedder, cfg.VectorDimension, logger)
	catalog := knowledge.NewCatalog(pool, logger)

	splitter, err := textsplit.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return fmt.Errorf("creating text splitter: %w", err)
	}
	ingestPipeline := ingest.New(store, catalog, splitter, cfg.FileExtensions, logger)

	answerPipeline := answer.New(store, generator, answer.Options{
		TopK:              cfg.Answer.TopK,
		ScoreThreshold:    cfg.Answer.ScoreThreshold,
		MaxQuestionLength: cfg.Answer.MaxQuestionLength,
		DegradeOnError:    cfg.Answer.DegradeOnError,
	}, logger)

	srv, err := api.NewServer(api.ServerConfig{
		Logger:      logger,
		Answer:      answerPipeline,
		Ingest:      ingestPipeline,
		DataDir:     cfg.DataDir,
		Pool:        pool,
		RatePerSec:  cfg.API.RatePerSec,
		RateBurst:   cfg.API.RateBurst,
		TrustProxy:  cfg.API.TrustProxy,
		CORSOrigins: cfg.API.CORSOrigin,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	if addr == "" {
		addr = cfg.API.Addr
	}
	logger.Info("starting api server",
		"addr", addr,
		"environment", cfg.Environment,
		"embedder", cfg.Embedder.Provider,
		"generator", cfg.Generator.Provider,
	)
	return srv.Run(ctx, addr)
}
