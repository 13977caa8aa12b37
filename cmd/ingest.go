package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sovereigntyai/sovereign/internal/ingest"
	"github.com/sovereigntyai/sovereign/internal/knowledge"
	"github.com/sovereigntyai/sovereign/internal/secret"
	"github.com/sovereigntyai/sovereign/internal/textsplit"
)

func newIngestCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "ingest [directory]",
		Short: "Ingest a document directory and exit",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := dir
			if len(args) == 1 {
				root = args[0]
			}
			return runIngest(cmd, root)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "document directory (default: configured data_dir)")
	return cmd
}

func runIngest(cmd *cobra.Command, root string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if root == "" {
		root = cfg.DataDir
	}

	logger, err := newLogger(cfg, "ingest")
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

	store := knowledge.NewStore(pool, embedder, cfg.VectorDimension, logger)
	catalog := knowledge.NewCatalog(pool, logger)

	splitter, err := textsplit.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return fmt.Errorf("creating text splitter: %w", err)
	}
	pipeline := ingest.New(store, catalog, splitter, cfg.FileExtensions, logger)

	docs, err := pipeline.IngestDirectory(ctx, root)
	if err != nil {
		return err
	}

	summary := map[string]int{}
	for _, d := range docs {
		summary[d.Status]++
		switch d.Status {
		case ingest.StatusAdded:
			fmt.Printf("  added    %s (%d chunks, %s)\n", d.RelativePath, d.Chunks, d.Language)
		case ingest.StatusSkipped:
			fmt.Printf("  skipped  %s\n", d.RelativePath)
		case ingest.StatusFailed:
			fmt.Printf("  failed   %s: %s\n", d.RelativePath, d.Error)
		}
	}
	fmt.Printf("%d files: %d added, %d skipped, %d failed\n",
		len(docs),
		summary[ingest.StatusAdded],
		summary[ingest.StatusSkipped],
		summary[ingest.StatusFailed],
	)

	if summary[ingest.StatusFailed] > 0 {
		return fmt.Errorf("%d files failed", summary[ingest.StatusFailed])
	}
	return nil
}
