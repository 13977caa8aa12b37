// Package cmd wires the application together and exposes it as a CLI.
//
// Subcommands:
//
//	serve         run the question-answering API server
//	embed-server  run the embedding microservice
//	ingest        ingest a document directory once and exit
//	migrate       apply database migrations
//	version       show version information
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "sovereign",
	Short:         "Retrieval-augmented question answering over your documents",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(
		newServeCmd(),
		newEmbedServerCmd(),
		newIngestCmd(),
		newMigrateCmd(),
		newVersionCmd(),
	)
}
