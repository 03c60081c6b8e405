package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vea-labs/docpipe/internal/cli"
	"github.com/vea-labs/docpipe/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "docpipe",
		Short: "Docpipe CLI - Document ingestion and retrieval",
		Long: `Docpipe CLI provides commands to ingest documents and ask questions about them.

Environment variables:
  DOCPIPE_API_KEY   API key for authentication (required)
  DOCPIPE_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-key", "", "API key for authentication (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.InitCmd())
	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.IngestCmd())
	rootCmd.AddCommand(client.DocsCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
