package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vea-labs/docpipe/internal/cli"
	"github.com/vea-labs/docpipe/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "docpiped",
		Short: "Docpipe daemon",
		Long:  "Docpipe daemon for running the ingestion pipeline and API server",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
