package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

type BatchIngestResponse struct {
	Status           string `json:"status"`
	TotalFiles       int    `json:"total_files"`
	UnprocessedFiles int    `json:"unprocessed_files"`
	QueuedFiles      int    `json:"queued_files"`
	Message          string `json:"message"`
}

func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Trigger a batch ingestion run",
		Long:  "Scans the document store for unprocessed files and queues them for ingestion.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runIngest(cmd, outputJSON)
		},
	}

	return cmd
}

func runIngest(cmd *cobra.Command, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/ingest/batch", nil)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	var batchResp BatchIngestResponse
	if err := json.Unmarshal(resp.Data, &batchResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(batchResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Println(batchResp.Message)
	fmt.Printf("Total files: %d\n", batchResp.TotalFiles)
	fmt.Printf("Unprocessed: %d\n", batchResp.UnprocessedFiles)
	fmt.Printf("Queued: %d\n", batchResp.QueuedFiles)
	return nil
}
