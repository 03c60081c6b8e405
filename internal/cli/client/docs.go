package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// DocumentItem represents a stored document as returned by the API.
type DocumentItem struct {
	DocumentID          string `json:"document_id"`
	Filename            string `json:"filename"`
	ContentType         string `json:"content_type,omitempty"`
	UploadDate          string `json:"upload_date"`
	FileSize            int64  `json:"file_size"`
	ChunksCount         int    `json:"chunks_count"`
	EmbeddingsGenerated bool   `json:"embeddings_generated"`
	ExpiresAt           string `json:"expires_at"`
	Content             string `json:"content,omitempty"`
}

type DocumentListResponse struct {
	Documents []DocumentItem `json:"documents"`
	Count     int            `json:"count"`
	Cursor    string         `json:"cursor,omitempty"`
	HasMore   bool           `json:"has_more"`
}

func DocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Manage ingested documents",
	}

	cmd.AddCommand(docsListCmd())
	cmd.AddCommand(docsGetCmd())
	cmd.AddCommand(docsDeleteCmd())

	return cmd
}

func docsListCmd() *cobra.Command {
	var limit int
	var cursor string
	var prefix string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ingested documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runDocsList(cmd, prefix, limit, cursor, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of results")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Only list documents whose id starts with this prefix")

	return cmd
}

func docsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <document_id>",
		Short: "Show a document including its extracted text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runDocsGet(cmd, args[0], outputJSON)
		},
	}
}

func docsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <document_id>",
		Short: "Delete a document and its vector entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runDocsDelete(cmd, args[0], outputJSON)
		},
	}
}

func runDocsList(cmd *cobra.Command, prefix string, limit int, cursor string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		query.Set("cursor", cursor)
	}
	if prefix != "" {
		query.Set("prefix", prefix)
	}
	path := "/documents/"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	resp, err := api.Get(path)
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}

	var listResp DocumentListResponse
	if err := json.Unmarshal(resp.Data, &listResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(listResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if listResp.Count == 0 {
		fmt.Println("No documents found.")
		return nil
	}

	fmt.Printf("Found %d documents:\n\n", listResp.Count)
	for i, doc := range listResp.Documents {
		fmt.Printf("%d. %s\n", i+1, doc.Filename)
		fmt.Printf("   ID: %s\n", doc.DocumentID)
		fmt.Printf("   Chunks: %d, Size: %d bytes\n", doc.ChunksCount, doc.FileSize)
		fmt.Printf("   Uploaded: %s, Expires: %s\n", doc.UploadDate, doc.ExpiresAt)
		if i < len(listResp.Documents)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}

	if listResp.HasMore && listResp.Cursor != "" {
		fmt.Printf("\n%s\n", strings.Repeat("-", 40))
		fmt.Printf("More results available. Use --cursor %s\n", listResp.Cursor)
	}

	return nil
}

func runDocsGet(cmd *cobra.Command, documentID string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get("/documents/" + documentID)
	if err != nil {
		return fmt.Errorf("get failed: %w", err)
	}

	var doc DocumentItem
	if err := json.Unmarshal(resp.Data, &doc); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(doc, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Document: %s\n", doc.Filename)
	fmt.Printf("ID: %s\n", doc.DocumentID)
	fmt.Printf("Content type: %s\n", doc.ContentType)
	fmt.Printf("Chunks: %d, Size: %d bytes\n", doc.ChunksCount, doc.FileSize)
	fmt.Printf("Uploaded: %s, Expires: %s\n", doc.UploadDate, doc.ExpiresAt)
	if doc.Content != "" {
		fmt.Printf("\n%s\n", doc.Content)
	}

	return nil
}

func runDocsDelete(cmd *cobra.Command, documentID string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Delete("/documents/" + documentID)
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}

	if outputJSON {
		var data map[string]interface{}
		if err := json.Unmarshal(resp.Data, &data); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
		output, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Deleted document: %s\n", documentID)
	return nil
}
