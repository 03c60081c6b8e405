package extract

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"code.sajari.com/docconv"
	"golang.org/x/text/encoding/charmap"
)

func extractPDF(ctx context.Context, path string) (string, error) {
	return convertFile(ctx, path, "application/pdf")
}

func extractWord(ctx context.Context, path string) (string, error) {
	if strings.HasSuffix(strings.ToLower(path), ".doc") {
		return convertFile(ctx, path, "application/msword")
	}
	return convertFile(ctx, path, "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
}

// extractImage runs OCR through docconv. Backend failures (no tesseract,
// unreadable image) propagate so the task is retried by the queue.
func extractImage(ctx context.Context, path string) (string, error) {
	return convertFile(ctx, path, "image/png")
}

func convertFile(ctx context.Context, path, mimeType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	res, err := docconv.Convert(f, mimeType, false)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(res.Body), nil
}

// extractTextFile reads the file as UTF-8, falling back to Latin-1 when the
// bytes are not valid UTF-8.
func extractTextFile(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read text file: %w", err)
	}

	if utf8.Valid(data) {
		return string(data), nil
	}

	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("failed to decode text file as latin-1: %w", err)
	}
	return string(decoded), nil
}
