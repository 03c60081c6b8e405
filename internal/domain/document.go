package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// hashPrefixLen is the number of digest characters included in a document ID.
	hashPrefixLen = 8
	// idTimestampLayout is the timestamp component layout of a document ID.
	idTimestampLayout = "20060102_150405"
)

// DocumentID identifies a processed document. The dedup key is derived from
// filename stem and content digest only; the timestamp records when the
// document was last processed and never participates in identity.
type DocumentID struct {
	// ID is the full display identifier: {stem}_{digest[:8]}_{timestamp}.
	ID string
	// DedupKey is the stable storage key: {stem}_{digest[:8]}.
	DedupKey string
	// ContentHash is the full hex digest of the source bytes.
	ContentHash string
}

// NewDocumentID derives a document identity from the original filename and a
// content digest. Identical content under the same filename always maps to
// the same dedup key, so re-processing overwrites rather than duplicates.
func NewDocumentID(filename, contentHash string, processedAt time.Time) (DocumentID, error) {
	if filename == "" {
		return DocumentID{}, fmt.Errorf("filename is required: %w", ErrMissingRequiredField)
	}
	if len(contentHash) < hashPrefixLen {
		return DocumentID{}, fmt.Errorf("content hash too short: %w", ErrMissingRequiredField)
	}

	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if stem == "" {
		stem = "document"
	}

	dedupKey := fmt.Sprintf("%s_%s", stem, contentHash[:hashPrefixLen])
	id := fmt.Sprintf("%s_%s", dedupKey, processedAt.UTC().Format(idTimestampLayout))

	return DocumentID{
		ID:          id,
		DedupKey:    dedupKey,
		ContentHash: contentHash,
	}, nil
}

// HashReader computes the SHA-256 digest of a byte stream.
func HashReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("failed to hash content: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashFile computes the SHA-256 digest of a file's full byte stream.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file for hashing: %w", err)
	}
	defer f.Close()
	return HashReader(f)
}
