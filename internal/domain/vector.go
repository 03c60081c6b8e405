package domain

import (
	"fmt"
	"time"
)

// Chunk is one bounded, possibly overlapping segment of a document's cleaned
// text, ordered by Index.
type Chunk struct {
	Index int
	Text  string
}

// Len returns the chunk's byte length.
func (c Chunk) Len() int {
	return len(c.Text)
}

// EmbeddingRecord pairs a successfully embedded chunk with its vector.
type EmbeddingRecord struct {
	ChunkIndex int
	Text       string
	Embedding  []float32
}

// VectorEntry is the persisted vector record for one document. Same dedup
// key overwrites the prior entry entirely and renews its expiration.
type VectorEntry struct {
	DedupKey            string
	DocumentID          string
	Embedding           []float32
	Text                string
	Filename            string
	ContentType         string
	UploadDate          time.Time
	FileSize            int64
	ChunksCount         int
	EmbeddingsGenerated bool
	ExpiresAt           time.Time
}

// ValidateVectorEntry validates a VectorEntry instance
func ValidateVectorEntry(e *VectorEntry) error {
	if e == nil {
		return fmt.Errorf("vector entry cannot be nil")
	}

	if e.DedupKey == "" {
		return fmt.Errorf("vector entry DedupKey is required")
	}

	if e.DocumentID == "" {
		return fmt.Errorf("vector entry DocumentID is required")
	}

	if len(e.Embedding) == 0 {
		return fmt.Errorf("vector entry Embedding is required")
	}

	if e.ChunksCount <= 0 {
		return fmt.Errorf("vector entry ChunksCount must be positive")
	}

	return nil
}

// SearchResult is one nearest-neighbor candidate. Transient, never persisted.
type SearchResult struct {
	DocumentID  string
	DedupKey    string
	Text        string
	Filename    string
	ContentType string
	Score       float64
}

// AverageEmbedding returns the element-wise mean of the record vectors.
// All vectors must share the same dimension.
func AverageEmbedding(records []EmbeddingRecord) ([]float32, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("cannot average zero embeddings")
	}

	dim := len(records[0].Embedding)
	if dim == 0 {
		return nil, fmt.Errorf("cannot average empty embeddings")
	}

	sums := make([]float64, dim)
	for _, rec := range records {
		if len(rec.Embedding) != dim {
			return nil, fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(rec.Embedding), dim)
		}
		for i, v := range rec.Embedding {
			sums[i] += float64(v)
		}
	}

	avg := make([]float32, dim)
	n := float64(len(records))
	for i, s := range sums {
		avg[i] = float32(s / n)
	}
	return avg, nil
}
