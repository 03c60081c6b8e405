package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/vea-labs/docpipe/internal/domain"
	"github.com/vea-labs/docpipe/internal/telemetry"
)

// IngestDocumentStore is the document store surface the ingestion worker
// needs: fetch bytes and read/write per-file metadata.
type IngestDocumentStore interface {
	Download(ctx context.Context, name, path string) error
	GetMetadata(ctx context.Context, name string) (map[string]string, error)
	UpdateMetadata(ctx context.Context, name string, updates map[string]string) error
}

// TextExtractor converts a downloaded file into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, path, filename, contentType string) (string, error)
}

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// VectorUpserter persists document vector entries.
type VectorUpserter interface {
	Upsert(ctx context.Context, entry *domain.VectorEntry) error
}

// IngestService processes one ingestion task end-to-end:
// download, extract, clean, chunk, embed, store, mark-processed.
//
// Failure semantics follow the task taxonomy: infrastructure failures
// (download, store) return errors so the queue redelivers; empty extraction
// and zero successful embeddings are clean stops that leave the file
// unprocessed; single-chunk embedding failures are skipped; the final
// metadata mark is best-effort. The scratch file is removed on every exit
// path.
type IngestService struct {
	store     IngestDocumentStore
	extractor TextExtractor
	embedder  EmbeddingClient
	vectors   VectorUpserter
	chunkCfg  ChunkConfig
	retention time.Duration
	now       func() time.Time
}

// NewIngestService creates a new IngestService instance
func NewIngestService(
	store IngestDocumentStore,
	extractor TextExtractor,
	embedder EmbeddingClient,
	vectors VectorUpserter,
	chunkCfg ChunkConfig,
	retention time.Duration,
) *IngestService {
	if chunkCfg.Size <= 0 {
		chunkCfg = DefaultChunkConfig()
	}
	return &IngestService{
		store:     store,
		extractor: extractor,
		embedder:  embedder,
		vectors:   vectors,
		chunkCfg:  chunkCfg,
		retention: retention,
		now:       time.Now,
	}
}

// ProcessTask runs the ingestion state machine for one queued task.
func (s *IngestService) ProcessTask(ctx context.Context, task *domain.IngestionTask) error {
	if err := domain.ValidateIngestionTask(task); err != nil {
		return fmt.Errorf("invalid ingestion task: %w", err)
	}

	ctx, span := telemetry.StartSpan(ctx, "ingest.process_task", telemetry.SpanAttributes{
		TaskID:    task.ID,
		Filename:  task.FileName,
		Operation: "ingest",
	})
	defer span.End()

	scratch, err := os.CreateTemp("", "docpipe-*"+filepath.Ext(task.FileName))
	if err != nil {
		return fmt.Errorf("failed to create scratch file: %w", err)
	}
	scratchPath := scratch.Name()
	scratch.Close()
	defer func() {
		if err := os.Remove(scratchPath); err != nil && !os.IsNotExist(err) {
			log.Printf("ingest: failed to remove scratch file %s: %v", scratchPath, err)
		}
	}()

	// Downloaded
	if err := s.store.Download(ctx, task.FileName, scratchPath); err != nil {
		return fmt.Errorf("failed to download %q: %w", task.FileName, err)
	}

	fileMeta, err := s.store.GetMetadata(ctx, task.FileName)
	if err != nil {
		return fmt.Errorf("failed to get metadata for %q: %w", task.FileName, err)
	}

	contentHash, err := domain.HashFile(scratchPath)
	if err != nil {
		return fmt.Errorf("failed to hash %q: %w", task.FileName, err)
	}

	docID, err := domain.NewDocumentID(task.FileName, contentHash, s.now())
	if err != nil {
		return fmt.Errorf("failed to generate document id: %w", err)
	}

	// Extracted
	extracted, err := s.extractor.Extract(ctx, scratchPath, task.FileName, task.ContentType)
	if err != nil {
		return fmt.Errorf("failed to extract text from %q: %w", task.FileName, err)
	}
	if strings.TrimSpace(extracted) == "" {
		// Nothing to index. Clean terminal stop: no vector record, no
		// processed mark, no redelivery.
		log.Printf("ingest: no text extracted from %q, skipping", task.FileName)
		return nil
	}

	// Cleaned / Chunked
	cleaned := CleanText(extracted)
	chunks := ChunkText(cleaned, s.chunkCfg)
	log.Printf("ingest: %q extracted %d chars, %d chunks", task.FileName, len(extracted), len(chunks))

	// Embedded: one chunk failing is skipped, not fatal.
	records := make([]domain.EmbeddingRecord, 0, len(chunks))
	for _, chunk := range chunks {
		embedding, err := s.embedder.GenerateEmbedding(ctx, chunk.Text)
		if err != nil {
			log.Printf("ingest: failed to embed chunk %d of %q: %v", chunk.Index, task.FileName, err)
			continue
		}
		records = append(records, domain.EmbeddingRecord{
			ChunkIndex: chunk.Index,
			Text:       chunk.Text,
			Embedding:  embedding,
		})
	}
	if len(records) == 0 {
		// The file stays unprocessed so the next discovery run retries it.
		log.Printf("ingest: no embeddings generated for %q, leaving unprocessed", task.FileName)
		return nil
	}

	// Stored
	avg, err := domain.AverageEmbedding(records)
	if err != nil {
		return fmt.Errorf("failed to average embeddings for %q: %w", task.FileName, err)
	}

	entry := s.buildEntry(task, docID, records, avg, fileMeta)
	if err := s.vectors.Upsert(ctx, entry); err != nil {
		return fmt.Errorf("failed to store vector entry for %q: %w", task.FileName, err)
	}
	log.Printf("ingest: stored vector entry %s (%d chunks)", docID.ID, len(records))

	// Marked: best-effort, never fatal. Worst case the file is re-queued
	// and re-processed, which the content-derived dedup key makes safe.
	s.markProcessed(ctx, task.FileName, docID.ID, len(records))

	return nil
}

func (s *IngestService) buildEntry(
	task *domain.IngestionTask,
	docID domain.DocumentID,
	records []domain.EmbeddingRecord,
	avg []float32,
	fileMeta map[string]string,
) *domain.VectorEntry {
	texts := make([]string, len(records))
	for i, rec := range records {
		texts[i] = rec.Text
	}

	uploadDate := s.now().UTC()
	if raw := fileMeta["upload_date"]; raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			uploadDate = parsed
		}
	}

	fileSize := task.FileSize
	if raw := fileMeta["file_size"]; raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil {
			fileSize = parsed
		}
	}

	return &domain.VectorEntry{
		DedupKey:            docID.DedupKey,
		DocumentID:          docID.ID,
		Embedding:           avg,
		Text:                strings.Join(texts, " "),
		Filename:            task.FileName,
		ContentType:         task.ContentType,
		UploadDate:          uploadDate,
		FileSize:            fileSize,
		ChunksCount:         len(records),
		EmbeddingsGenerated: true,
		ExpiresAt:           s.now().UTC().Add(s.retention),
	}
}

func (s *IngestService) markProcessed(ctx context.Context, fileName, documentID string, chunksCount int) {
	updates := map[string]string{
		domain.MetaProcessed:           "true",
		domain.MetaDocumentID:          documentID,
		domain.MetaChunksCount:         strconv.Itoa(chunksCount),
		domain.MetaEmbeddingsGenerated: "true",
		domain.MetaProcessedTimestamp:  s.now().UTC().Format(time.RFC3339),
	}
	if err := s.store.UpdateMetadata(ctx, fileName, updates); err != nil {
		log.Printf("ingest: failed to mark %q processed (will be re-queued): %v", fileName, err)
	}
}
