package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/vea-labs/docpipe/internal/domain"
)

// DiscoveryDocumentStore lists source files for batch discovery.
type DiscoveryDocumentStore interface {
	List(ctx context.Context, prefix string) ([]domain.SourceFile, error)
}

// TaskEnqueuer adds ingestion tasks to the queue.
type TaskEnqueuer interface {
	Enqueue(ctx context.Context, task *domain.IngestionTask) error
}

// IDGenerator produces unique task identifiers.
type IDGenerator interface {
	NewID() string
}

// DiscoveryResult summarizes one batch discovery run.
type DiscoveryResult struct {
	Status           string `json:"status"`
	TotalFiles       int    `json:"total_files"`
	UnprocessedFiles int    `json:"unprocessed_files"`
	QueuedFiles      int    `json:"queued_files"`
	Message          string `json:"message"`
}

// DiscoveryService scans the document store for unprocessed files and fans
// out one ingestion task per file. Best-effort: per-file enqueue failures
// are logged and skipped; a partial fan-out self-heals on the next run
// because unqueued files remain unprocessed.
type DiscoveryService struct {
	store DiscoveryDocumentStore
	queue TaskEnqueuer
	ids   IDGenerator
	now   func() time.Time
}

// NewDiscoveryService creates a new DiscoveryService instance
func NewDiscoveryService(store DiscoveryDocumentStore, queue TaskEnqueuer, ids IDGenerator) *DiscoveryService {
	return &DiscoveryService{
		store: store,
		queue: queue,
		ids:   ids,
		now:   time.Now,
	}
}

// Run enumerates all source files, partitions them by the processed flag,
// and enqueues one task per unprocessed file. Only a failed enumeration is
// an error; everything downstream degrades to counts in the result.
func (s *DiscoveryService) Run(ctx context.Context) (*DiscoveryResult, error) {
	files, err := s.store.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list source files: %w", err)
	}
	log.Printf("discovery: found %d files in document store", len(files))

	var unprocessed []domain.SourceFile
	for _, f := range files {
		if !f.Processed() {
			unprocessed = append(unprocessed, f)
		}
	}
	log.Printf("discovery: %d files unprocessed", len(unprocessed))

	queued := 0
	for _, f := range unprocessed {
		task := domain.NewIngestionTask(s.ids.NewID(), f, s.now().UTC())
		if err := s.queue.Enqueue(ctx, task); err != nil {
			log.Printf("discovery: failed to queue file %q: %v", f.Name, err)
			continue
		}
		queued++
		log.Printf("discovery: queued file for processing: %s", f.Name)
	}

	return &DiscoveryResult{
		Status:           "success",
		TotalFiles:       len(files),
		UnprocessedFiles: len(unprocessed),
		QueuedFiles:      queued,
		Message:          fmt.Sprintf("Successfully queued %d files for processing", queued),
	}, nil
}
