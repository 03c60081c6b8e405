package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/vea-labs/docpipe/internal/domain"
)

const (
	// MaxRetries is the maximum number of attempts for a failed task
	MaxRetries = 3

	// DefaultBatchSize bounds how many tasks one poll claims
	DefaultBatchSize = 10
)

// TaskRepository defines the interface for ingestion task persistence
type TaskRepository interface {
	// ClaimPending atomically claims up to limit pending tasks
	ClaimPending(ctx context.Context, limit int) ([]*domain.IngestionTask, error)

	// UpdateStatus updates the status of a task
	UpdateStatus(ctx context.Context, id string, status domain.TaskStatus, errMsg string) error

	// Requeue returns a failed task to pending for a later attempt
	Requeue(ctx context.Context, id string, errMsg string) error

	// IncrementAttempts increments the attempt count for a task
	IncrementAttempts(ctx context.Context, id string) error
}

// IngestProcessor runs the ingestion pipeline for one task
type IngestProcessor interface {
	ProcessTask(ctx context.Context, task *domain.IngestionTask) error
}

// IngestionWorker drains the ingestion task queue
type IngestionWorker struct {
	repo      TaskRepository
	processor IngestProcessor
	batchSize int
}

// NewIngestionWorker creates a new IngestionWorker instance
func NewIngestionWorker(repo TaskRepository, processor IngestProcessor, batchSize int) *IngestionWorker {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &IngestionWorker{
		repo:      repo,
		processor: processor,
		batchSize: batchSize,
	}
}

// ProcessTasks implements the TaskProcessor interface
func (w *IngestionWorker) ProcessTasks(ctx context.Context) error {
	tasks, err := w.repo.ClaimPending(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("failed to claim pending tasks: %w", err)
	}

	if len(tasks) == 0 {
		return nil
	}

	log.Printf("Processing %d pending ingestion tasks", len(tasks))

	for _, task := range tasks {
		if err := w.processTask(ctx, task); err != nil {
			log.Printf("Error processing task %s: %v", task.ID, err)
		}
	}

	return nil
}

func (w *IngestionWorker) processTask(ctx context.Context, task *domain.IngestionTask) error {
	log.Printf("Processing task %s for file %q", task.ID, task.FileName)

	if err := w.processor.ProcessTask(ctx, task); err != nil {
		return w.handleTaskFailure(ctx, task, err)
	}

	if err := w.repo.UpdateStatus(ctx, task.ID, domain.TaskStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to update task status to completed: %w", err)
	}

	log.Printf("Task %s completed successfully", task.ID)
	return nil
}

// handleTaskFailure handles a failed task with retry logic
func (w *IngestionWorker) handleTaskFailure(ctx context.Context, task *domain.IngestionTask, taskErr error) error {
	log.Printf("Task %s failed: %v", task.ID, taskErr)

	if err := w.repo.IncrementAttempts(ctx, task.ID); err != nil {
		return fmt.Errorf("failed to increment attempts: %w", err)
	}

	if task.Attempts+1 >= MaxRetries {
		log.Printf("Task %s exceeded max retries (%d), marking as failed", task.ID, MaxRetries)
		errMsg := fmt.Sprintf("max retries exceeded: %v", taskErr)
		if err := w.repo.UpdateStatus(ctx, task.ID, domain.TaskStatusFailed, errMsg); err != nil {
			return fmt.Errorf("failed to update task status to failed: %w", err)
		}
		return nil
	}

	log.Printf("Task %s will be retried (attempt %d/%d)", task.ID, task.Attempts+1, MaxRetries)
	errMsg := fmt.Sprintf("attempt %d: %v", task.Attempts+1, taskErr)
	if err := w.repo.Requeue(ctx, task.ID, errMsg); err != nil {
		return fmt.Errorf("failed to requeue task: %w", err)
	}

	return nil
}
