package domain

import (
	"fmt"
	"time"
)

// TaskStatus represents the status of an ingestion task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// IngestionTask is one queued unit of work: process a single source file
// end-to-end. Delivery is at-least-once; duplicate execution is safe because
// vector upserts are keyed by content-derived dedup keys.
type IngestionTask struct {
	ID          string
	FileName    string
	ContentType string
	FileSize    int64
	Status      TaskStatus
	Attempts    int32
	Error       string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// NewIngestionTask creates a pending task for the given source file.
func NewIngestionTask(id string, file SourceFile, createdAt time.Time) *IngestionTask {
	return &IngestionTask{
		ID:          id,
		FileName:    file.Name,
		ContentType: file.ContentType,
		FileSize:    file.Size,
		Status:      TaskStatusPending,
		CreatedAt:   createdAt,
	}
}

// ValidateIngestionTask validates an IngestionTask instance
func ValidateIngestionTask(t *IngestionTask) error {
	if t == nil {
		return fmt.Errorf("ingestion task cannot be nil")
	}

	if t.ID == "" {
		return fmt.Errorf("ingestion task ID is required")
	}

	if t.FileName == "" {
		return fmt.Errorf("ingestion task FileName is required")
	}

	if !isValidTaskStatus(t.Status) {
		return fmt.Errorf("ingestion task Status is invalid: %s", t.Status)
	}

	if t.Attempts < 0 {
		return fmt.Errorf("ingestion task Attempts cannot be negative")
	}

	return nil
}

func isValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskStatusPending, TaskStatusProcessing, TaskStatusCompleted, TaskStatusFailed:
		return true
	}
	return false
}
