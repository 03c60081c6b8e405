package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vea-labs/docpipe/internal/domain"
)

// IngestionTaskRepository persists the ingestion work queue. Claiming uses
// FOR UPDATE SKIP LOCKED so multiple workers never process the same task.
type IngestionTaskRepository struct {
	db dbtx
}

func NewIngestionTaskRepository(pool *pgxpool.Pool) *IngestionTaskRepository {
	return &IngestionTaskRepository{db: pool}
}

func NewIngestionTaskRepositoryWithTx(tx pgx.Tx) *IngestionTaskRepository {
	return &IngestionTaskRepository{db: tx}
}

func (r *IngestionTaskRepository) Enqueue(ctx context.Context, task *domain.IngestionTask) error {
	if err := domain.ValidateIngestionTask(task); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO ingestion_tasks (id, file_name, content_type, file_size, status, attempts, error, created_at, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		task.ID, task.FileName, task.ContentType, task.FileSize, task.Status,
		task.Attempts, nullableString(task.Error), task.CreatedAt, task.ProcessedAt,
	)
	return err
}

func (r *IngestionTaskRepository) GetByID(ctx context.Context, id string) (*domain.IngestionTask, error) {
	var task domain.IngestionTask
	var errMsg pgtype.Text
	err := r.db.QueryRow(ctx,
		`SELECT id, file_name, content_type, file_size, status, attempts, error, created_at, processed_at
		 FROM ingestion_tasks WHERE id = $1`,
		id,
	).Scan(&task.ID, &task.FileName, &task.ContentType, &task.FileSize, &task.Status,
		&task.Attempts, &errMsg, &task.CreatedAt, &task.ProcessedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}
	if errMsg.Valid {
		task.Error = errMsg.String
	}
	return &task, nil
}

// ClaimPending atomically moves up to limit pending tasks to processing and
// returns them in creation order.
func (r *IngestionTaskRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.IngestionTask, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(ctx,
		`WITH cte AS (
			 SELECT id
			 FROM ingestion_tasks
			 WHERE status = $1
			 ORDER BY created_at ASC
			 FOR UPDATE SKIP LOCKED
			 LIMIT $2
		 )
		 UPDATE ingestion_tasks
		 SET status = $3,
		     error = NULL,
		     processed_at = NULL
		 FROM cte
		 WHERE ingestion_tasks.id = cte.id
		 RETURNING ingestion_tasks.id, ingestion_tasks.file_name, ingestion_tasks.content_type,
		           ingestion_tasks.file_size, ingestion_tasks.status, ingestion_tasks.attempts,
		           ingestion_tasks.error, ingestion_tasks.created_at, ingestion_tasks.processed_at`,
		domain.TaskStatusPending, limit, domain.TaskStatusProcessing,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*domain.IngestionTask
	for rows.Next() {
		var task domain.IngestionTask
		var errMsg pgtype.Text
		if err := rows.Scan(&task.ID, &task.FileName, &task.ContentType, &task.FileSize,
			&task.Status, &task.Attempts, &errMsg, &task.CreatedAt, &task.ProcessedAt); err != nil {
			return nil, err
		}
		if errMsg.Valid {
			task.Error = errMsg.String
		}
		tasks = append(tasks, &task)
	}

	return tasks, rows.Err()
}

func (r *IngestionTaskRepository) UpdateStatus(ctx context.Context, id string, status domain.TaskStatus, errMsg string) error {
	var processedAt *time.Time
	if status == domain.TaskStatusCompleted || status == domain.TaskStatusFailed {
		now := time.Now().UTC()
		processedAt = &now
	}

	cmdTag, err := r.db.Exec(ctx,
		`UPDATE ingestion_tasks SET status = $1, error = $2, processed_at = $3 WHERE id = $4`,
		status, nullableString(errMsg), processedAt, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

// Requeue moves a failed attempt back to pending so a later poll retries it.
func (r *IngestionTaskRepository) Requeue(ctx context.Context, id string, errMsg string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE ingestion_tasks SET status = $1, error = $2, processed_at = NULL WHERE id = $3`,
		domain.TaskStatusPending, nullableString(errMsg), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (r *IngestionTaskRepository) IncrementAttempts(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE ingestion_tasks SET attempts = attempts + 1 WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

// CountByStatus reports queue depth per status for the batch trigger response.
func (r *IngestionTaskRepository) CountByStatus(ctx context.Context, status domain.TaskStatus) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM ingestion_tasks WHERE status = $1`,
		status,
	).Scan(&count)
	return count, err
}
