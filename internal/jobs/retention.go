package jobs

import (
	"context"
	"fmt"
	"log"
	"time"
)

// VectorPurger removes vector entries past their retention window
type VectorPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// RetentionWorker expires old document vectors. Run it with a long poll
// interval, a daily sweep is plenty.
type RetentionWorker struct {
	purger VectorPurger
}

// NewRetentionWorker creates a new RetentionWorker instance
func NewRetentionWorker(purger VectorPurger) *RetentionWorker {
	return &RetentionWorker{purger: purger}
}

// ProcessTasks implements the TaskProcessor interface
func (w *RetentionWorker) ProcessTasks(ctx context.Context) error {
	purged, err := w.purger.PurgeExpired(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to purge expired vectors: %w", err)
	}
	if purged > 0 {
		log.Printf("Retention sweep removed %d expired document vectors", purged)
	}
	return nil
}
