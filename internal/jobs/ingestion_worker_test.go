package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/vea-labs/docpipe/internal/domain"
)

// TestIngestionWorker_ProcessTasks_NoPendingTasks tests when the queue is empty
func TestIngestionWorker_ProcessTasks_NoPendingTasks(t *testing.T) {
	mockRepo := new(MockTaskRepository)
	mockProcessor := new(MockIngestProcessor)

	mockRepo.On("ClaimPending", mock.Anything, DefaultBatchSize).Return([]*domain.IngestionTask{}, nil)

	worker := NewIngestionWorker(mockRepo, mockProcessor, 0)
	err := worker.ProcessTasks(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockProcessor.AssertNotCalled(t, "ProcessTask", mock.Anything, mock.Anything)
}

// TestIngestionWorker_ProcessTasks_Success tests successful task processing
func TestIngestionWorker_ProcessTasks_Success(t *testing.T) {
	mockRepo := new(MockTaskRepository)
	mockProcessor := new(MockIngestProcessor)

	task := &domain.IngestionTask{
		ID:       "task-1",
		FileName: "guide.pdf",
		Status:   domain.TaskStatusProcessing,
	}

	mockRepo.On("ClaimPending", mock.Anything, 10).Return([]*domain.IngestionTask{task}, nil)
	mockProcessor.On("ProcessTask", mock.Anything, task).Return(nil)
	mockRepo.On("UpdateStatus", mock.Anything, "task-1", domain.TaskStatusCompleted, "").Return(nil)

	worker := NewIngestionWorker(mockRepo, mockProcessor, 10)
	err := worker.ProcessTasks(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockProcessor.AssertExpectations(t)
}

// TestIngestionWorker_ProcessTasks_FailureWithRetry tests task failure with retry
func TestIngestionWorker_ProcessTasks_FailureWithRetry(t *testing.T) {
	mockRepo := new(MockTaskRepository)
	mockProcessor := new(MockIngestProcessor)

	task := &domain.IngestionTask{
		ID:       "task-1",
		FileName: "guide.pdf",
		Status:   domain.TaskStatusProcessing,
		Attempts: 0,
	}

	mockRepo.On("ClaimPending", mock.Anything, 10).Return([]*domain.IngestionTask{task}, nil)
	mockProcessor.On("ProcessTask", mock.Anything, task).Return(errors.New("download failed"))
	mockRepo.On("IncrementAttempts", mock.Anything, "task-1").Return(nil)
	mockRepo.On("Requeue", mock.Anything, "task-1", mock.MatchedBy(func(msg string) bool {
		return msg != ""
	})).Return(nil)

	worker := NewIngestionWorker(mockRepo, mockProcessor, 10)
	err := worker.ProcessTasks(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, "task-1", domain.TaskStatusFailed, mock.Anything)
}

// TestIngestionWorker_ProcessTasks_MaxRetriesExceeded tests terminal failure
func TestIngestionWorker_ProcessTasks_MaxRetriesExceeded(t *testing.T) {
	mockRepo := new(MockTaskRepository)
	mockProcessor := new(MockIngestProcessor)

	task := &domain.IngestionTask{
		ID:       "task-1",
		FileName: "guide.pdf",
		Status:   domain.TaskStatusProcessing,
		Attempts: 2, // Already attempted twice
	}

	mockRepo.On("ClaimPending", mock.Anything, 10).Return([]*domain.IngestionTask{task}, nil)
	mockProcessor.On("ProcessTask", mock.Anything, task).Return(errors.New("download failed"))
	mockRepo.On("IncrementAttempts", mock.Anything, "task-1").Return(nil)
	mockRepo.On("UpdateStatus", mock.Anything, "task-1", domain.TaskStatusFailed, mock.MatchedBy(func(msg string) bool {
		return msg != ""
	})).Return(nil)

	worker := NewIngestionWorker(mockRepo, mockProcessor, 10)
	err := worker.ProcessTasks(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockRepo.AssertNotCalled(t, "Requeue", mock.Anything, mock.Anything, mock.Anything)
}

// TestIngestionWorker_ProcessTasks_MultipleTasks tests one task failing does not stop the batch
func TestIngestionWorker_ProcessTasks_MultipleTasks(t *testing.T) {
	mockRepo := new(MockTaskRepository)
	mockProcessor := new(MockIngestProcessor)

	task1 := &domain.IngestionTask{ID: "task-1", FileName: "a.pdf", Status: domain.TaskStatusProcessing}
	task2 := &domain.IngestionTask{ID: "task-2", FileName: "b.pdf", Status: domain.TaskStatusProcessing}

	mockRepo.On("ClaimPending", mock.Anything, 10).Return([]*domain.IngestionTask{task1, task2}, nil)

	mockProcessor.On("ProcessTask", mock.Anything, task1).Return(errors.New("extract failed"))
	mockRepo.On("IncrementAttempts", mock.Anything, "task-1").Return(nil)
	mockRepo.On("Requeue", mock.Anything, "task-1", mock.Anything).Return(nil)

	mockProcessor.On("ProcessTask", mock.Anything, task2).Return(nil)
	mockRepo.On("UpdateStatus", mock.Anything, "task-2", domain.TaskStatusCompleted, "").Return(nil)

	worker := NewIngestionWorker(mockRepo, mockProcessor, 10)
	err := worker.ProcessTasks(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockProcessor.AssertExpectations(t)
}

// TestIngestionWorker_ProcessTasks_RepositoryError tests claim failure handling
func TestIngestionWorker_ProcessTasks_RepositoryError(t *testing.T) {
	mockRepo := new(MockTaskRepository)
	mockProcessor := new(MockIngestProcessor)

	mockRepo.On("ClaimPending", mock.Anything, 10).Return(nil, errors.New("database error"))

	worker := NewIngestionWorker(mockRepo, mockProcessor, 10)
	err := worker.ProcessTasks(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to claim pending tasks")
	mockRepo.AssertExpectations(t)
}

// MockVectorPurger is a mock implementation of VectorPurger
type MockVectorPurger struct {
	mock.Mock
}

func (m *MockVectorPurger) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func TestRetentionWorker_ProcessTasks(t *testing.T) {
	mockPurger := new(MockVectorPurger)
	mockPurger.On("PurgeExpired", mock.Anything, mock.AnythingOfType("time.Time")).Return(int64(2), nil)

	worker := NewRetentionWorker(mockPurger)
	err := worker.ProcessTasks(context.Background())

	assert.NoError(t, err)
	mockPurger.AssertExpectations(t)
}

func TestRetentionWorker_ProcessTasks_Error(t *testing.T) {
	mockPurger := new(MockVectorPurger)
	mockPurger.On("PurgeExpired", mock.Anything, mock.Anything).Return(int64(0), errors.New("database error"))

	worker := NewRetentionWorker(mockPurger)
	err := worker.ProcessTasks(context.Background())

	assert.Error(t, err)
}
