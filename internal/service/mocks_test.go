package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/vea-labs/docpipe/internal/domain"
)

// MockDocumentStore mocks the document store for discovery and ingestion
type MockDocumentStore struct {
	mock.Mock
}

func (m *MockDocumentStore) List(ctx context.Context, prefix string) ([]domain.SourceFile, error) {
	args := m.Called(ctx, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SourceFile), args.Error(1)
}

func (m *MockDocumentStore) Download(ctx context.Context, name, path string) error {
	args := m.Called(ctx, name, path)
	return args.Error(0)
}

func (m *MockDocumentStore) GetMetadata(ctx context.Context, name string) (map[string]string, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *MockDocumentStore) UpdateMetadata(ctx context.Context, name string, updates map[string]string) error {
	args := m.Called(ctx, name, updates)
	return args.Error(0)
}

// MockTaskQueue mocks the task queue
type MockTaskQueue struct {
	mock.Mock
}

func (m *MockTaskQueue) Enqueue(ctx context.Context, task *domain.IngestionTask) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

// MockExtractor mocks the text extractor dispatcher
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, path, filename, contentType string) (string, error) {
	args := m.Called(ctx, path, filename, contentType)
	return args.String(0), args.Error(1)
}

// MockEmbeddingClient mocks the OpenAI embedding client
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// MockVectorStore mocks the vector store
type MockVectorStore struct {
	mock.Mock
}

func (m *MockVectorStore) Upsert(ctx context.Context, entry *domain.VectorEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockVectorStore) Search(ctx context.Context, embedding []float32, topK int) ([]domain.SearchResult, error) {
	args := m.Called(ctx, embedding, topK)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SearchResult), args.Error(1)
}

// MockChatClient mocks the chat completion client
type MockChatClient struct {
	mock.Mock
}

func (m *MockChatClient) GenerateChatCompletion(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	args := m.Called(ctx, systemPrompt, userMessage)
	return args.String(0), args.Error(1)
}

// stubIDGenerator returns predictable task identifiers
type stubIDGenerator struct {
	next int
}

func (g *stubIDGenerator) NewID() string {
	g.next++
	return map[int]string{1: "task-1", 2: "task-2", 3: "task-3"}[g.next]
}
