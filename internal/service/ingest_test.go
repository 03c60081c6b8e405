package service

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vea-labs/docpipe/internal/domain"
)

func newTestIngestService(
	store *MockDocumentStore,
	extractor *MockExtractor,
	embedder *MockEmbeddingClient,
	vectors *MockVectorStore,
) *IngestService {
	svc := NewIngestService(store, extractor, embedder, vectors, DefaultChunkConfig(), 90*24*time.Hour)
	svc.now = func() time.Time { return time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC) }
	return svc
}

func downloadWriting(content []byte) func(mock.Arguments) {
	return func(args mock.Arguments) {
		_ = os.WriteFile(args.String(2), content, 0o644)
	}
}

func task(name, contentType string, size int64) *domain.IngestionTask {
	return domain.NewIngestionTask("task-1", domain.SourceFile{
		Name:        name,
		ContentType: contentType,
		Size:        size,
	}, time.Now())
}

func TestIngestService_ProcessTask_EndToEnd(t *testing.T) {
	mockStore := new(MockDocumentStore)
	mockExtractor := new(MockExtractor)
	mockEmbedder := new(MockEmbeddingClient)
	mockVectors := new(MockVectorStore)
	svc := newTestIngestService(mockStore, mockExtractor, mockEmbedder, mockVectors)

	ctx := context.Background()
	// 2500 characters without sentence terminators: three chunks with the
	// default 1000/100 window.
	text := strings.Repeat("a", 1000) + strings.Repeat("b", 1000) + strings.Repeat("c", 500)
	vec := []float32{0.1, 0.2, 0.3, 0.4, 0.5}

	mockStore.On("Download", ctx, "guide.txt", mock.AnythingOfType("string")).
		Run(downloadWriting([]byte(text))).Return(nil)
	mockStore.On("GetMetadata", ctx, "guide.txt").Return(map[string]string{
		"upload_date": "2025-03-01T10:00:00Z",
		"file_size":   "2500",
	}, nil)
	mockExtractor.On("Extract", ctx, mock.AnythingOfType("string"), "guide.txt", "text/plain").Return(text, nil)
	mockEmbedder.On("GenerateEmbedding", ctx, mock.AnythingOfType("string")).Return(vec, nil).Times(3)

	var stored *domain.VectorEntry
	mockVectors.On("Upsert", ctx, mock.AnythingOfType("*domain.VectorEntry")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*domain.VectorEntry) }).Return(nil)
	mockStore.On("UpdateMetadata", ctx, "guide.txt", mock.MatchedBy(func(updates map[string]string) bool {
		return updates[domain.MetaProcessed] == "true" && updates[domain.MetaChunksCount] == "3"
	})).Return(nil)

	err := svc.ProcessTask(ctx, task("guide.txt", "text/plain", 2500))

	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 3, stored.ChunksCount)
	// All chunk vectors are identical, so the average equals the mock vector.
	assert.InDeltaSlice(t, vec, stored.Embedding, 1e-6)
	assert.Equal(t, "guide.txt", stored.Filename)
	assert.Equal(t, "text/plain", stored.ContentType)
	assert.Equal(t, int64(2500), stored.FileSize)
	assert.True(t, stored.EmbeddingsGenerated)
	assert.Equal(t, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), stored.UploadDate)
	assert.Equal(t, time.Date(2025, 6, 12, 9, 26, 53, 0, time.UTC), stored.ExpiresAt)
	assert.True(t, strings.HasPrefix(stored.DocumentID, stored.DedupKey))
	mockStore.AssertExpectations(t)
	mockVectors.AssertExpectations(t)
}

func TestIngestService_ProcessTask_EmptyExtractionStopsCleanly(t *testing.T) {
	mockStore := new(MockDocumentStore)
	mockExtractor := new(MockExtractor)
	mockEmbedder := new(MockEmbeddingClient)
	mockVectors := new(MockVectorStore)
	svc := newTestIngestService(mockStore, mockExtractor, mockEmbedder, mockVectors)

	ctx := context.Background()
	mockStore.On("Download", ctx, "setup.exe", mock.AnythingOfType("string")).
		Run(downloadWriting([]byte{0x4d, 0x5a})).Return(nil)
	mockStore.On("GetMetadata", ctx, "setup.exe").Return(map[string]string{}, nil)
	mockExtractor.On("Extract", ctx, mock.AnythingOfType("string"), "setup.exe", "application/octet-stream").
		Return("", nil)

	err := svc.ProcessTask(ctx, task("setup.exe", "application/octet-stream", 2))

	require.NoError(t, err)
	mockEmbedder.AssertNotCalled(t, "GenerateEmbedding", mock.Anything, mock.Anything)
	mockVectors.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	mockStore.AssertNotCalled(t, "UpdateMetadata", mock.Anything, mock.Anything, mock.Anything)
}

func TestIngestService_ProcessTask_PartialChunkFailure(t *testing.T) {
	mockStore := new(MockDocumentStore)
	mockExtractor := new(MockExtractor)
	mockEmbedder := new(MockEmbeddingClient)
	mockVectors := new(MockVectorStore)
	svc := newTestIngestService(mockStore, mockExtractor, mockEmbedder, mockVectors)

	ctx := context.Background()
	text := strings.Repeat("a", 1000) + strings.Repeat("b", 1000) + strings.Repeat("c", 500)

	mockStore.On("Download", ctx, "doc.txt", mock.AnythingOfType("string")).
		Run(downloadWriting([]byte(text))).Return(nil)
	mockStore.On("GetMetadata", ctx, "doc.txt").Return(map[string]string{}, nil)
	mockExtractor.On("Extract", ctx, mock.AnythingOfType("string"), "doc.txt", "text/plain").Return(text, nil)

	// The middle chunk fails to embed; it is skipped, not fatal.
	middleChunk := text[900:1900]
	mockEmbedder.On("GenerateEmbedding", ctx, middleChunk).Return(nil, errors.New("rate limited"))
	mockEmbedder.On("GenerateEmbedding", ctx, text[:1000]).Return([]float32{1, 2, 3}, nil)
	mockEmbedder.On("GenerateEmbedding", ctx, text[1800:]).Return([]float32{3, 4, 5}, nil)

	var stored *domain.VectorEntry
	mockVectors.On("Upsert", ctx, mock.AnythingOfType("*domain.VectorEntry")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*domain.VectorEntry) }).Return(nil)
	mockStore.On("UpdateMetadata", ctx, "doc.txt", mock.MatchedBy(func(updates map[string]string) bool {
		return updates[domain.MetaChunksCount] == "2"
	})).Return(nil)

	err := svc.ProcessTask(ctx, task("doc.txt", "text/plain", 2500))

	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 2, stored.ChunksCount)
	assert.Equal(t, []float32{2, 3, 4}, stored.Embedding)
}

func TestIngestService_ProcessTask_AllChunksFailLeavesUnprocessed(t *testing.T) {
	mockStore := new(MockDocumentStore)
	mockExtractor := new(MockExtractor)
	mockEmbedder := new(MockEmbeddingClient)
	mockVectors := new(MockVectorStore)
	svc := newTestIngestService(mockStore, mockExtractor, mockEmbedder, mockVectors)

	ctx := context.Background()
	mockStore.On("Download", ctx, "doc.txt", mock.AnythingOfType("string")).
		Run(downloadWriting([]byte("some text"))).Return(nil)
	mockStore.On("GetMetadata", ctx, "doc.txt").Return(map[string]string{}, nil)
	mockExtractor.On("Extract", ctx, mock.AnythingOfType("string"), "doc.txt", "text/plain").
		Return("some text", nil)
	mockEmbedder.On("GenerateEmbedding", ctx, mock.AnythingOfType("string")).
		Return(nil, errors.New("service down"))

	err := svc.ProcessTask(ctx, task("doc.txt", "text/plain", 9))

	require.NoError(t, err)
	mockVectors.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	mockStore.AssertNotCalled(t, "UpdateMetadata", mock.Anything, mock.Anything, mock.Anything)
}

func TestIngestService_ProcessTask_DownloadFailureIsFatal(t *testing.T) {
	mockStore := new(MockDocumentStore)
	mockExtractor := new(MockExtractor)
	mockEmbedder := new(MockEmbeddingClient)
	mockVectors := new(MockVectorStore)
	svc := newTestIngestService(mockStore, mockExtractor, mockEmbedder, mockVectors)

	ctx := context.Background()
	mockStore.On("Download", ctx, "doc.txt", mock.AnythingOfType("string")).
		Return(errors.New("connection refused"))

	err := svc.ProcessTask(ctx, task("doc.txt", "text/plain", 10))

	assert.Error(t, err)
	mockExtractor.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestIngestService_ProcessTask_UpsertFailureIsFatal(t *testing.T) {
	mockStore := new(MockDocumentStore)
	mockExtractor := new(MockExtractor)
	mockEmbedder := new(MockEmbeddingClient)
	mockVectors := new(MockVectorStore)
	svc := newTestIngestService(mockStore, mockExtractor, mockEmbedder, mockVectors)

	ctx := context.Background()
	mockStore.On("Download", ctx, "doc.txt", mock.AnythingOfType("string")).
		Run(downloadWriting([]byte("short doc"))).Return(nil)
	mockStore.On("GetMetadata", ctx, "doc.txt").Return(map[string]string{}, nil)
	mockExtractor.On("Extract", ctx, mock.AnythingOfType("string"), "doc.txt", "text/plain").
		Return("short doc", nil)
	mockEmbedder.On("GenerateEmbedding", ctx, "short doc").Return([]float32{1, 2}, nil)
	mockVectors.On("Upsert", ctx, mock.AnythingOfType("*domain.VectorEntry")).
		Return(errors.New("vector store down"))

	err := svc.ProcessTask(ctx, task("doc.txt", "text/plain", 9))

	assert.Error(t, err)
	mockStore.AssertNotCalled(t, "UpdateMetadata", mock.Anything, mock.Anything, mock.Anything)
}

func TestIngestService_ProcessTask_MarkFailureIsBestEffort(t *testing.T) {
	mockStore := new(MockDocumentStore)
	mockExtractor := new(MockExtractor)
	mockEmbedder := new(MockEmbeddingClient)
	mockVectors := new(MockVectorStore)
	svc := newTestIngestService(mockStore, mockExtractor, mockEmbedder, mockVectors)

	ctx := context.Background()
	mockStore.On("Download", ctx, "doc.txt", mock.AnythingOfType("string")).
		Run(downloadWriting([]byte("short doc"))).Return(nil)
	mockStore.On("GetMetadata", ctx, "doc.txt").Return(map[string]string{}, nil)
	mockExtractor.On("Extract", ctx, mock.AnythingOfType("string"), "doc.txt", "text/plain").
		Return("short doc", nil)
	mockEmbedder.On("GenerateEmbedding", ctx, "short doc").Return([]float32{1, 2}, nil)
	mockVectors.On("Upsert", ctx, mock.AnythingOfType("*domain.VectorEntry")).Return(nil)
	mockStore.On("UpdateMetadata", ctx, "doc.txt", mock.Anything).
		Return(errors.New("metadata service down"))

	err := svc.ProcessTask(ctx, task("doc.txt", "text/plain", 9))

	assert.NoError(t, err)
}

func TestIngestService_ProcessTask_ScratchFileRemoved(t *testing.T) {
	mockStore := new(MockDocumentStore)
	mockExtractor := new(MockExtractor)
	mockEmbedder := new(MockEmbeddingClient)
	mockVectors := new(MockVectorStore)
	svc := newTestIngestService(mockStore, mockExtractor, mockEmbedder, mockVectors)

	ctx := context.Background()
	var scratchPath string
	mockStore.On("Download", ctx, "doc.txt", mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) {
			scratchPath = args.String(2)
			_ = os.WriteFile(scratchPath, []byte("content"), 0o644)
		}).Return(nil)
	mockStore.On("GetMetadata", ctx, "doc.txt").Return(nil, errors.New("metadata unavailable"))

	err := svc.ProcessTask(ctx, task("doc.txt", "text/plain", 7))

	require.Error(t, err)
	require.NotEmpty(t, scratchPath)
	_, statErr := os.Stat(scratchPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestIngestService_ProcessTask_InvalidTask(t *testing.T) {
	svc := newTestIngestService(new(MockDocumentStore), new(MockExtractor), new(MockEmbeddingClient), new(MockVectorStore))

	err := svc.ProcessTask(context.Background(), nil)

	assert.Error(t, err)
}
