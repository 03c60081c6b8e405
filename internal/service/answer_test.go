package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/vea-labs/docpipe/internal/domain"
)

func TestAnswerService_Answer_Grounded(t *testing.T) {
	mockEmbedder := new(MockEmbeddingClient)
	mockSearcher := new(MockVectorStore)
	mockChat := new(MockChatClient)
	svc := NewAnswerService(mockEmbedder, mockSearcher, mockChat)

	ctx := context.Background()
	embedding := []float32{0.1, 0.2, 0.3}
	mockEmbedder.On("GenerateEmbedding", ctx, "What is the refund policy?").Return(embedding, nil)
	mockSearcher.On("Search", ctx, embedding, 3).Return([]domain.SearchResult{
		{Filename: "policy.pdf", Text: "Refunds are issued within 30 days.", Score: 0.91},
	}, nil)
	mockChat.On("GenerateChatCompletion", ctx, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, "Document 1 (source: policy.pdf):") &&
			strings.Contains(prompt, "Refunds are issued within 30 days.")
	}), "What is the refund policy?").Return("Refunds are issued within 30 days.", nil)

	answer := svc.Answer(ctx, "What is the refund policy?")

	assert.Equal(t, "Refunds are issued within 30 days.", answer)
	mockChat.AssertExpectations(t)
}

func TestAnswerService_Answer_ThresholdBoundary(t *testing.T) {
	mockEmbedder := new(MockEmbeddingClient)
	mockSearcher := new(MockVectorStore)
	mockChat := new(MockChatClient)
	svc := NewAnswerService(mockEmbedder, mockSearcher, mockChat)

	ctx := context.Background()
	mockEmbedder.On("GenerateEmbedding", ctx, mock.Anything).Return([]float32{1}, nil)
	// Only the first candidate clears the strictly-greater 0.7 threshold.
	mockSearcher.On("Search", ctx, mock.Anything, 3).Return([]domain.SearchResult{
		{Filename: "a.txt", Text: "alpha content", Score: 0.72},
		{Filename: "b.txt", Text: "beta content", Score: 0.65},
		{Filename: "c.txt", Text: "gamma content", Score: 0.5},
	}, nil)
	mockChat.On("GenerateChatCompletion", ctx, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, "alpha content") &&
			!strings.Contains(prompt, "beta content") &&
			!strings.Contains(prompt, "gamma content")
	}), mock.Anything).Return("grounded answer", nil)

	answer := svc.Answer(ctx, "question")

	assert.Equal(t, "grounded answer", answer)
	mockChat.AssertExpectations(t)
}

func TestAnswerService_Answer_NoRelevantResultsFallsBackToGeneric(t *testing.T) {
	mockEmbedder := new(MockEmbeddingClient)
	mockSearcher := new(MockVectorStore)
	mockChat := new(MockChatClient)
	svc := NewAnswerService(mockEmbedder, mockSearcher, mockChat)

	ctx := context.Background()
	mockEmbedder.On("GenerateEmbedding", ctx, mock.Anything).Return([]float32{1}, nil)
	mockSearcher.On("Search", ctx, mock.Anything, 3).Return([]domain.SearchResult{}, nil)
	mockChat.On("GenerateChatCompletion", ctx, mock.MatchedBy(func(prompt string) bool {
		return !strings.Contains(prompt, "Document 1")
	}), "question").Return("general knowledge answer", nil)

	answer := svc.Answer(ctx, "question")

	assert.Equal(t, "general knowledge answer", answer)
}

func TestAnswerService_Answer_EmbeddingFailureDegradesToGeneric(t *testing.T) {
	mockEmbedder := new(MockEmbeddingClient)
	mockSearcher := new(MockVectorStore)
	mockChat := new(MockChatClient)
	svc := NewAnswerService(mockEmbedder, mockSearcher, mockChat)

	ctx := context.Background()
	mockEmbedder.On("GenerateEmbedding", ctx, mock.Anything).Return(nil, errors.New("quota exceeded"))
	mockChat.On("GenerateChatCompletion", ctx, mock.Anything, mock.Anything).Return("generic answer", nil)

	answer := svc.Answer(ctx, "question")

	assert.Equal(t, "generic answer", answer)
	mockSearcher.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything)
}

func TestAnswerService_Answer_ChatFailureReturnsFallback(t *testing.T) {
	mockEmbedder := new(MockEmbeddingClient)
	mockSearcher := new(MockVectorStore)
	mockChat := new(MockChatClient)
	svc := NewAnswerService(mockEmbedder, mockSearcher, mockChat)

	ctx := context.Background()
	mockEmbedder.On("GenerateEmbedding", ctx, mock.Anything).Return([]float32{1}, nil)
	mockSearcher.On("Search", ctx, mock.Anything, 3).Return([]domain.SearchResult{}, nil)
	mockChat.On("GenerateChatCompletion", ctx, mock.Anything, mock.Anything).
		Return("", errors.New("model overloaded"))

	answer := svc.Answer(ctx, "question")

	assert.Equal(t, FallbackAnswer, answer)
	assert.NotEmpty(t, answer)
}

func TestAnswerService_Answer_SnippetTruncation(t *testing.T) {
	mockEmbedder := new(MockEmbeddingClient)
	mockSearcher := new(MockVectorStore)
	mockChat := new(MockChatClient)
	svc := NewAnswerService(mockEmbedder, mockSearcher, mockChat)

	ctx := context.Background()
	longText := strings.Repeat("x", 600)
	mockEmbedder.On("GenerateEmbedding", ctx, mock.Anything).Return([]float32{1}, nil)
	mockSearcher.On("Search", ctx, mock.Anything, 3).Return([]domain.SearchResult{
		{Filename: "big.txt", Text: longText, Score: 0.9},
	}, nil)
	mockChat.On("GenerateChatCompletion", ctx, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, strings.Repeat("x", 500)) &&
			!strings.Contains(prompt, strings.Repeat("x", 501))
	}), mock.Anything).Return("ok", nil)

	answer := svc.Answer(ctx, "question")

	assert.Equal(t, "ok", answer)
	mockChat.AssertExpectations(t)
}

func TestBuildContextBlock_TruncatesOnRuneBoundary(t *testing.T) {
	// Two-byte runes: a byte-indexed cut at 500 would land mid-rune and
	// leave invalid UTF-8 in the prompt.
	results := []domain.SearchResult{
		{Filename: "accents.txt", Text: strings.Repeat("é", 600)},
	}

	block := buildContextBlock(results)

	assert.True(t, utf8.ValidString(block))
	assert.Contains(t, block, strings.Repeat("é", 500))
	assert.NotContains(t, block, strings.Repeat("é", 501))
}

func TestBuildContextBlock(t *testing.T) {
	results := []domain.SearchResult{
		{Filename: "first.pdf", Text: "first body"},
		{Filename: "second.txt", Text: "second body"},
	}

	block := buildContextBlock(results)

	assert.Contains(t, block, "Document 1 (source: first.pdf):\nfirst body")
	assert.Contains(t, block, "Document 2 (source: second.txt):\nsecond body")
}
