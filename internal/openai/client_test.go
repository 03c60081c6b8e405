package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockOpenAIAPI is a mock for the OpenAI API
type MockOpenAIAPI struct {
	mock.Mock
}

func (m *MockOpenAIAPI) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockOpenAIAPI) CreateChatCompletion(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	args := m.Called(ctx, systemPrompt, userMessage)
	return args.String(0), args.Error(1)
}

func TestClient_GenerateEmbedding_Success(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI, dimensions: 1536}

	ctx := context.Background()
	text := "This is a test document about Go programming."
	expectedEmbedding := make([]float32, 1536)
	for i := range expectedEmbedding {
		expectedEmbedding[i] = float32(i) * 0.001
	}

	mockAPI.On("CreateEmbeddings", ctx, text).Return(expectedEmbedding, nil)

	embedding, err := client.GenerateEmbedding(ctx, text)

	assert.NoError(t, err)
	assert.Len(t, embedding, 1536)
	assert.Equal(t, expectedEmbedding, embedding)
	mockAPI.AssertExpectations(t)
}

func TestClient_GenerateEmbedding_EmptyText(t *testing.T) {
	client := NewClient("")

	_, err := client.GenerateEmbedding(context.Background(), "")

	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestClient_GenerateEmbedding_WrongDimensions(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI, dimensions: 1536}

	ctx := context.Background()
	mockAPI.On("CreateEmbeddings", ctx, "short vector").Return([]float32{0.1, 0.2, 0.3}, nil)

	_, err := client.GenerateEmbedding(ctx, "short vector")

	assert.ErrorIs(t, err, ErrWrongDimensions)
	mockAPI.AssertExpectations(t)
}

func TestClient_GenerateEmbedding_APIError(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI, dimensions: 1536}

	ctx := context.Background()
	mockAPI.On("CreateEmbeddings", ctx, "failing text").Return(nil, errors.New("rate limited"))

	_, err := client.GenerateEmbedding(ctx, "failing text")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
	mockAPI.AssertExpectations(t)
}

func TestClient_GenerateChatCompletion_Success(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI, dimensions: 1536}

	ctx := context.Background()
	mockAPI.On("CreateChatCompletion", ctx, "You are a helpful assistant.", "What is Go?").
		Return("Go is a programming language.", nil)

	answer, err := client.GenerateChatCompletion(ctx, "You are a helpful assistant.", "What is Go?")

	assert.NoError(t, err)
	assert.Equal(t, "Go is a programming language.", answer)
	mockAPI.AssertExpectations(t)
}

func TestClient_GenerateChatCompletion_EmptyMessage(t *testing.T) {
	client := NewClient("")

	_, err := client.GenerateChatCompletion(context.Background(), "system", "")

	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestClient_GenerateChatCompletion_APIError(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI, dimensions: 1536}

	ctx := context.Background()
	mockAPI.On("CreateChatCompletion", ctx, "", "question").Return("", errors.New("service unavailable"))

	_, err := client.GenerateChatCompletion(ctx, "", "question")

	assert.Error(t, err)
	mockAPI.AssertExpectations(t)
}
