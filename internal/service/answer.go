package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/vea-labs/docpipe/internal/domain"
	"github.com/vea-labs/docpipe/internal/telemetry"
)

const (
	// answerTopK is how many candidates are retrieved per question.
	answerTopK = 3
	// answerScoreThreshold is the minimum similarity for a candidate to be
	// used as grounding context.
	answerScoreThreshold = 0.7
	// answerSnippetMaxChars truncates each context snippet.
	answerSnippetMaxChars = 500

	answerPersona = "You are a helpful assistant that answers questions " +
		"about the organization's document library. Be concise and factual."

	groundedInstruction = "Answer the question using the documents below. " +
		"If they do not contain the answer, say so clearly."

	// FallbackAnswer is returned whenever answer generation fails.
	FallbackAnswer = "Sorry, I could not process your question right now. Please try again in a moment."
)

// VectorSearcher answers nearest-neighbor queries over stored document
// vectors. Implementations return up to topK results ordered by decreasing
// similarity without applying any score threshold.
type VectorSearcher interface {
	Search(ctx context.Context, embedding []float32, topK int) ([]domain.SearchResult, error)
}

// ChatClient generates a completion from a system prompt and user message.
type ChatClient interface {
	GenerateChatCompletion(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

// AnswerService composes retrieval-augmented answers: embed the question,
// retrieve candidates, and generate either a context-grounded or a generic
// answer. It never returns an error to its caller; every failure path
// degrades to a generic answer or the fixed fallback sentence.
type AnswerService struct {
	embedder EmbeddingClient
	searcher VectorSearcher
	chat     ChatClient
}

// NewAnswerService creates a new AnswerService instance
func NewAnswerService(embedder EmbeddingClient, searcher VectorSearcher, chat ChatClient) *AnswerService {
	return &AnswerService{
		embedder: embedder,
		searcher: searcher,
		chat:     chat,
	}
}

// Answer produces a response to the question. Always returns a non-empty
// string.
func (s *AnswerService) Answer(ctx context.Context, question string) string {
	ctx, span := telemetry.StartSpan(ctx, "answer.compose", telemetry.SpanAttributes{
		Operation: "answer",
	})
	defer span.End()

	relevant := s.retrieveContext(ctx, question)

	if len(relevant) == 0 {
		return s.generateGeneric(ctx, question)
	}
	return s.generateGrounded(ctx, question, relevant)
}

// retrieveContext embeds the question, queries the vector store, and keeps
// only candidates above the similarity threshold. Any failure degrades to
// an empty context, never an error.
func (s *AnswerService) retrieveContext(ctx context.Context, question string) []domain.SearchResult {
	embedding, err := s.embedder.GenerateEmbedding(ctx, question)
	if err != nil {
		log.Printf("answer: failed to embed question: %v", err)
		return nil
	}

	results, err := s.searcher.Search(ctx, embedding, answerTopK)
	if err != nil {
		log.Printf("answer: vector search failed: %v", err)
		return nil
	}

	// The store returns all top-k regardless of score; the threshold is
	// applied here.
	var relevant []domain.SearchResult
	for _, r := range results {
		if r.Score > answerScoreThreshold {
			relevant = append(relevant, r)
		}
	}
	return relevant
}

func (s *AnswerService) generateGrounded(ctx context.Context, question string, results []domain.SearchResult) string {
	systemPrompt := answerPersona + "\n\n" + groundedInstruction + "\n\n" + buildContextBlock(results)

	answer, err := s.chat.GenerateChatCompletion(ctx, systemPrompt, question)
	if err != nil || strings.TrimSpace(answer) == "" {
		log.Printf("answer: grounded generation failed: %v", err)
		return FallbackAnswer
	}
	return answer
}

func (s *AnswerService) generateGeneric(ctx context.Context, question string) string {
	answer, err := s.chat.GenerateChatCompletion(ctx, answerPersona, question)
	if err != nil || strings.TrimSpace(answer) == "" {
		log.Printf("answer: generic generation failed: %v", err)
		return FallbackAnswer
	}
	return answer
}

func buildContextBlock(results []domain.SearchResult) string {
	var b strings.Builder
	for i, r := range results {
		snippet := r.Text
		if runes := []rune(snippet); len(runes) > answerSnippetMaxChars {
			snippet = string(runes[:answerSnippetMaxChars])
		}
		fmt.Fprintf(&b, "Document %d (source: %s):\n%s\n\n", i+1, r.Filename, snippet)
	}
	return strings.TrimSpace(b.String())
}
