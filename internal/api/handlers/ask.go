package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/vea-labs/docpipe/internal/api"
)

// AnswerService composes a retrieval-augmented answer to a question. It
// degrades internally, so the handler always gets a usable string back.
type AnswerService interface {
	Answer(ctx context.Context, question string) string
}

type AskHandler struct {
	svc AnswerService
}

func NewAskHandler(svc AnswerService) *AskHandler {
	return &AskHandler{svc: svc}
}

type AskRequest struct {
	Question string `json:"question"`
}

type AskResponse struct {
	Answer string `json:"answer"`
}

// Ask answers a question against the indexed documents.
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		api.Error(w, http.StatusBadRequest, "question is required")
		return
	}

	answer := h.svc.Answer(r.Context(), question)

	api.Success(w, http.StatusOK, AskResponse{Answer: answer})
}
