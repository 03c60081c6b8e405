package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vea-labs/docpipe/internal/api"
	"github.com/vea-labs/docpipe/internal/domain"
	"github.com/vea-labs/docpipe/internal/pagination"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// DocumentStore reads and removes indexed document vectors.
type DocumentStore interface {
	List(ctx context.Context, prefix string, limit int, cursor *pagination.Cursor) ([]*domain.VectorEntry, error)
	GetByDocumentID(ctx context.Context, documentID string) (*domain.VectorEntry, error)
	Delete(ctx context.Context, documentID string) error
}

type DocumentsHandler struct {
	store DocumentStore
}

func NewDocumentsHandler(store DocumentStore) *DocumentsHandler {
	return &DocumentsHandler{store: store}
}

type DocumentResponse struct {
	DocumentID          string `json:"document_id"`
	Filename            string `json:"filename"`
	ContentType         string `json:"content_type,omitempty"`
	UploadDate          string `json:"upload_date"`
	FileSize            int64  `json:"file_size"`
	ChunksCount         int    `json:"chunks_count"`
	EmbeddingsGenerated bool   `json:"embeddings_generated"`
	ExpiresAt           string `json:"expires_at"`
	Content             string `json:"content,omitempty"`
}

type DocumentListResponse struct {
	Documents []*DocumentResponse `json:"documents"`
	Count     int                 `json:"count"`
	Cursor    string              `json:"cursor,omitempty"`
	HasMore   bool                `json:"has_more"`
}

func (h *DocumentsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	cursor, err := pagination.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid cursor")
		return
	}

	prefix := r.URL.Query().Get("prefix")

	// Fetch one extra row to detect whether a next page exists.
	entries, err := h.store.List(r.Context(), prefix, limit+1, cursor)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	hasMore := len(entries) > limit
	if hasMore {
		entries = entries[:limit]
	}

	documents := make([]*DocumentResponse, len(entries))
	for i, entry := range entries {
		documents[i] = toDocumentResponse(entry, false)
	}

	resp := DocumentListResponse{
		Documents: documents,
		Count:     len(documents),
		HasMore:   hasMore,
	}
	if hasMore {
		last := entries[len(entries)-1]
		resp.Cursor = pagination.EncodeCursor(last.DocumentID, last.UploadDate)
	}

	api.Success(w, http.StatusOK, resp)
}

func (h *DocumentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "id")

	entry, err := h.store.GetByDocumentID(r.Context(), documentID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, toDocumentResponse(entry, true))
}

func (h *DocumentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "id")

	if err := h.store.Delete(r.Context(), documentID); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{
		"status":      "deleted",
		"document_id": documentID,
	})
}

func toDocumentResponse(entry *domain.VectorEntry, includeContent bool) *DocumentResponse {
	resp := &DocumentResponse{
		DocumentID:          entry.DocumentID,
		Filename:            entry.Filename,
		ContentType:         entry.ContentType,
		UploadDate:          entry.UploadDate.UTC().Format(time.RFC3339),
		FileSize:            entry.FileSize,
		ChunksCount:         entry.ChunksCount,
		EmbeddingsGenerated: entry.EmbeddingsGenerated,
		ExpiresAt:           entry.ExpiresAt.UTC().Format(time.RFC3339),
	}
	if includeContent {
		resp.Content = entry.Text
	}
	return resp
}
