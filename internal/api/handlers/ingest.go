package handlers

import (
	"context"
	"net/http"

	"github.com/vea-labs/docpipe/internal/api"
	"github.com/vea-labs/docpipe/internal/service"
)

// DiscoveryService triggers a batch discovery run over the document store.
type DiscoveryService interface {
	Run(ctx context.Context) (*service.DiscoveryResult, error)
}

type IngestHandler struct {
	discovery DiscoveryService
}

func NewIngestHandler(discovery DiscoveryService) *IngestHandler {
	return &IngestHandler{discovery: discovery}
}

type BatchResponse struct {
	Status           string `json:"status"`
	TotalFiles       int    `json:"total_files"`
	UnprocessedFiles int    `json:"unprocessed_files"`
	QueuedFiles      int    `json:"queued_files"`
	Message          string `json:"message"`
}

// TriggerBatch scans the store and queues every unprocessed file.
func (h *IngestHandler) TriggerBatch(w http.ResponseWriter, r *http.Request) {
	result, err := h.discovery.Run(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, BatchResponse{
		Status:           result.Status,
		TotalFiles:       result.TotalFiles,
		UnprocessedFiles: result.UnprocessedFiles,
		QueuedFiles:      result.QueuedFiles,
		Message:          result.Message,
	})
}
