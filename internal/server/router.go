package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vea-labs/docpipe/internal/api"
	"github.com/vea-labs/docpipe/internal/api/handlers"
	"github.com/vea-labs/docpipe/internal/api/middleware"
)

type RouterConfig struct {
	APIKey           string
	IngestHandler    *handlers.IngestHandler
	AskHandler       *handlers.AskHandler
	DocumentsHandler *handlers.DocumentsHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.APIKey))

		r.Post("/ingest/batch", cfg.IngestHandler.TriggerBatch)
		r.Post("/ask", cfg.AskHandler.Ask)

		r.Route("/documents", func(r chi.Router) {
			r.Get("/", cfg.DocumentsHandler.List)
			r.Get("/{id}", cfg.DocumentsHandler.Get)
			r.Delete("/{id}", cfg.DocumentsHandler.Delete)
		})
	})

	return r
}
