package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"nb-assistant/internal/handlers"
	"nb-assistant/internal/rag"
)

// Pipeline runs and removes notebook indexes.
type Pipeline interface {
	handlers.Rebuilder
	handlers.Deleter
}

// Deps holds dependencies for the HTTP router.
type Deps struct {
	QueryEngine  rag.Engine
	Pipeline     Pipeline
	NotebookName func(notebookID string) string
	HealthChecks map[string]handlers.HealthCheck
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	// Add chi middleware
	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)

	// Add CORS middleware
	r.Use(CORS)

	healthHandler := handlers.NewHealthHandler(deps.HealthChecks)
	queryHandler := handlers.NewQueryHandler(deps.QueryEngine)
	rebuildHandler := handlers.NewRebuildHandler(deps.Pipeline, deps.NotebookName)
	deleteHandler := handlers.NewDeleteHandler(deps.Pipeline)

	// Register API routes
	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", healthHandler)

		r.Route("/v1/notebooks/{id}", func(r chi.Router) {
			r.Method(http.MethodPost, "/rebuild", rebuildHandler)
			r.Method(http.MethodPost, "/query", queryHandler)
			r.Method(http.MethodDelete, "/index", deleteHandler)
		})
	})

	return r
}
