package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"nb-assistant/internal/contextutil"
	"nb-assistant/internal/persistence"
	"nb-assistant/internal/rag"
)

// QueryHandler handles HTTP requests for notebook retrieval queries.
type QueryHandler struct {
	engine rag.Engine
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(engine rag.Engine) *QueryHandler {
	return &QueryHandler{engine: engine}
}

// QueryRequest is the body of a query request.
//
// swagger:model QueryRequest
type QueryRequest struct {
	// Query text
	Text string `json:"text"`
	// Number of vector hits to request
	K int `json:"k,omitempty"`
	// Minimum similarity a vector hit must exceed
	MinScore *float64 `json:"minScore,omitempty"`
	// Merge full-text hits into the result
	FullText bool `json:"fullText,omitempty"`
}

// ServeHTTP handles HTTP requests for notebook queries.
//
// swagger:route POST /api/v1/notebooks/{id}/query queryNotebook
//
// # Query a notebook
//
// Embeds the query text, searches the notebook's vector index and merges
// full-text hits when requested.
//
// responses:
//
//	'200':
//	  description: Ranked results
//	'400':
//	  description: Invalid request
//	'404':
//	  description: Notebook has no index
//	'409':
//	  description: Notebook rebuild did not complete
//	'502':
//	  description: Embedding service error
func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.engine.Query(ctx, rag.QueryRequest{
		NotebookID: chi.URLParam(r, "id"),
		Text:       req.Text,
		K:          req.K,
		MinScore:   req.MinScore,
		FullText:   req.FullText,
	})
	if err != nil {
		h.handleQueryError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleQueryError maps engine errors to HTTP status codes.
func (h *QueryHandler) handleQueryError(ctx context.Context, w http.ResponseWriter, err error) {
	logger := contextutil.LoggerFromContext(ctx)

	var validationErr *rag.ValidationError
	switch {
	case errors.As(err, &validationErr):
		logger.WarnContext(ctx, "invalid query", "error", err)
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Validation error: %s", validationErr.Error()))
	case errors.Is(err, persistence.ErrIndexMissing):
		logger.WarnContext(ctx, "query against missing index", "error", err)
		writeError(w, http.StatusNotFound, "Notebook index not found, rebuild it first")
	case errors.Is(err, persistence.ErrRebuildIncomplete):
		logger.WarnContext(ctx, "query against incomplete rebuild", "error", err)
		writeError(w, http.StatusConflict, "Notebook rebuild did not complete, rebuild it again")
	case errors.Is(err, rag.ErrExternalService):
		logger.ErrorContext(ctx, "embedding service error", "error", err)
		writeError(w, http.StatusBadGateway, "External service error")
	case errors.Is(err, context.Canceled):
		logger.InfoContext(ctx, "query cancelled")
	default:
		logger.ErrorContext(ctx, "query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to process query")
	}
}
