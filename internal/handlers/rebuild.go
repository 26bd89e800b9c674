package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"nb-assistant/internal/contextutil"
	"nb-assistant/internal/indexer"
)

// Rebuilder runs full notebook rebuilds.
type Rebuilder interface {
	Rebuild(ctx context.Context, notebookID, notebookName string) (*indexer.RebuildReport, error)
	Running(notebookID string) bool
}

// Deleter removes a notebook's index.
type Deleter interface {
	Delete(ctx context.Context, notebookID string) error
}

// RebuildHandler handles HTTP requests for triggering notebook rebuilds.
type RebuildHandler struct {
	pipeline Rebuilder
	names    func(notebookID string) string
	done     func(*indexer.RebuildReport, error)
}

// NewRebuildHandler creates a new RebuildHandler. names resolves the display name
// a notebook is chunked under when the request does not give one.
func NewRebuildHandler(pipeline Rebuilder, names func(notebookID string) string) *RebuildHandler {
	return &RebuildHandler{pipeline: pipeline, names: names}
}

// RebuildResponse represents the response from the rebuild endpoint.
type RebuildResponse struct {
	Message    string `json:"message"`
	Status     string `json:"status"`
	NotebookID string `json:"notebook_id"`
}

// ServeHTTP handles HTTP requests for triggering a rebuild.
//
// swagger:route POST /api/v1/notebooks/{id}/rebuild rebuildNotebook
//
// # Rebuild a notebook index
//
// Starts a full rebuild in the background. Progress and failures are reported
// through the notification sink and the server logs.
//
// responses:
//
//	'202':
//	  description: Rebuild started
//	'409':
//	  description: A rebuild of this notebook is already running
func (h *RebuildHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	notebookID := chi.URLParam(r, "id")
	if notebookID == "" {
		writeError(w, http.StatusBadRequest, "Notebook id is required")
		return
	}
	if h.pipeline.Running(notebookID) {
		writeError(w, http.StatusConflict, "Rebuild already running")
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" && h.names != nil {
		name = h.names(notebookID)
	}
	if name == "" {
		name = notebookID
	}

	logger.InfoContext(ctx, "rebuild triggered via API", "notebook_id", notebookID)

	// The rebuild outlives the request but keeps its logger.
	rebuildCtx := context.WithoutCancel(ctx)
	go func() {
		report, err := h.pipeline.Rebuild(rebuildCtx, notebookID, name)
		switch {
		case errors.Is(err, indexer.ErrRebuildRunning):
			logger.WarnContext(rebuildCtx, "rebuild skipped", "error", err)
		case err != nil:
			logger.ErrorContext(rebuildCtx, "rebuild failed", "error", err)
		default:
			logger.InfoContext(rebuildCtx, "rebuild completed", "chunks_embedded", report.ChunksEmbedded)
		}
		if h.done != nil {
			h.done(report, err)
		}
	}()

	writeJSON(w, http.StatusAccepted, RebuildResponse{
		Message:    "Rebuild started. Check notifications or server logs for progress.",
		Status:     "accepted",
		NotebookID: notebookID,
	})
}

// DeleteHandler handles HTTP requests for deleting a notebook index.
type DeleteHandler struct {
	deleter Deleter
}

// NewDeleteHandler creates a new DeleteHandler.
func NewDeleteHandler(deleter Deleter) *DeleteHandler {
	return &DeleteHandler{deleter: deleter}
}

// ServeHTTP handles HTTP requests for deleting a notebook index.
//
// swagger:route DELETE /api/v1/notebooks/{id}/index deleteNotebookIndex
//
// responses:
//
//	'204':
//	  description: Index deleted
//	'409':
//	  description: A rebuild of this notebook is running
func (h *DeleteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodDelete {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	notebookID := chi.URLParam(r, "id")
	if notebookID == "" {
		writeError(w, http.StatusBadRequest, "Notebook id is required")
		return
	}

	if err := h.deleter.Delete(ctx, notebookID); err != nil {
		if errors.Is(err, indexer.ErrRebuildRunning) {
			writeError(w, http.StatusConflict, "Rebuild running, try again later")
			return
		}
		logger.ErrorContext(ctx, "failed to delete notebook index", "notebook_id", notebookID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete notebook index")
		return
	}

	logger.InfoContext(ctx, "notebook index deleted", "notebook_id", notebookID)
	w.WriteHeader(http.StatusNoContent)
}
