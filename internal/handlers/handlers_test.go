package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"nb-assistant/internal/hybrid"
	"nb-assistant/internal/indexer"
	"nb-assistant/internal/persistence"
	"nb-assistant/internal/rag"
)

// withID attaches a chi route context holding the notebook id.
func withID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

type mockEngine struct {
	resp rag.QueryResponse
	err  error
	got  rag.QueryRequest
}

func (m *mockEngine) Query(_ context.Context, req rag.QueryRequest) (rag.QueryResponse, error) {
	m.got = req
	return m.resp, m.err
}

func TestQueryHandler(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		body       string
		engineErr  error
		wantStatus int
	}{
		{
			name:       "success",
			method:     http.MethodPost,
			body:       `{"text":"project goals","k":5,"fullText":true}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "wrong method",
			method:     http.MethodGet,
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:       "invalid body",
			method:     http.MethodPost,
			body:       `{invalid`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "validation error",
			method:     http.MethodPost,
			body:       `{"text":""}`,
			engineErr:  &rag.ValidationError{Field: "text", Message: "cannot be empty"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "index missing",
			method:     http.MethodPost,
			body:       `{"text":"q"}`,
			engineErr:  fmt.Errorf("failed to search vectors: %w", persistence.ErrIndexMissing),
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "rebuild incomplete",
			method:     http.MethodPost,
			body:       `{"text":"q"}`,
			engineErr:  persistence.ErrRebuildIncomplete,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "embedding service down",
			method:     http.MethodPost,
			body:       `{"text":"q"}`,
			engineErr:  fmt.Errorf("failed to embed query: %w", rag.ErrExternalService),
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "unexpected error",
			method:     http.MethodPost,
			body:       `{"text":"q"}`,
			engineErr:  errors.New("disk on fire"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &mockEngine{
				err: tt.engineErr,
				resp: rag.QueryResponse{NotebookID: "nb1", Results: []hybrid.Result{
					{ChunkID: 3, BlockIDs: []string{"b1"}, Content: "goals", Score: 0.8},
				}},
			}
			handler := NewQueryHandler(engine)

			req := withID(httptest.NewRequest(tt.method, "/api/v1/notebooks/nb1/query", bytes.NewBufferString(tt.body)), "nb1")
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				var resp ErrorResponse
				if err := json.NewDecoder(w.Body).Decode(&resp); err == nil && resp.Error == "" && tt.method == http.MethodPost {
					t.Error("error response should carry a message")
				}
				return
			}

			if engine.got.NotebookID != "nb1" || engine.got.Text != "project goals" || engine.got.K != 5 || !engine.got.FullText {
				t.Errorf("engine request = %+v", engine.got)
			}
			var resp rag.QueryResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if len(resp.Results) != 1 || resp.Results[0].ChunkID != 3 {
				t.Errorf("results = %+v", resp.Results)
			}
		})
	}
}

type mockPipeline struct {
	mu        sync.Mutex
	running   bool
	names     []string
	err       error
	deleteErr error
	deleted   []string
}

func (m *mockPipeline) Rebuild(_ context.Context, notebookID, notebookName string) (*indexer.RebuildReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names = append(m.names, notebookName)
	if m.err != nil {
		return nil, m.err
	}
	return &indexer.RebuildReport{NotebookID: notebookID, ChunksEmbedded: 4}, nil
}

func (m *mockPipeline) Running(string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *mockPipeline) Delete(_ context.Context, notebookID string) error {
	m.deleted = append(m.deleted, notebookID)
	return m.deleteErr
}

func TestRebuildHandler(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		query      string
		running    bool
		wantStatus int
		wantName   string
	}{
		{name: "accepted with configured name", method: http.MethodPost, wantStatus: http.StatusAccepted, wantName: "Research"},
		{name: "name from query", method: http.MethodPost, query: "?name=Lab", wantStatus: http.StatusAccepted, wantName: "Lab"},
		{name: "already running", method: http.MethodPost, running: true, wantStatus: http.StatusConflict},
		{name: "wrong method", method: http.MethodGet, wantStatus: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pipeline := &mockPipeline{running: tt.running}
			handler := NewRebuildHandler(pipeline, func(string) string { return "Research" })
			done := make(chan error, 1)
			handler.done = func(_ *indexer.RebuildReport, err error) { done <- err }

			req := withID(httptest.NewRequest(tt.method, "/api/v1/notebooks/nb1/rebuild"+tt.query, nil), "nb1")
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusAccepted {
				return
			}

			var resp RebuildResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Status != "accepted" || resp.NotebookID != "nb1" {
				t.Errorf("response = %+v", resp)
			}

			select {
			case err := <-done:
				if err != nil {
					t.Errorf("rebuild error = %v", err)
				}
			case <-time.After(5 * time.Second):
				t.Fatal("background rebuild did not run")
			}
			if len(pipeline.names) != 1 || pipeline.names[0] != tt.wantName {
				t.Errorf("rebuild names = %v, want [%s]", pipeline.names, tt.wantName)
			}
		})
	}
}

func TestDeleteHandler(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		err        error
		wantStatus int
	}{
		{name: "deleted", method: http.MethodDelete, wantStatus: http.StatusNoContent},
		{name: "rebuild running", method: http.MethodDelete, err: indexer.ErrRebuildRunning, wantStatus: http.StatusConflict},
		{name: "failure", method: http.MethodDelete, err: errors.New("locked"), wantStatus: http.StatusInternalServerError},
		{name: "wrong method", method: http.MethodPost, wantStatus: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pipeline := &mockPipeline{deleteErr: tt.err}
			handler := NewDeleteHandler(pipeline)

			req := withID(httptest.NewRequest(tt.method, "/api/v1/notebooks/nb1/index", nil), "nb1")
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.method == http.MethodDelete && (len(pipeline.deleted) != 1 || pipeline.deleted[0] != "nb1") {
				t.Errorf("deleted = %v, want [nb1]", pipeline.deleted)
			}
		})
	}
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]HealthCheck
		wantStatus int
		wantState  string
	}{
		{
			name: "healthy",
			checks: map[string]HealthCheck{
				"cache": func(context.Context) error { return nil },
			},
			wantStatus: http.StatusOK,
			wantState:  "healthy",
		},
		{
			name: "mirror down",
			checks: map[string]HealthCheck{
				"cache":         func(context.Context) error { return nil },
				"vector_mirror": func(context.Context) error { return errors.New("connection refused") },
			},
			wantStatus: http.StatusServiceUnavailable,
			wantState:  "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(tt.checks)

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var resp HealthResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Status != tt.wantState {
				t.Errorf("status = %q, want %q", resp.Status, tt.wantState)
			}
			if len(resp.Checks) != len(tt.checks) {
				t.Errorf("checks = %v", resp.Checks)
			}
			if tt.wantStatus != http.StatusOK && (len(resp.Issues) != 1 || resp.Issues[0] != "vector_mirror_unavailable") {
				t.Errorf("issues = %v", resp.Issues)
			}
		})
	}
}

func TestHealthHandler_MethodNotAllowed(t *testing.T) {
	w := httptest.NewRecorder()
	NewHealthHandler(nil).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/health", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", w.Code, http.StatusMethodNotAllowed)
	}
}
