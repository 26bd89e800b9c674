package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nb-assistant/internal/config"
	"nb-assistant/internal/hnsw"
	"nb-assistant/internal/llm"
	"nb-assistant/internal/persistence"
	"nb-assistant/internal/rag"
)

const testModel = "test-embed"

// newEmbeddingServer fakes a llama.cpp server whose model is already loaded.
// Vectors mark whether the text mentions "beta" or "goals".
func newEmbeddingServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/models":
			_ = json.NewEncoder(w).Encode(llm.ModelsResponse{Data: []llm.ModelStatus{{ID: testModel, InCache: true}}})
		case "/v1/embeddings":
			var req llm.EmbeddingsRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			resp := llm.EmbeddingsResponse{}
			for _, text := range req.Input {
				vec := []float64{0, 0, 0.1}
				if strings.Contains(strings.ToLower(text), "beta") {
					vec[0] = 1
				}
				if strings.Contains(strings.ToLower(text), "goals") {
					vec[1] = 1
				}
				resp.Data = append(resp.Data, llm.EmbeddingData{Embedding: vec})
			}
			_ = json.NewEncoder(w).Encode(resp)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func testConfig(t *testing.T, embeddingURL string) *config.Config {
	t.Helper()

	vaultRoot := t.TempDir()
	for rel, content := range map[string]string{
		"research/Plans.md":    "# Plans\n\nShip the beta.\n",
		"research/Plans/Q1.md": "Q1 goals\n",
		"research/Inbox.md":    "loose note\n",
	} {
		full := filepath.Join(vaultRoot, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}

	dataRoot := t.TempDir()
	return &config.Config{
		DataRoot:            dataRoot,
		DBPath:              filepath.Join(dataRoot, "cache.db"),
		VaultRoot:           vaultRoot,
		EmbeddingProvider:   config.ProviderLlamaCpp,
		EmbeddingBaseURL:    embeddingURL,
		EmbeddingModelName:  testModel,
		EmbeddingDimensions: 3,
		ChunkSize:           128,
		HNSWM:               100,
		HNSWEfConstruction:  16,
		HNSWMetric:          hnsw.MetricCosine,
		QueryMinScore:       0.25,
		QueryLimit:          50,
		FTSLimit:            10,
		HybridDedup:         true,
		PersistRetryBackoff: time.Millisecond,
		VectorBackend:       config.BackendHNSW,
		RebuildNotebooks:    map[string]string{"research": "Research"},
		APIPort:             "0",
	}
}

func TestApp_RebuildQueryDelete(t *testing.T) {
	for _, worker := range []bool{false, true} {
		name := "direct provider"
		if worker {
			name = "worker provider"
		}
		t.Run(name, func(t *testing.T) {
			cfg := testConfig(t, newEmbeddingServer(t).URL)
			cfg.EmbeddingWorker = worker
			ctx := context.Background()

			a, err := newApp(ctx, cfg)
			require.NoError(t, err)
			defer func() { assert.NoError(t, a.Close()) }()

			assert.Contains(t, a.health, "cache")
			assert.NotContains(t, a.health, "vector_mirror")
			assert.NoError(t, a.health["cache"](ctx))

			report, err := a.pipeline.Rebuild(ctx, "research", cfg.NotebookName("research"))
			require.NoError(t, err)
			assert.Equal(t, 3, report.DocsProcessed)
			assert.Equal(t, 3, report.ChunksEmbedded)
			assert.Zero(t, report.ChunksDropped)

			resp, err := a.engine.Query(ctx, rag.QueryRequest{NotebookID: "research", Text: "ship", FullText: true})
			require.NoError(t, err)
			var fts bool
			for _, r := range resp.Results {
				if r.FTS {
					fts = true
					assert.Contains(t, strings.ToLower(r.Content), "ship the beta")
				}
			}
			assert.True(t, fts, "expected a full-text hit in %+v", resp.Results)

			// The Plans chunk matches by vector and by text; its block is returned once.
			resp, err = a.engine.Query(ctx, rag.QueryRequest{NotebookID: "research", Text: "beta", FullText: true})
			require.NoError(t, err)
			require.NotEmpty(t, resp.Results)
			assert.InDelta(t, 1.0, resp.Results[0].Score, 1e-6)
			occurrences := 0
			for _, r := range resp.Results {
				assert.NotContains(t, r.Content, "Research\n", "content is resolved from blocks")
				occurrences += strings.Count(strings.ToLower(r.Content), "ship the beta")
			}
			assert.Equal(t, 1, occurrences, "results %+v", resp.Results)

			require.NoError(t, a.pipeline.Delete(ctx, "research"))

			_, err = a.engine.Query(ctx, rag.QueryRequest{NotebookID: "research", Text: "beta"})
			assert.ErrorIs(t, err, persistence.ErrIndexMissing)
		})
	}
}

func TestNewApp_StartupErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(t *testing.T, cfg *config.Config)
	}{
		{
			name: "missing vault",
			modify: func(t *testing.T, cfg *config.Config) {
				cfg.VaultRoot = filepath.Join(t.TempDir(), "missing")
			},
		},
		{
			name: "invalid qdrant url",
			modify: func(t *testing.T, cfg *config.Config) {
				cfg.QdrantURL = "://invalid"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, "http://127.0.0.1:1")
			tt.modify(t, cfg)

			var (
				a   *app
				err error
			)
			require.NotPanics(t, func() {
				a, err = newApp(context.Background(), cfg)
			})
			assert.Error(t, err)
			assert.Nil(t, a)
		})
	}
}

func TestNewApp_HostMode(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.HostBaseURL = "http://127.0.0.1:1"
	cfg.VaultRoot = ""

	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	assert.NoError(t, a.Close())
}
