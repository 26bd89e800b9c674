package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestModelLoader_LoadModel(t *testing.T) {
	tests := []struct {
		name      string
		inCache   bool
		loadOK    bool
		failAfter bool
		wantLoads int32
		wantErr   bool
	}{
		{name: "already loaded", inCache: true, wantLoads: 0},
		{name: "loads and polls", loadOK: true, wantLoads: 1},
		{name: "load rejected", loadOK: false, wantLoads: 1, wantErr: true},
		{name: "load fails while polling", loadOK: true, failAfter: true, wantLoads: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var loads atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				switch r.URL.Path {
				case "/models":
					status := ModelStatus{ID: "embed-model", InCache: tt.inCache || (loads.Load() > 0 && !tt.failAfter)}
					if loads.Load() > 0 && tt.failAfter {
						failed, code := true, 3
						status.Status.Failed = &failed
						status.Status.ExitCode = &code
					}
					_ = json.NewEncoder(w).Encode(ModelsResponse{Data: []ModelStatus{status}})
				case "/models/load":
					loads.Add(1)
					resp := LoadModelResponse{Success: tt.loadOK}
					if !tt.loadOK {
						resp.Error = "out of memory"
					}
					_ = json.NewEncoder(w).Encode(resp)
				default:
					t.Errorf("unexpected path %s", r.URL.Path)
				}
			}))
			defer server.Close()

			loader := NewModelLoader(server.URL)
			loader.pollInterval = time.Millisecond

			err := loader.LoadModel(context.Background(), "embed-model", nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadModel() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := loads.Load(); got != tt.wantLoads {
				t.Errorf("load requests = %d, want %d", got, tt.wantLoads)
			}
		})
	}
}

func TestModelLoader_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models/load" {
			_ = json.NewEncoder(w).Encode(LoadModelResponse{Success: true})
			return
		}
		_ = json.NewEncoder(w).Encode(ModelsResponse{})
	}))
	defer server.Close()

	loader := NewModelLoader(server.URL)
	loader.pollInterval = time.Millisecond
	loader.maxAttempts = 3

	if err := loader.LoadModel(context.Background(), "embed-model", nil); err == nil {
		t.Fatal("LoadModel() expected timeout error")
	}
}

func TestEmbeddingsClient_InitUsesLoader(t *testing.T) {
	var loaded atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/models":
			_ = json.NewEncoder(w).Encode(ModelsResponse{Data: []ModelStatus{{ID: "embed-model", InCache: loaded.Load()}}})
		case "/models/load":
			loaded.Store(true)
			_ = json.NewEncoder(w).Encode(LoadModelResponse{Success: true})
		}
	}))
	defer server.Close()

	loader := NewModelLoader(server.URL)
	loader.pollInterval = time.Millisecond
	client := NewEmbeddingsClient(server.URL, "", "embed-model", 384).WithModelLoader(loader)

	if err := client.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if !loaded.Load() {
		t.Error("Init() did not load the model")
	}
}
