package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"nb-assistant/internal/config"
	"nb-assistant/internal/embedding"
	"nb-assistant/internal/filestore"
	"nb-assistant/internal/fulltext"
	"nb-assistant/internal/handlers"
	"nb-assistant/internal/hostapi"
	"nb-assistant/internal/hybrid"
	"nb-assistant/internal/indexer"
	"nb-assistant/internal/llm"
	"nb-assistant/internal/messages"
	"nb-assistant/internal/notebook"
	"nb-assistant/internal/persistence"
	"nb-assistant/internal/rag"
	"nb-assistant/internal/storage"
	"nb-assistant/internal/vault"
	"nb-assistant/internal/vectorstore"
)

// app holds the wired components shared by every command.
type app struct {
	cfg      *config.Config
	db       *sql.DB
	store    *persistence.Store
	pipeline *indexer.Pipeline
	engine   rag.Engine
	health   map[string]handlers.HealthCheck

	closers []func() error
}

// newApp opens the cache and wires providers, persistence, the pipeline and the
// query engine according to cfg.
func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{cfg: cfg, health: make(map[string]handlers.HealthCheck)}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.db = db
	a.onClose(db.Close)

	if err := storage.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.InfoContext(ctx, "Database initialized", "path", cfg.DBPath)
	a.health["cache"] = db.PingContext

	// Host API or local vault
	var (
		content  notebook.ContentProvider
		files    filestore.FileStore
		fullText hybrid.FullTextSearcher
		sinks    = messages.Multi{messages.LogSink{}}
		ftsIndex *fulltext.Index
	)
	if cfg.HostBaseURL != "" {
		host := hostapi.NewClient(cfg.HostBaseURL, cfg.HostToken)
		content = host
		files = host
		fullText = host

		notifier := messages.NewAsync(host, 0)
		a.onClose(func() error { notifier.Close(); return nil })
		sinks = append(sinks, notifier)
		slog.InfoContext(ctx, "Using notebook host", "base_url", cfg.HostBaseURL)
	} else {
		provider, err := vault.NewProvider(cfg.VaultRoot)
		if err != nil {
			return nil, err
		}
		content = provider

		local, err := filestore.NewLocal(cfg.DataRoot)
		if err != nil {
			return nil, err
		}
		files = local

		ftsIndex = fulltext.New(filepath.Join(cfg.DataRoot, "fts"))
		a.onClose(ftsIndex.Close)
		fullText = ftsIndex
		slog.InfoContext(ctx, "Using local vault", "root", cfg.VaultRoot)
	}
	var sink messages.Sink = sinks
	if len(sinks) == 1 {
		sink = sinks[0]
	}

	a.store = persistence.NewStore(
		files,
		storage.NewIndexCacheRepo(db),
		storage.NewChunkRepo(db),
		storage.NewRebuildMarkerRepo(db),
		sink,
		persistence.Options{RetryBackoff: cfg.PersistRetryBackoff},
	)

	provider, err := a.embeddingProvider()
	if err != nil {
		return nil, err
	}
	session := embedding.NewSession(provider, embedding.NewThrottle(cfg.EmbeddingInterval), nil)

	a.pipeline = indexer.NewPipeline(
		indexer.NewWalker(content, indexer.NewBlockChunker(cfg.ChunkSize)),
		embedding.NewOrchestrator(session, sink),
		a.store,
		sink,
		indexer.Config{
			HNSW:           cfg.HNSWConfig(),
			EmbeddingModel: cfg.EmbeddingModelName,
			ChunkSize:      cfg.ChunkSize,
		},
	)
	if ftsIndex != nil {
		a.pipeline.WithFullText(ftsIndex)
	}

	var vectors rag.VectorSearcher = rag.NewLocalSearcher(a.store)
	if cfg.QdrantURL != "" {
		qdrantStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
		if err != nil {
			return nil, err
		}
		a.onClose(qdrantStore.Close)
		a.health["vector_mirror"] = qdrantStore.HealthCheck

		mirror := vectorstore.NewMirror(qdrantStore, cfg.QdrantCollectionPrefix, cfg.HNSWMetric)
		a.pipeline.WithMirror(mirror)
		if cfg.VectorBackend == config.BackendQdrant {
			vectors = mirror
		}
		slog.InfoContext(ctx, "Qdrant mirror enabled", "url", cfg.QdrantURL, "backend", cfg.VectorBackend)
	}

	mode := hybrid.Dedup
	if !cfg.HybridDedup {
		mode = hybrid.Concat
	}
	minScore := cfg.QueryMinScore
	a.engine = rag.NewEngine(session, vectors, a.store, fullText, rag.Options{
		Limit:         cfg.QueryLimit,
		MinScore:      &minScore,
		FullTextLimit: cfg.FTSLimit,
		Mode:          mode,
	})
	slog.InfoContext(ctx, "Query engine initialized", "vector_backend", cfg.VectorBackend)

	return a, nil
}

// embeddingProvider builds the configured provider, optionally behind a worker goroutine.
func (a *app) embeddingProvider() (embedding.Provider, error) {
	cfg := a.cfg

	var provider embedding.Provider
	switch cfg.EmbeddingProvider {
	case config.ProviderOpenAI:
		embedder, err := llm.NewOpenAIEmbedder(cfg.EmbeddingBaseURL, cfg.EmbeddingAPIKey, cfg.EmbeddingModelName, cfg.EmbeddingDimensions)
		if err != nil {
			return nil, err
		}
		provider = embedder
	default:
		provider = llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.EmbeddingAPIKey, cfg.EmbeddingModelName, cfg.EmbeddingDimensions).
			WithModelLoader(llm.NewModelLoader(cfg.EmbeddingBaseURL))
	}
	slog.Debug("Embedding provider configured",
		"provider", cfg.EmbeddingProvider,
		"base_url", cfg.EmbeddingBaseURL,
		"model", cfg.EmbeddingModelName,
	)

	if !cfg.EmbeddingWorker {
		return provider, nil
	}
	worker := embedding.StartWorker(provider)
	a.onClose(func() error { worker.Close(); return nil })
	return worker, nil
}

func (a *app) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// setupLogger configures the default slog logger from cfg.
func setupLogger(cfg *config.Config) {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)
}
