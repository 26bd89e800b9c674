package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"nb-assistant/internal/contextutil"
	"nb-assistant/internal/embedding"
	"nb-assistant/internal/fulltext"
	"nb-assistant/internal/hnsw"
	"nb-assistant/internal/messages"
	"nb-assistant/internal/persistence"
	"nb-assistant/internal/storage"
)

const (
	// NothingToEmbedMessage is sent when a notebook has no chunk content.
	NothingToEmbedMessage = "Nothing to embed in this notebook"
	// CompletedMessage is sent after a rebuild has been committed.
	CompletedMessage = "Successfully created embeddings"
)

// ErrRebuildRunning is returned when a rebuild of the same notebook is already running.
var ErrRebuildRunning = errors.New("rebuild already running")

// PipelineError is an aborted rebuild. Nothing of the notebook's new index is
// left persisted when it is returned.
type PipelineError struct {
	NotebookID string
	Stage      string
	Err        error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("rebuild of notebook %s failed at %s: %v", e.NotebookID, e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// VectorMirror receives a copy of every rebuilt index.
type VectorMirror interface {
	Replace(ctx context.Context, notebookID string, pairs []hnsw.Pair, blockIDs map[int][]string) error
	Delete(ctx context.Context, notebookID string) error
}

// FullTextIndexer keeps a full-text index of every block.
type FullTextIndexer interface {
	Rebuild(ctx context.Context, notebookID string, docs []fulltext.Document) error
	Delete(ctx context.Context, notebookID string) error
}

// Config holds the build parameters of a pipeline.
type Config struct {
	HNSW           hnsw.Config
	EmbeddingModel string
	ChunkSize      int
}

// Pipeline rebuilds a notebook's index from scratch: walk, chunk, embed, build
// and persist.
type Pipeline struct {
	walker       *Walker
	orchestrator *embedding.Orchestrator
	store        *persistence.Store
	sink         messages.Sink
	mirror       VectorMirror
	fullText     FullTextIndexer
	cfg          Config

	mu      sync.Mutex
	running map[string]bool
}

// NewPipeline creates a new rebuild pipeline.
func NewPipeline(
	walker *Walker,
	orchestrator *embedding.Orchestrator,
	store *persistence.Store,
	sink messages.Sink,
	cfg Config,
) *Pipeline {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	return &Pipeline{
		walker:       walker,
		orchestrator: orchestrator,
		store:        store,
		sink:         sink,
		cfg:          cfg,
		running:      make(map[string]bool),
	}
}

// WithMirror copies every rebuilt index into m.
func (p *Pipeline) WithMirror(m VectorMirror) *Pipeline {
	p.mirror = m
	return p
}

// WithFullText rebuilds f alongside the vector index.
func (p *Pipeline) WithFullText(f FullTextIndexer) *Pipeline {
	p.fullText = f
	return p
}

func (p *Pipeline) acquire(notebookID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running[notebookID] {
		return false
	}
	p.running[notebookID] = true
	return true
}

func (p *Pipeline) release(notebookID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.running, notebookID)
}

// Running reports whether a rebuild of the notebook is in progress.
func (p *Pipeline) Running(notebookID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running[notebookID]
}

// Rebuild replaces the notebook's index and chunk store with freshly built ones.
// Any failure is returned as a *PipelineError after the notebook's persisted state
// has been cleared and the error has been sent to the message sink.
func (p *Pipeline) Rebuild(ctx context.Context, notebookID, notebookName string) (*RebuildReport, error) {
	if !p.acquire(notebookID) {
		return nil, fmt.Errorf("%w: %s", ErrRebuildRunning, notebookID)
	}
	defer p.release(notebookID)

	logger := contextutil.LoggerFromContext(ctx).With("notebook_id", notebookID)
	ctx = contextutil.WithLogger(ctx, logger)
	started := time.Now()

	report := &RebuildReport{
		NotebookID:     notebookID,
		ChunkerVersion: ChunkerVersion,
		IndexVersion:   IndexVersion(p.cfg.EmbeddingModel, p.cfg.ChunkSize, p.cfg.HNSW),
	}

	generation, err := p.store.BeginRebuild(ctx, notebookID)
	if err != nil {
		return nil, p.fail(ctx, notebookID, "begin", err)
	}
	report.Generation = generation
	logger.InfoContext(ctx, "rebuild started", "generation", generation, "notebook_name", notebookName)

	if err := p.store.DeleteData(ctx, notebookID); err != nil {
		return nil, p.fail(ctx, notebookID, "delete", err)
	}
	p.dropSecondary(ctx, notebookID)

	tree, err := p.walker.Collect(ctx, notebookID)
	if err != nil {
		return nil, p.fail(ctx, notebookID, "collect", err)
	}
	report.DocsProcessed, report.DocsWith0Chunks = countDocs(tree)

	chunks := Flatten(tree, notebookID, notebookName, 1)
	report.ChunksAttempted = len(chunks)
	report.ChunkTokenStats = chunkTokenStats(chunks)
	logger.InfoContext(ctx, "notebook chunked", "docs", report.DocsProcessed, "chunks", len(chunks))

	// An empty notebook still gets an empty index so queries answer with no hits.
	var pairs []hnsw.Pair
	if len(chunks) == 0 {
		p.notify(ctx, messages.Info(NothingToEmbedMessage))
	} else {
		var stats embedding.Stats
		pairs, stats, err = p.orchestrator.EmbedAll(ctx, chunks)
		if err != nil {
			return nil, p.fail(ctx, notebookID, "embed", err)
		}
		report.ChunksEmbedded = stats.Embedded
		report.ChunksSkipped = stats.Skipped
		report.ChunksDropped = stats.Dropped
	}

	idx, err := hnsw.Build(pairs, p.cfg.HNSW)
	if err != nil {
		return nil, p.fail(ctx, notebookID, "build", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, p.fail(ctx, notebookID, "build", err)
	}

	if err := p.store.SaveIndex(ctx, notebookID, idx); err != nil {
		return nil, p.fail(ctx, notebookID, "save index", err)
	}
	if err := p.store.SaveChunks(ctx, notebookID, chunks); err != nil {
		return nil, p.fail(ctx, notebookID, "save chunks", err)
	}

	if p.mirror != nil && len(pairs) > 0 {
		if err := p.mirror.Replace(ctx, notebookID, pairs, blockIDsByChunk(chunks)); err != nil {
			return nil, p.fail(ctx, notebookID, "mirror", err)
		}
	}
	if p.fullText != nil {
		if err := p.fullText.Rebuild(ctx, notebookID, fullTextDocuments(tree)); err != nil {
			return nil, p.fail(ctx, notebookID, "full-text", err)
		}
	}

	if err := p.store.CommitRebuild(ctx, notebookID, generation); err != nil {
		return nil, p.fail(ctx, notebookID, "commit", err)
	}

	report.Duration = time.Since(started)
	logger.InfoContext(ctx, "rebuild completed",
		"generation", generation,
		"chunks_embedded", report.ChunksEmbedded,
		"chunks_dropped", report.ChunksDropped,
		"duration", report.Duration,
	)
	if len(chunks) > 0 {
		p.notify(ctx, messages.Info(CompletedMessage))
	}
	return report, nil
}

// RecoverIncomplete rebuilds every notebook whose last rebuild never committed.
// names maps notebook ids to display names; unknown ids use the id as name.
func (p *Pipeline) RecoverIncomplete(ctx context.Context, names map[string]string) ([]string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	ids, err := p.store.IncompleteRebuilds(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list incomplete rebuilds: %w", err)
	}

	var recovered []string
	var errs []error
	for _, id := range ids {
		name := names[id]
		if name == "" {
			name = id
		}
		logger.WarnContext(ctx, "recovering incomplete rebuild", "notebook_id", id)
		if _, err := p.Rebuild(ctx, id, name); err != nil {
			errs = append(errs, err)
			continue
		}
		recovered = append(recovered, id)
	}
	return recovered, errors.Join(errs...)
}

// Delete removes everything stored for the notebook.
// It holds the notebook's rebuild slot, so no rebuild can start meanwhile.
func (p *Pipeline) Delete(ctx context.Context, notebookID string) error {
	if !p.acquire(notebookID) {
		return fmt.Errorf("%w: %s", ErrRebuildRunning, notebookID)
	}
	defer p.release(notebookID)

	var errs []error
	if err := p.store.Delete(ctx, notebookID); err != nil {
		errs = append(errs, err)
	}
	if p.mirror != nil {
		if err := p.mirror.Delete(ctx, notebookID); err != nil {
			errs = append(errs, fmt.Errorf("failed to delete mirror: %w", err))
		}
	}
	if p.fullText != nil {
		if err := p.fullText.Delete(ctx, notebookID); err != nil {
			errs = append(errs, fmt.Errorf("failed to delete full-text index: %w", err))
		}
	}
	return errors.Join(errs...)
}

// fail clears whatever the rebuild persisted so far, reports err and wraps it.
// The rebuild marker stays in progress so the notebook is retried on recovery.
func (p *Pipeline) fail(ctx context.Context, notebookID, stage string, err error) error {
	logger := contextutil.LoggerFromContext(ctx)
	perr := &PipelineError{NotebookID: notebookID, Stage: stage, Err: err}
	logger.ErrorContext(ctx, "rebuild failed", "stage", stage, "error", err)

	cleanup := context.WithoutCancel(ctx)
	if stage != "begin" {
		if derr := p.store.DeleteData(cleanup, notebookID); derr != nil {
			logger.WarnContext(ctx, "failed to clear partial rebuild", "error", derr)
		}
		p.dropSecondary(cleanup, notebookID)
	}
	p.notify(cleanup, messages.Error(perr.Error()))
	return perr
}

func (p *Pipeline) dropSecondary(ctx context.Context, notebookID string) {
	logger := contextutil.LoggerFromContext(ctx)
	if p.mirror != nil {
		if err := p.mirror.Delete(ctx, notebookID); err != nil {
			logger.WarnContext(ctx, "failed to delete mirror collection", "error", err)
		}
	}
	if p.fullText != nil {
		if err := p.fullText.Delete(ctx, notebookID); err != nil {
			logger.WarnContext(ctx, "failed to delete full-text index", "error", err)
		}
	}
}

func (p *Pipeline) notify(ctx context.Context, msg messages.Message) {
	if p.sink == nil {
		return
	}
	if err := p.sink.Notify(ctx, msg); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "failed to send notification", "error", err)
	}
}

func blockIDsByChunk(chunks []storage.Chunk) map[int][]string {
	out := make(map[int][]string, len(chunks))
	for _, c := range chunks {
		out[c.ID] = c.BlockIDs
	}
	return out
}

func fullTextDocuments(tree DocumentNode) []fulltext.Document {
	refs := Blocks(tree)
	docs := make([]fulltext.Document, 0, len(refs))
	for _, ref := range refs {
		docs = append(docs, fulltext.Document{BlockID: ref.ID, DocID: ref.DocID, Content: ref.Markdown})
	}
	return docs
}
