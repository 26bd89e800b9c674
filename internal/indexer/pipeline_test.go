package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nb-assistant/internal/embedding"
	"nb-assistant/internal/filestore"
	"nb-assistant/internal/fulltext"
	"nb-assistant/internal/hnsw"
	"nb-assistant/internal/messages"
	"nb-assistant/internal/persistence"
	"nb-assistant/internal/rag"
	"nb-assistant/internal/storage"
	"nb-assistant/internal/vault"
)

type recordingSink struct {
	mu   sync.Mutex
	msgs []messages.Message
}

func (s *recordingSink) Notify(_ context.Context, msg messages.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *recordingSink) texts(level messages.Level) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, m := range s.msgs {
		if m.Level == level {
			out = append(out, m.Text)
		}
	}
	return out
}

type fakeMirror struct {
	err      error
	pairs    []hnsw.Pair
	blockIDs map[int][]string
	deleted  int

	// When set, Delete signals deleting and waits for resume.
	deleting chan struct{}
	resume   chan struct{}
}

func (m *fakeMirror) Replace(_ context.Context, _ string, pairs []hnsw.Pair, blockIDs map[int][]string) error {
	if m.err != nil {
		return m.err
	}
	m.pairs, m.blockIDs = pairs, blockIDs
	return nil
}

func (m *fakeMirror) Delete(context.Context, string) error {
	if m.deleting != nil {
		close(m.deleting)
		<-m.resume
	}
	m.deleted++
	return nil
}

type queryVector []float32

func (q queryVector) EmbedQuery(context.Context, string) ([]float32, error) {
	return q, nil
}

type pipelineFixture struct {
	pipeline *Pipeline
	store    *persistence.Store
	files    *filestore.Local
	sink     *recordingSink
	mirror   *fakeMirror
	fullText *fulltext.Index
	embedded []string
}

func newPipelineFixture(t *testing.T, notes map[string]string) *pipelineFixture {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "research"), 0755))
	for rel, content := range notes {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}
	provider, err := vault.NewProvider(root)
	require.NoError(t, err)

	db, err := storage.New(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, storage.Migrate(db))

	files, err := filestore.NewLocal(t.TempDir())
	require.NoError(t, err)

	f := &pipelineFixture{sink: &recordingSink{}, mirror: &fakeMirror{}, files: files}
	f.store = persistence.NewStore(files,
		storage.NewIndexCacheRepo(db), storage.NewChunkRepo(db), storage.NewRebuildMarkerRepo(db),
		f.sink, persistence.Options{RetryBackoff: time.Millisecond})

	var mu sync.Mutex
	embedder := embedding.ProviderFunc(func(_ context.Context, text string) ([]float32, error) {
		mu.Lock()
		f.embedded = append(f.embedded, text)
		mu.Unlock()
		if strings.Contains(text, "broken") {
			return nil, nil
		}
		return []float32{1, float32(len(text)), 0.5}, nil
	})
	session := embedding.NewSession(embedder, embedding.NewThrottle(0), nil)

	f.fullText = fulltext.New(t.TempDir())
	t.Cleanup(func() { _ = f.fullText.Close() })

	f.pipeline = NewPipeline(
		NewWalker(provider, NewBlockChunker(128)),
		embedding.NewOrchestrator(session, f.sink),
		f.store,
		f.sink,
		Config{HNSW: hnsw.DefaultConfig(), EmbeddingModel: "test-model"},
	).WithMirror(f.mirror).WithFullText(f.fullText)
	return f
}

var researchNotes = map[string]string{
	"research/Inbox.md":    "broken link list\n",
	"research/Plans.md":    "# Plans\n\nShip the beta.\n",
	"research/Plans/Q1.md": "Q1 goals\n",
}

func TestPipeline_Rebuild(t *testing.T) {
	f := newPipelineFixture(t, researchNotes)
	ctx := context.Background()

	report, err := f.pipeline.Rebuild(ctx, "research", "Research")
	require.NoError(t, err)

	assert.Equal(t, "research", report.NotebookID)
	assert.NotEmpty(t, report.Generation)
	assert.Equal(t, 3, report.DocsProcessed)
	assert.Equal(t, 0, report.DocsWith0Chunks)
	assert.Equal(t, 3, report.ChunksAttempted)
	assert.Equal(t, 2, report.ChunksEmbedded)
	assert.Equal(t, 1, report.ChunksDropped)
	assert.Equal(t, ChunkerVersion, report.ChunkerVersion)
	assert.Equal(t, IndexVersion("test-model", DefaultChunkSize, hnsw.DefaultConfig()), report.IndexVersion)
	assert.Positive(t, report.ChunkTokenStats.Max)

	idx, err := f.store.LoadIndex(ctx, "research")
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())

	chunks, err := f.store.LookupChunks(ctx, "research", []int{1, 2, 3})
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, "Research", chunks[0].NotebookName)
	for _, c := range chunks {
		assert.Equal(t, "research", c.NotebookID)
		assert.NotEmpty(t, c.BlockIDs)
	}

	incomplete, err := f.store.IncompleteRebuilds(ctx)
	require.NoError(t, err)
	assert.Empty(t, incomplete)

	require.Len(t, f.mirror.pairs, 2)
	for _, p := range f.mirror.pairs {
		assert.NotEmpty(t, f.mirror.blockIDs[p.ID])
	}

	hits, err := f.fullText.Search(ctx, "research", "beta", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Contains(t, hits[0].Content, "Ship the beta")

	assert.Equal(t, []string{CompletedMessage}, f.sink.texts(messages.LevelInfo))
	assert.Empty(t, f.sink.texts(messages.LevelError))
}

func TestPipeline_RebuildEmptyNotebook(t *testing.T) {
	f := newPipelineFixture(t, nil)
	ctx := context.Background()

	report, err := f.pipeline.Rebuild(ctx, "research", "Research")
	require.NoError(t, err)
	assert.Equal(t, 0, report.ChunksAttempted)
	assert.Empty(t, f.embedded)
	assert.Equal(t, []string{NothingToEmbedMessage}, f.sink.texts(messages.LevelInfo))
	assert.Nil(t, f.mirror.pairs)

	idx, err := f.store.LoadIndex(ctx, "research")
	require.NoError(t, err)
	assert.Zero(t, idx.Len())
	blob, err := f.files.GetFile(ctx, f.store.ChunksPath("research"))
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(blob))

	engine := rag.NewEngine(queryVector{1, 2, 3}, rag.NewLocalSearcher(f.store), f.store, nil, rag.Options{})
	resp, err := engine.Query(ctx, rag.QueryRequest{NotebookID: "research", Text: "anything"})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestPipeline_RebuildFailureLeavesNothingBehind(t *testing.T) {
	f := newPipelineFixture(t, researchNotes)
	ctx := context.Background()

	_, err := f.pipeline.Rebuild(ctx, "research", "Research")
	require.NoError(t, err)

	mirrorErr := errors.New("qdrant unavailable")
	f.mirror.err = mirrorErr

	_, err = f.pipeline.Rebuild(ctx, "research", "Research")
	require.Error(t, err)

	var perr *PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "research", perr.NotebookID)
	assert.Equal(t, "mirror", perr.Stage)
	assert.ErrorIs(t, err, mirrorErr)

	_, err = f.store.LoadIndex(ctx, "research")
	assert.ErrorIs(t, err, persistence.ErrRebuildIncomplete)
	_, err = f.files.GetFile(ctx, f.store.ChunksPath("research"))
	assert.ErrorIs(t, err, filestore.ErrNotExist)
	_, err = f.files.GetFile(ctx, f.store.IndexPath("research"))
	assert.ErrorIs(t, err, filestore.ErrNotExist)

	hits, err := f.fullText.Search(ctx, "research", "beta", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	errs := f.sink.texts(messages.LevelError)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "qdrant unavailable")

	f.mirror.err = nil
	recovered, err := f.pipeline.RecoverIncomplete(ctx, map[string]string{"research": "Research"})
	require.NoError(t, err)
	assert.Equal(t, []string{"research"}, recovered)

	_, err = f.store.LoadIndex(ctx, "research")
	assert.NoError(t, err)
}

func TestPipeline_RebuildCancelled(t *testing.T) {
	f := newPipelineFixture(t, researchNotes)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.pipeline.Rebuild(ctx, "research", "Research")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	var perr *PipelineError
	assert.ErrorAs(t, err, &perr)
	assert.Empty(t, f.embedded)
}

func TestPipeline_DeleteBlocksRebuild(t *testing.T) {
	f := newPipelineFixture(t, researchNotes)
	ctx := context.Background()

	_, err := f.pipeline.Rebuild(ctx, "research", "Research")
	require.NoError(t, err)

	f.mirror.deleting = make(chan struct{})
	f.mirror.resume = make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- f.pipeline.Delete(ctx, "research") }()

	<-f.mirror.deleting
	_, err = f.pipeline.Rebuild(ctx, "research", "Research")
	assert.ErrorIs(t, err, ErrRebuildRunning)
	close(f.mirror.resume)

	require.NoError(t, <-done)
	assert.False(t, f.pipeline.Running("research"))
	_, err = f.store.LoadIndex(ctx, "research")
	assert.ErrorIs(t, err, persistence.ErrIndexMissing)
}

func TestPipeline_RebuildRunning(t *testing.T) {
	f := newPipelineFixture(t, researchNotes)
	require.True(t, f.pipeline.acquire("research"))
	assert.True(t, f.pipeline.Running("research"))

	_, err := f.pipeline.Rebuild(context.Background(), "research", "Research")
	assert.ErrorIs(t, err, ErrRebuildRunning)
	assert.ErrorIs(t, f.pipeline.Delete(context.Background(), "research"), ErrRebuildRunning)

	f.pipeline.release("research")
	assert.False(t, f.pipeline.Running("research"))
}

func TestPipeline_Delete(t *testing.T) {
	f := newPipelineFixture(t, researchNotes)
	ctx := context.Background()

	_, err := f.pipeline.Rebuild(ctx, "research", "Research")
	require.NoError(t, err)
	deletesBefore := f.mirror.deleted

	require.NoError(t, f.pipeline.Delete(ctx, "research"))

	_, err = f.store.LoadIndex(ctx, "research")
	assert.ErrorIs(t, err, persistence.ErrIndexMissing)
	assert.Equal(t, deletesBefore+1, f.mirror.deleted)

	hits, err := f.fullText.Search(ctx, "research", "beta", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestPipelineError(t *testing.T) {
	inner := errors.New("boom")
	err := &PipelineError{NotebookID: "nb1", Stage: "embed", Err: inner}

	assert.Equal(t, "rebuild of notebook nb1 failed at embed: boom", err.Error())
	assert.ErrorIs(t, err, inner)
}
