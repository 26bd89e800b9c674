// Package persistence stores each notebook's index and chunk array as two durable
// blobs, with a local SQLite cache in front of reads and a write-ahead marker
// around rebuilds.
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"

	"nb-assistant/internal/contextutil"
	"nb-assistant/internal/filestore"
	"nb-assistant/internal/hnsw"
	"nb-assistant/internal/messages"
	"nb-assistant/internal/storage"
)

const (
	// DefaultDataRoot is the file store directory holding notebook blobs.
	DefaultDataRoot = "temp/nb-assistant"
	// DefaultRetryBackoff is the wait before the single write retry.
	DefaultRetryBackoff = 5 * time.Second
)

// Options configures a Store.
type Options struct {
	DataRoot     string
	RetryBackoff time.Duration
}

// Store persists notebook indexes and chunks.
type Store struct {
	files      filestore.FileStore
	indexCache storage.IndexCacheStore
	chunkCache storage.ChunkStore
	markers    storage.RebuildMarkerStore
	sink       messages.Sink
	dataRoot   string
	backoff    time.Duration
}

// NewStore creates a Store.
func NewStore(
	files filestore.FileStore,
	indexCache storage.IndexCacheStore,
	chunkCache storage.ChunkStore,
	markers storage.RebuildMarkerStore,
	sink messages.Sink,
	opts Options,
) *Store {
	if opts.DataRoot == "" {
		opts.DataRoot = DefaultDataRoot
	}
	if opts.RetryBackoff < 0 {
		opts.RetryBackoff = 0
	} else if opts.RetryBackoff == 0 {
		opts.RetryBackoff = DefaultRetryBackoff
	}
	return &Store{
		files:      files,
		indexCache: indexCache,
		chunkCache: chunkCache,
		markers:    markers,
		sink:       sink,
		dataRoot:   opts.DataRoot,
		backoff:    opts.RetryBackoff,
	}
}

// IndexPath is the blob path of a notebook's serialized index.
func (s *Store) IndexPath(notebookID string) string {
	return path.Join(s.dataRoot, notebookID+".json")
}

// ChunksPath is the blob path of a notebook's chunk array.
func (s *Store) ChunksPath(notebookID string) string {
	return path.Join(s.dataRoot, notebookID+"-md.json")
}

// SaveIndex writes the JSON snapshot of idx and refreshes the local cache.
func (s *Store) SaveIndex(ctx context.Context, notebookID string, idx *hnsw.Index) error {
	logger := contextutil.LoggerFromContext(ctx)

	blob, err := idx.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize index: %w", err)
	}
	if err := s.writeWithRetry(ctx, s.IndexPath(notebookID), blob, "vector index"); err != nil {
		return err
	}

	packed, err := idx.MarshalMsgpack()
	if err == nil {
		err = s.indexCache.Put(ctx, notebookID, packed)
	}
	if err != nil {
		logger.WarnContext(ctx, "failed to cache index locally", "notebook_id", notebookID, "error", err)
	}

	logger.InfoContext(ctx, "saved index", "notebook_id", notebookID, "nodes", idx.Len(), "bytes", len(blob))
	return nil
}

// SaveChunks writes the chunk array and refreshes the local cache.
func (s *Store) SaveChunks(ctx context.Context, notebookID string, chunks []storage.Chunk) error {
	logger := contextutil.LoggerFromContext(ctx)

	if chunks == nil {
		chunks = []storage.Chunk{}
	}
	blob, err := json.Marshal(chunks)
	if err != nil {
		return fmt.Errorf("failed to serialize chunks: %w", err)
	}
	if err := s.writeWithRetry(ctx, s.ChunksPath(notebookID), blob, "chunk metadata"); err != nil {
		return err
	}

	if err := s.chunkCache.ReplaceAll(ctx, notebookID, chunks); err != nil {
		logger.WarnContext(ctx, "failed to cache chunks locally", "notebook_id", notebookID, "error", err)
	}

	logger.InfoContext(ctx, "saved chunks", "notebook_id", notebookID, "chunks", len(chunks), "bytes", len(blob))
	return nil
}

// writeWithRetry writes blob once, and on failure notifies the user, waits the
// backoff and tries exactly one more time.
func (s *Store) writeWithRetry(ctx context.Context, p string, blob []byte, what string) error {
	logger := contextutil.LoggerFromContext(ctx)

	first := s.files.PutFile(ctx, p, true, blob)
	if first == nil {
		return nil
	}

	logger.WarnContext(ctx, "blob write failed, retrying", "path", p, "backoff", s.backoff, "error", first)
	if err := s.sink.Notify(ctx, messages.Error(fmt.Sprintf("Failed to save %s, retrying in %s", what, s.backoff))); err != nil {
		logger.WarnContext(ctx, "failed to send notification", "error", err)
	}

	timer := time.NewTimer(s.backoff)
	select {
	case <-ctx.Done():
		timer.Stop()
		return &WriteError{Path: p, First: first, Err: ctx.Err()}
	case <-timer.C:
	}

	if err := s.files.PutFile(ctx, p, true, blob); err != nil {
		logger.ErrorContext(ctx, "blob write retry failed", "path", p, "error", err)
		return &WriteError{Path: p, First: first, Err: err}
	}
	return nil
}

// LoadIndex returns a notebook's index, preferring the local cache and filling
// it from the file store on a miss.
func (s *Store) LoadIndex(ctx context.Context, notebookID string) (*hnsw.Index, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := s.checkMarker(ctx, notebookID); err != nil {
		return nil, err
	}

	entry, err := s.indexCache.Get(ctx, notebookID)
	switch {
	case err == nil:
		idx, decodeErr := hnsw.DecodeMsgpack(entry.Snapshot)
		if decodeErr == nil {
			logger.DebugContext(ctx, "index loaded from local cache", "notebook_id", notebookID, "nodes", idx.Len())
			return idx, nil
		}
		logger.WarnContext(ctx, "discarding unreadable cached index", "notebook_id", notebookID, "error", decodeErr)
	case !errors.Is(err, storage.ErrNotFound):
		logger.WarnContext(ctx, "index cache lookup failed", "notebook_id", notebookID, "error", err)
	}

	blob, err := s.files.GetFile(ctx, s.IndexPath(notebookID))
	if errors.Is(err, filestore.ErrNotExist) {
		return nil, fmt.Errorf("%w: notebook %s", ErrIndexMissing, notebookID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch index: %w", err)
	}
	idx, err := hnsw.DecodeJSON(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: notebook %s: %v", ErrIndexMissing, notebookID, err)
	}

	packed, err := idx.MarshalMsgpack()
	if err == nil {
		err = s.indexCache.Put(ctx, notebookID, packed)
	}
	if err != nil {
		logger.WarnContext(ctx, "failed to cache index locally", "notebook_id", notebookID, "error", err)
	}

	logger.DebugContext(ctx, "index loaded from file store", "notebook_id", notebookID, "nodes", idx.Len())
	return idx, nil
}

// LookupChunks resolves chunk ids to chunks, filling the local cache from the
// file store when it holds nothing for the notebook.
func (s *Store) LookupChunks(ctx context.Context, notebookID string, ids []int) ([]storage.Chunk, error) {
	if err := s.checkMarker(ctx, notebookID); err != nil {
		return nil, err
	}

	count, err := s.chunkCache.Count(ctx, notebookID)
	if err != nil {
		return nil, fmt.Errorf("failed to check chunk cache: %w", err)
	}
	if count == 0 {
		if err := s.fillChunkCache(ctx, notebookID); err != nil {
			return nil, err
		}
	}

	chunks, err := s.chunkCache.GetByIDs(ctx, notebookID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to look up chunks: %w", err)
	}
	return chunks, nil
}

func (s *Store) fillChunkCache(ctx context.Context, notebookID string) error {
	blob, err := s.files.GetFile(ctx, s.ChunksPath(notebookID))
	if errors.Is(err, filestore.ErrNotExist) {
		return fmt.Errorf("%w: chunks of notebook %s", ErrIndexMissing, notebookID)
	}
	if err != nil {
		return fmt.Errorf("failed to fetch chunks: %w", err)
	}

	var chunks []storage.Chunk
	if err := json.Unmarshal(blob, &chunks); err != nil {
		return fmt.Errorf("%w: chunks of notebook %s: %v", ErrIndexMissing, notebookID, err)
	}
	if err := s.chunkCache.ReplaceAll(ctx, notebookID, chunks); err != nil {
		return fmt.Errorf("failed to cache chunks: %w", err)
	}

	contextutil.LoggerFromContext(ctx).DebugContext(ctx, "chunks loaded from file store", "notebook_id", notebookID, "chunks", len(chunks))
	return nil
}

func (s *Store) checkMarker(ctx context.Context, notebookID string) error {
	marker, err := s.markers.Get(ctx, notebookID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read rebuild marker: %w", err)
	}
	if marker.State == storage.RebuildInProgress {
		return fmt.Errorf("%w: notebook %s generation %s started %s", ErrRebuildIncomplete, notebookID, marker.Generation, marker.StartedAt.Format(time.RFC3339))
	}
	return nil
}

// BeginRebuild records a new in-progress rebuild generation.
func (s *Store) BeginRebuild(ctx context.Context, notebookID string) (string, error) {
	generation := uuid.New().String()
	if err := s.markers.Begin(ctx, notebookID, generation); err != nil {
		return "", err
	}
	return generation, nil
}

// CommitRebuild marks the generation complete once both blobs are written.
func (s *Store) CommitRebuild(ctx context.Context, notebookID, generation string) error {
	if err := s.markers.Complete(ctx, notebookID, generation); err != nil {
		return fmt.Errorf("failed to commit rebuild %s: %w", generation, err)
	}
	return nil
}

// IncompleteRebuilds lists notebooks whose last rebuild never committed.
func (s *Store) IncompleteRebuilds(ctx context.Context) ([]string, error) {
	markers, err := s.markers.ListInProgress(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(markers))
	for _, m := range markers {
		ids = append(ids, m.NotebookID)
	}
	return ids, nil
}

// DeleteData removes both blobs and the cached copies of a notebook, keeping its
// rebuild marker.
func (s *Store) DeleteData(ctx context.Context, notebookID string) error {
	var errs []error
	for _, p := range []string{s.IndexPath(notebookID), s.ChunksPath(notebookID)} {
		if err := s.files.RemoveFile(ctx, p); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.indexCache.Delete(ctx, notebookID); err != nil {
		errs = append(errs, err)
	}
	if err := s.chunkCache.DeleteByNotebook(ctx, notebookID); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to delete notebook data: %w", err)
	}
	return nil
}

// Delete removes everything stored for a notebook, including its rebuild marker.
func (s *Store) Delete(ctx context.Context, notebookID string) error {
	if err := s.DeleteData(ctx, notebookID); err != nil {
		return err
	}
	if err := s.markers.Delete(ctx, notebookID); err != nil {
		return fmt.Errorf("failed to delete rebuild marker: %w", err)
	}
	return nil
}
