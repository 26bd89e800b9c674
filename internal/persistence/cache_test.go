package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	fsmocks "nb-assistant/internal/filestore/mocks"
	msgmocks "nb-assistant/internal/messages/mocks"
	"nb-assistant/internal/storage"
	storagemocks "nb-assistant/internal/storage/mocks"
)

type mockStore struct {
	files      *fsmocks.MockFileStore
	indexCache *storagemocks.MockIndexCacheStore
	chunks     *storagemocks.MockChunkStore
	markers    *storagemocks.MockRebuildMarkerStore
	store      *Store
}

func newMockStore(t *testing.T) mockStore {
	t.Helper()
	ctrl := gomock.NewController(t)

	m := mockStore{
		files:      fsmocks.NewMockFileStore(ctrl),
		indexCache: storagemocks.NewMockIndexCacheStore(ctrl),
		chunks:     storagemocks.NewMockChunkStore(ctrl),
		markers:    storagemocks.NewMockRebuildMarkerStore(ctrl),
	}
	m.store = NewStore(m.files, m.indexCache, m.chunks, m.markers, msgmocks.NewMockSink(ctrl), Options{})
	return m
}

func TestStore_LoadIndex_MarkerReadFailure(t *testing.T) {
	m := newMockStore(t)
	m.markers.EXPECT().Get(gomock.Any(), "nb1").Return(nil, errors.New("database is locked"))

	_, err := m.store.LoadIndex(context.Background(), "nb1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read rebuild marker")
}

func TestStore_LoadIndex_CacheFailureFallsBackToFileStore(t *testing.T) {
	m := newMockStore(t)
	ctx := context.Background()

	blob, err := json.Marshal(testIndex(t))
	require.NoError(t, err)

	gomock.InOrder(
		m.markers.EXPECT().Get(gomock.Any(), "nb1").Return(&storage.RebuildMarker{NotebookID: "nb1", State: storage.RebuildComplete}, nil),
		m.indexCache.EXPECT().Get(gomock.Any(), "nb1").Return(nil, errors.New("disk I/O error")),
		m.files.EXPECT().GetFile(gomock.Any(), m.store.IndexPath("nb1")).Return(blob, nil),
		m.indexCache.EXPECT().Put(gomock.Any(), "nb1", gomock.Any()).Return(errors.New("disk I/O error")),
	)

	idx, err := m.store.LoadIndex(ctx, "nb1")
	require.NoError(t, err)
	assert.Equal(t, 4, idx.Len())
}

func TestStore_LoadIndex_UnreadableCacheEntry(t *testing.T) {
	m := newMockStore(t)

	blob, err := json.Marshal(testIndex(t))
	require.NoError(t, err)

	m.markers.EXPECT().Get(gomock.Any(), "nb1").Return(nil, storage.ErrNotFound)
	m.indexCache.EXPECT().Get(gomock.Any(), "nb1").Return(&storage.IndexCacheEntry{NotebookID: "nb1", Snapshot: []byte("garbage")}, nil)
	m.files.EXPECT().GetFile(gomock.Any(), m.store.IndexPath("nb1")).Return(blob, nil)
	m.indexCache.EXPECT().Put(gomock.Any(), "nb1", gomock.Any()).Return(nil)

	idx, err := m.store.LoadIndex(context.Background(), "nb1")
	require.NoError(t, err)
	assert.Equal(t, 4, idx.Len())
}

func TestStore_LookupChunks_CountFailure(t *testing.T) {
	m := newMockStore(t)
	m.markers.EXPECT().Get(gomock.Any(), "nb1").Return(nil, storage.ErrNotFound)
	m.chunks.EXPECT().Count(gomock.Any(), "nb1").Return(0, errors.New("no such table"))

	_, err := m.store.LookupChunks(context.Background(), "nb1", []int{1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to check chunk cache")
}

func TestStore_LookupChunks_FillFailure(t *testing.T) {
	m := newMockStore(t)
	blob, err := json.Marshal(testChunks())
	require.NoError(t, err)

	m.markers.EXPECT().Get(gomock.Any(), "nb1").Return(nil, storage.ErrNotFound)
	m.chunks.EXPECT().Count(gomock.Any(), "nb1").Return(0, nil)
	m.files.EXPECT().GetFile(gomock.Any(), m.store.ChunksPath("nb1")).Return(blob, nil)
	m.chunks.EXPECT().ReplaceAll(gomock.Any(), "nb1", testChunks()).Return(errors.New("disk full"))

	_, err = m.store.LookupChunks(context.Background(), "nb1", []int{1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to cache chunks")
}

func TestStore_SaveChunks_CacheFailureIsNotFatal(t *testing.T) {
	m := newMockStore(t)

	m.files.EXPECT().PutFile(gomock.Any(), m.store.ChunksPath("nb1"), true, gomock.Any()).Return(nil)
	m.chunks.EXPECT().ReplaceAll(gomock.Any(), "nb1", testChunks()).Return(errors.New("disk full"))

	assert.NoError(t, m.store.SaveChunks(context.Background(), "nb1", testChunks()))
}

func TestStore_IncompleteRebuilds_ListFailure(t *testing.T) {
	m := newMockStore(t)
	m.markers.EXPECT().ListInProgress(gomock.Any()).Return(nil, errors.New("database is locked"))

	_, err := m.store.IncompleteRebuilds(context.Background())
	assert.Error(t, err)
}
