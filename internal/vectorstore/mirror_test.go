package vectorstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"nb-assistant/internal/hnsw"
	"nb-assistant/internal/vectorstore"
	"nb-assistant/internal/vectorstore/mocks"
)

func TestMirror_Replace(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockVectorStore(ctrl)
	mirror := vectorstore.NewMirror(store, "nb_", hnsw.MetricCosine)
	ctx := context.Background()

	pairs := []hnsw.Pair{
		{ID: 1, Vector: []float32{1, 0, 0}},
		{ID: 3, Vector: []float32{0, 1, 0}},
	}
	blockIDs := map[int][]string{1: {"b1"}, 3: {"b3", "b4"}}

	gomock.InOrder(
		store.EXPECT().RecreateCollection(gomock.Any(), "nb_nb1", 3, hnsw.MetricCosine).Return(nil),
		store.EXPECT().Upsert(gomock.Any(), "nb_nb1", gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, points []vectorstore.Point) error {
				require.Len(t, points, 2)
				assert.Equal(t, uint64(3), points[1].ID)
				assert.Equal(t, []any{"b3", "b4"}, points[1].Meta["block_ids"])
				assert.Equal(t, "nb1", points[1].Meta["notebook_id"])
				return nil
			}),
	)

	require.NoError(t, mirror.Replace(ctx, "nb1", pairs, blockIDs))
}

func TestMirror_ReplaceEmptyDropsCollection(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockVectorStore(ctrl)
	mirror := vectorstore.NewMirror(store, "nb_", hnsw.MetricCosine)

	store.EXPECT().DeleteCollection(gomock.Any(), "nb_nb1").Return(nil)

	require.NoError(t, mirror.Replace(context.Background(), "nb1", nil, nil))
}

func TestMirror_Search(t *testing.T) {
	tests := []struct {
		name   string
		metric hnsw.Metric
		hits   []vectorstore.SearchResult
		want   []hnsw.Result
	}{
		{
			name:   "cosine filters and sorts",
			metric: hnsw.MetricCosine,
			hits: []vectorstore.SearchResult{
				{ID: 4, Score: 0.5},
				{ID: 2, Score: 0.75},
				{ID: 9, Score: 0.1},
				{ID: 1, Score: 0.5},
			},
			want: []hnsw.Result{{ID: 2, Score: 0.75}, {ID: 1, Score: 0.5}, {ID: 4, Score: 0.5}},
		},
		{
			name:   "euclidean distance becomes similarity",
			metric: hnsw.MetricEuclidean,
			hits: []vectorstore.SearchResult{
				{ID: 1, Score: 0},
				{ID: 2, Score: 1},
				{ID: 3, Score: 9},
			},
			want: []hnsw.Result{{ID: 1, Score: 1}, {ID: 2, Score: 0.5}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			store := mocks.NewMockVectorStore(ctrl)
			mirror := vectorstore.NewMirror(store, "", tt.metric)

			store.EXPECT().Search(gomock.Any(), "nb1", []float32{1, 0}, 10).Return(tt.hits, nil)

			got, err := mirror.Search(context.Background(), "nb1", []float32{1, 0}, 10, 0.25)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMirror_SearchError(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockVectorStore(ctrl)
	mirror := vectorstore.NewMirror(store, "", hnsw.MetricCosine)

	store.EXPECT().Search(gomock.Any(), "nb1", gomock.Any(), 5).Return(nil, errors.New("unavailable"))

	_, err := mirror.Search(context.Background(), "nb1", []float32{1}, 5, 0.25)
	assert.Error(t, err)
}
