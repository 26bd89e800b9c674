package vectorstore

import (
	"context"
	"fmt"

	"nb-assistant/internal/hnsw"
)

// Mirror keeps one collection per notebook in a VectorStore and can answer
// searches from it in place of the local graph.
type Mirror struct {
	store  VectorStore
	prefix string
	metric hnsw.Metric
}

// NewMirror creates a mirror naming collections "<prefix><notebookID>".
func NewMirror(store VectorStore, prefix string, metric hnsw.Metric) *Mirror {
	if metric == "" {
		metric = hnsw.MetricCosine
	}
	return &Mirror{store: store, prefix: prefix, metric: metric}
}

// Collection is the collection name for a notebook.
func (m *Mirror) Collection(notebookID string) string {
	return m.prefix + notebookID
}

// Replace recreates the notebook's collection holding exactly pairs.
func (m *Mirror) Replace(ctx context.Context, notebookID string, pairs []hnsw.Pair, blockIDs map[int][]string) error {
	if len(pairs) == 0 {
		return m.store.DeleteCollection(ctx, m.Collection(notebookID))
	}

	if err := m.store.RecreateCollection(ctx, m.Collection(notebookID), len(pairs[0].Vector), m.metric); err != nil {
		return err
	}

	points := make([]Point, 0, len(pairs))
	for _, p := range pairs {
		if p.ID < 0 {
			return fmt.Errorf("negative chunk id %d", p.ID)
		}
		ids := make([]any, 0, len(blockIDs[p.ID]))
		for _, id := range blockIDs[p.ID] {
			ids = append(ids, id)
		}
		points = append(points, Point{
			ID:  uint64(p.ID),
			Vec: p.Vector,
			Meta: map[string]any{
				"notebook_id": notebookID,
				"chunk_id":    int64(p.ID),
				"block_ids":   ids,
			},
		})
	}
	return m.store.Upsert(ctx, m.Collection(notebookID), points)
}

// Search returns up to k hits scoring above zero and at least minScore, in the
// local index's similarity units, best first.
func (m *Mirror) Search(ctx context.Context, notebookID string, query []float32, k int, minScore float64) ([]hnsw.Result, error) {
	if k <= 0 {
		return []hnsw.Result{}, nil
	}

	hits, err := m.store.Search(ctx, m.Collection(notebookID), query, k)
	if err != nil {
		return nil, err
	}

	results := make([]hnsw.Result, 0, len(hits))
	for _, h := range hits {
		score := float64(h.Score)
		if m.metric == hnsw.MetricEuclidean {
			// Qdrant reports the raw distance for Euclid.
			score = 1 / (1 + score)
		}
		if score > 0 && score >= minScore {
			results = append(results, hnsw.Result{ID: int(h.ID), Score: score})
		}
	}
	hnsw.SortResults(results)
	return results, nil
}

// Delete drops the notebook's collection.
func (m *Mirror) Delete(ctx context.Context, notebookID string) error {
	return m.store.DeleteCollection(ctx, m.Collection(notebookID))
}
