package rag

import (
	"context"

	"nb-assistant/internal/hnsw"
)

// IndexLoader loads a notebook's persisted vector index.
type IndexLoader interface {
	LoadIndex(ctx context.Context, notebookID string) (*hnsw.Index, error)
}

// LocalSearcher searches the persisted in-process index of a notebook.
type LocalSearcher struct {
	loader IndexLoader
}

// NewLocalSearcher creates a searcher backed by loader.
func NewLocalSearcher(loader IndexLoader) *LocalSearcher {
	return &LocalSearcher{loader: loader}
}

// Search loads the notebook's index and runs a greedy search over it.
func (s *LocalSearcher) Search(ctx context.Context, notebookID string, query []float32, k int, minScore float64) ([]hnsw.Result, error) {
	idx, err := s.loader.LoadIndex(ctx, notebookID)
	if err != nil {
		return nil, err
	}
	return idx.Search(query, k, minScore)
}
