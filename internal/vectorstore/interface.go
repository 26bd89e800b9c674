package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks nb-assistant/internal/vectorstore VectorStore

import (
	"context"

	"nb-assistant/internal/hnsw"
)

// Point represents a vector point with metadata. ID is the chunk id.
type Point struct {
	ID   uint64
	Vec  []float32
	Meta map[string]any
}

// SearchResult represents a search result from vector search.
type SearchResult struct {
	ID    uint64
	Score float32
	Meta  map[string]any
}

// VectorStore defines the interface for vector storage operations.
type VectorStore interface {
	// RecreateCollection drops the collection if present and creates it empty.
	RecreateCollection(ctx context.Context, collection string, vectorSize int, metric hnsw.Metric) error

	// Upsert inserts or updates points in the collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search performs a similarity search.
	Search(ctx context.Context, collection string, query []float32, k int) ([]SearchResult, error)

	// DeleteCollection removes the collection. A missing collection is not an error.
	DeleteCollection(ctx context.Context, collection string) error
}
