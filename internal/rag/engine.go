package rag

import (
	"context"
	"fmt"
	"strings"

	"nb-assistant/internal/contextutil"
	"nb-assistant/internal/hnsw"
	"nb-assistant/internal/hybrid"
	"nb-assistant/internal/storage"
)

const (
	// DefaultLimit is the number of vector hits requested when a query sets no K.
	DefaultLimit = 50
	// DefaultMinScore is the minimum similarity a vector hit must exceed.
	DefaultMinScore = 0.25
	// DefaultFullTextLimit caps the number of full-text hits merged into a result.
	DefaultFullTextLimit = 10
)

// Engine answers retrieval queries over indexed notebooks.
type Engine interface {
	// Query embeds the query text, searches the notebook's vector index and merges
	// full-text hits into one ranked list.
	Query(ctx context.Context, req QueryRequest) (QueryResponse, error)
}

// QueryEmbedder embeds query text.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorSearcher searches a notebook's vectors.
type VectorSearcher interface {
	Search(ctx context.Context, notebookID string, query []float32, k int, minScore float64) ([]hnsw.Result, error)
}

// ChunkLookup resolves chunk ids to chunk records.
type ChunkLookup interface {
	LookupChunks(ctx context.Context, notebookID string, ids []int) ([]storage.Chunk, error)
}

// Options tunes query behaviour. Zero values and a nil MinScore select the defaults.
type Options struct {
	Limit         int
	MinScore      *float64
	FullTextLimit int
	Mode          hybrid.Mode
}

func (o Options) withDefaults() Options {
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if o.MinScore == nil {
		minScore := DefaultMinScore
		o.MinScore = &minScore
	}
	if o.FullTextLimit <= 0 {
		o.FullTextLimit = DefaultFullTextLimit
	}
	return o
}

// ragEngine implements the Engine interface.
type ragEngine struct {
	embedder QueryEmbedder
	vectors  VectorSearcher
	chunks   ChunkLookup
	fullText hybrid.FullTextSearcher
	opts     Options
}

// NewEngine creates a new query engine. fullText may be nil, in which case
// full-text requests return vector hits only.
func NewEngine(
	embedder QueryEmbedder,
	vectors VectorSearcher,
	chunks ChunkLookup,
	fullText hybrid.FullTextSearcher,
	opts Options,
) Engine {
	return &ragEngine{
		embedder: embedder,
		vectors:  vectors,
		chunks:   chunks,
		fullText: fullText,
		opts:     opts.withDefaults(),
	}
}

func (e *ragEngine) validate(req QueryRequest) error {
	if strings.TrimSpace(req.NotebookID) == "" {
		return &ValidationError{Field: "notebookId", Message: "is required"}
	}
	if strings.TrimSpace(req.Text) == "" {
		return &ValidationError{Field: "text", Message: "cannot be empty"}
	}
	if req.K < 0 {
		return &ValidationError{Field: "k", Message: "must not be negative"}
	}
	if req.MinScore != nil && (*req.MinScore < -1 || *req.MinScore > 1) {
		return &ValidationError{Field: "minScore", Message: "must be between -1 and 1"}
	}
	return nil
}

// Query runs a retrieval query.
func (e *ragEngine) Query(ctx context.Context, req QueryRequest) (QueryResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := e.validate(req); err != nil {
		return QueryResponse{}, err
	}

	k := req.K
	if k == 0 {
		k = e.opts.Limit
	}
	minScore := *e.opts.MinScore
	if req.MinScore != nil {
		minScore = *req.MinScore
	}

	logger.InfoContext(ctx, "query started",
		"notebook_id", req.NotebookID,
		"k", k,
		"min_score", minScore,
		"full_text", req.FullText,
	)

	vector, err := e.embedder.EmbedQuery(ctx, req.Text)
	if err != nil {
		logger.ErrorContext(ctx, "failed to embed query", "error", err)
		return QueryResponse{}, fmt.Errorf("failed to embed query: %w: %w", ErrExternalService, err)
	}
	if vector == nil {
		return QueryResponse{}, fmt.Errorf("%w: no embedding returned for query", ErrExternalService)
	}

	results, err := e.vectors.Search(ctx, req.NotebookID, vector, k, minScore)
	if err != nil {
		return QueryResponse{}, WrapError(err, "failed to search vectors")
	}

	scores := make(map[int]float64, len(results))
	ids := make([]int, 0, len(results))
	for _, r := range results {
		if r.Score > minScore {
			scores[r.ID] = r.Score
			ids = append(ids, r.ID)
		}
	}
	logger.DebugContext(ctx, "vector search completed", "results", len(results), "above_min_score", len(ids))

	var vectorHits []hybrid.VectorHit
	if len(ids) > 0 {
		chunks, err := e.chunks.LookupChunks(ctx, req.NotebookID, ids)
		if err != nil {
			return QueryResponse{}, WrapError(err, "failed to look up chunks")
		}
		vectorHits = make([]hybrid.VectorHit, 0, len(chunks))
		for _, c := range chunks {
			vectorHits = append(vectorHits, hybrid.VectorHit{
				ChunkID:  c.ID,
				Score:    scores[c.ID],
				BlockIDs: c.BlockIDs,
				Blocks:   c.Blocks,
				Content:  c.Content,
			})
		}
	}

	var fullTextHits []hybrid.FullTextHit
	if req.FullText && e.fullText != nil {
		fullTextHits, err = e.fullText.Search(ctx, req.NotebookID, req.Text, e.opts.FullTextLimit)
		if err != nil {
			// Vector hits are still worth returning.
			logger.WarnContext(ctx, "full-text search failed", "error", err)
			fullTextHits = nil
		}
	}

	merged := hybrid.Merge(fullTextHits, vectorHits, e.opts.Mode)

	logger.InfoContext(ctx, "query completed",
		"notebook_id", req.NotebookID,
		"vector_hits", len(vectorHits),
		"full_text_hits", len(fullTextHits),
		"results", len(merged),
	)

	return QueryResponse{NotebookID: req.NotebookID, Results: merged}, nil
}
