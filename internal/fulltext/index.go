// Package fulltext keeps a local keyword index of every notebook's blocks, used
// when no host full-text search is available.
package fulltext

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"nb-assistant/internal/contextutil"
	"nb-assistant/internal/hybrid"
)

// Document is one block to index.
type Document struct {
	BlockID string
	DocID   string
	Content string
}

// Index manages one bleve index per notebook under a root directory.
type Index struct {
	root string

	mu   sync.Mutex
	open map[string]bleve.Index
}

// New creates an index manager rooted at root.
func New(root string) *Index {
	return &Index{root: root, open: make(map[string]bleve.Index)}
}

func (x *Index) path(notebookID string) (string, error) {
	if notebookID == "" || strings.ContainsAny(notebookID, `/\`) || strings.HasPrefix(notebookID, ".") {
		return "", fmt.Errorf("invalid notebook id %q", notebookID)
	}
	return filepath.Join(x.root, notebookID+".bleve"), nil
}

// Rebuild replaces the notebook's index with docs.
func (x *Index) Rebuild(ctx context.Context, notebookID string, docs []Document) error {
	p, err := x.path(notebookID)
	if err != nil {
		return err
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if err := x.dropLocked(notebookID, p); err != nil {
		return err
	}
	if err := os.MkdirAll(x.root, 0755); err != nil {
		return fmt.Errorf("failed to create full-text directory: %w", err)
	}

	idx, err := bleve.New(p, bleve.NewIndexMapping())
	if err != nil {
		return fmt.Errorf("failed to create full-text index: %w", err)
	}

	batch := idx.NewBatch()
	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			_ = idx.Close()
			return err
		}
		if strings.TrimSpace(d.Content) == "" {
			continue
		}
		if err := batch.Index(d.BlockID, map[string]any{"content": d.Content, "docId": d.DocID}); err != nil {
			_ = idx.Close()
			return fmt.Errorf("failed to index block %s: %w", d.BlockID, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return fmt.Errorf("failed to write full-text batch: %w", err)
	}

	x.open[notebookID] = idx
	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "full-text index rebuilt", "notebook_id", notebookID, "blocks", batch.Size())
	return nil
}

// Search matches query against the notebook's blocks, best first with block id as
// the tie-break. A notebook without an index has no hits.
func (x *Index) Search(ctx context.Context, notebookID, query string, limit int) ([]hybrid.FullTextHit, error) {
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return []hybrid.FullTextHit{}, nil
	}

	idx, err := x.get(notebookID)
	if err != nil {
		return nil, err
	}
	if idx == nil {
		return []hybrid.FullTextHit{}, nil
	}

	q := bleve.NewMatchQuery(query)
	q.SetField("content")
	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.Fields = []string{"content", "docId"}
	req.SortBy([]string{"-_score", "_id"})

	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("full-text search failed: %w", err)
	}

	hits := make([]hybrid.FullTextHit, 0, len(res.Hits))
	for _, h := range res.Hits {
		content, _ := h.Fields["content"].(string)
		docID, _ := h.Fields["docId"].(string)
		hits = append(hits, hybrid.FullTextHit{BlockID: h.ID, DocID: docID, Content: content})
	}
	return hits, nil
}

// Delete closes and removes the notebook's index.
func (x *Index) Delete(ctx context.Context, notebookID string) error {
	p, err := x.path(notebookID)
	if err != nil {
		return err
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	return x.dropLocked(notebookID, p)
}

// Close closes every open index.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	var errs []error
	for id, idx := range x.open {
		if err := idx.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(x.open, id)
	}
	return errors.Join(errs...)
}

func (x *Index) get(notebookID string) (bleve.Index, error) {
	p, err := x.path(notebookID)
	if err != nil {
		return nil, err
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if idx, ok := x.open[notebookID]; ok {
		return idx, nil
	}
	idx, err := bleve.Open(p)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open full-text index: %w", err)
	}
	x.open[notebookID] = idx
	return idx, nil
}

func (x *Index) dropLocked(notebookID, p string) error {
	if idx, ok := x.open[notebookID]; ok {
		_ = idx.Close()
		delete(x.open, notebookID)
	}
	if err := os.RemoveAll(p); err != nil {
		return fmt.Errorf("failed to remove full-text index: %w", err)
	}
	return nil
}
