package indexer

import (
	"context"
	"fmt"

	"nb-assistant/internal/contextutil"
	"nb-assistant/internal/notebook"
)

// Walker turns a notebook's document hierarchy into a chunked DocumentNode tree.
type Walker struct {
	provider notebook.ContentProvider
	chunker  *BlockChunker
}

// NewWalker creates a walker reading from provider.
func NewWalker(provider notebook.ContentProvider, chunker *BlockChunker) *Walker {
	return &Walker{provider: provider, chunker: chunker}
}

// Collect lists every document of the notebook recursively and chunks its blocks.
// Top-level documents are chunked under their own name with an empty document
// name; nested documents are chunked under their parent's name and their own.
func (w *Walker) Collect(ctx context.Context, notebookID string) (DocumentNode, error) {
	children, err := w.collect(ctx, notebookID, "/", "", true)
	if err != nil {
		return nil, err
	}
	return Branch{Children: children}, nil
}

func (w *Walker) collect(ctx context.Context, notebookID, path, parentName string, topLevel bool) ([]DocumentNode, error) {
	logger := contextutil.LoggerFromContext(ctx)

	docs, err := w.provider.ListDocs(ctx, notebookID, path)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents under %s: %w", path, err)
	}

	nodes := make([]DocumentNode, 0, len(docs))
	for _, doc := range docs {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		blocks, err := w.provider.ChildBlocks(ctx, doc.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get blocks of document %s: %w", doc.ID, err)
		}

		nbName, docName := doc.Name, ""
		if !topLevel {
			nbName, docName = parentName, doc.Name
		}
		leaf := Leaf{DocID: doc.ID, Blocks: blocks, Chunks: w.chunker.Split(blocks, nbName, docName)}
		logger.DebugContext(ctx, "chunked document", "doc_id", doc.ID, "blocks", len(blocks), "chunks", len(leaf.Chunks))

		if doc.SubFileCount == 0 {
			nodes = append(nodes, leaf)
			continue
		}

		children, err := w.collect(ctx, notebookID, doc.Path, doc.Name, false)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, Branch{DocID: doc.ID, Children: append([]DocumentNode{leaf}, children...)})
	}
	return nodes, nil
}
