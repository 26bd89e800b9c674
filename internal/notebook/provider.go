// Package notebook defines the notebook content model shared by the content
// providers and the indexer.
package notebook

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_content_provider.go -package=mocks nb-assistant/internal/notebook ContentProvider

import "context"

// Block is a single content block of a document.
type Block struct {
	ID       string `json:"id"`
	Markdown string `json:"markdown"`
}

// DocEntry is a document listed under a notebook path.
type DocEntry struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Path         string `json:"path"`
	SubFileCount int    `json:"subFileCount"`
}

// ContentProvider lists documents and their blocks.
type ContentProvider interface {
	// ListDocs returns the documents directly under path ("/" for the notebook root).
	ListDocs(ctx context.Context, notebookID, path string) ([]DocEntry, error)
	// ChildBlocks returns the top-level blocks of a document in document order.
	ChildBlocks(ctx context.Context, docID string) ([]Block, error)
}
