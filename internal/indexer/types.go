package indexer

import (
	"nb-assistant/internal/notebook"
	"nb-assistant/internal/storage"
)

// DocumentNode is a node of the chunked notebook tree: either a Leaf holding the
// chunks of one document or a Branch grouping child nodes.
type DocumentNode interface {
	documentNode()
}

// Leaf holds the chunks produced from one document and the blocks they came from.
type Leaf struct {
	DocID  string
	Blocks []notebook.Block
	Chunks []TextChunk
}

// Branch groups the nodes of a document's sub-documents.
type Branch struct {
	DocID    string
	Children []DocumentNode
}

func (Leaf) documentNode()   {}
func (Branch) documentNode() {}

// Flatten walks the tree depth-first and assigns dense chunk ids from startID.
// Chunks whose trimmed text is empty are dropped before numbering.
func Flatten(root DocumentNode, notebookID, notebookName string, startID int) []storage.Chunk {
	var out []storage.Chunk
	next := startID
	var walk func(DocumentNode)
	walk = func(n DocumentNode) {
		switch node := n.(type) {
		case Leaf:
			for _, tc := range node.Chunks {
				if isBlank(tc.Text) {
					continue
				}
				out = append(out, storage.Chunk{
					ID:           next,
					NotebookID:   notebookID,
					NotebookName: notebookName,
					BlockIDs:     tc.BlockIDs,
					Blocks:       tc.Blocks,
					Content:      tc.Text,
				})
				next++
			}
		case Branch:
			for _, child := range node.Children {
				walk(child)
			}
		}
	}
	if root != nil {
		walk(root)
	}
	return out
}

// BlockRef is a block together with the document it belongs to.
type BlockRef struct {
	DocID string
	notebook.Block
}

// Blocks returns every block of the tree in walk order.
func Blocks(root DocumentNode) []BlockRef {
	var out []BlockRef
	var walk func(DocumentNode)
	walk = func(n DocumentNode) {
		switch node := n.(type) {
		case Leaf:
			for _, b := range node.Blocks {
				out = append(out, BlockRef{DocID: node.DocID, Block: b})
			}
		case Branch:
			for _, child := range node.Children {
				walk(child)
			}
		}
	}
	if root != nil {
		walk(root)
	}
	return out
}
