package hostapi

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"nb-assistant/internal/notebook"
)

// blockIDPattern matches host block ids such as 20240101123456-abc1234.
var blockIDPattern = regexp.MustCompile(`^\d{14}-[a-z0-9]{7}$`)

type listDocsRequest struct {
	Notebook string `json:"notebook"`
	Path     string `json:"path"`
}

type listDocsResponse struct {
	Files []notebook.DocEntry `json:"files"`
}

// ListDocs lists the documents directly under path.
func (c *Client) ListDocs(ctx context.Context, notebookID, path string) ([]notebook.DocEntry, error) {
	var resp listDocsResponse
	if err := c.post(ctx, "/api/filetree/listDocsByPath", listDocsRequest{Notebook: notebookID, Path: path}, &resp); err != nil {
		return nil, err
	}
	for i := range resp.Files {
		resp.Files[i].Name = strings.TrimSuffix(resp.Files[i].Name, ".sy")
	}
	return resp.Files, nil
}

type sqlRequest struct {
	Stmt string `json:"stmt"`
}

// ChildBlocks returns the markdown of a document's direct child blocks in document order.
func (c *Client) ChildBlocks(ctx context.Context, docID string) ([]notebook.Block, error) {
	if !blockIDPattern.MatchString(docID) {
		return nil, fmt.Errorf("invalid document id %q", docID)
	}

	stmt := fmt.Sprintf("SELECT id, markdown FROM blocks WHERE parent_id = '%s' ORDER BY sort", docID)
	var blocks []notebook.Block
	if err := c.post(ctx, "/api/query/sql", sqlRequest{Stmt: stmt}, &blocks); err != nil {
		return nil, err
	}
	if blocks == nil {
		blocks = []notebook.Block{}
	}
	return blocks, nil
}
