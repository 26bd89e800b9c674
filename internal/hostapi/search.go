package hostapi

import (
	"context"

	"nb-assistant/internal/hybrid"
)

type fullTextRequest struct {
	Query    string   `json:"query"`
	Method   int      `json:"method"`
	Paths    []string `json:"paths"`
	GroupBy  int      `json:"groupBy"`
	OrderBy  int      `json:"orderBy"`
	Page     int      `json:"page"`
	PageSize int      `json:"pageSize,omitempty"`
}

type searchBlock struct {
	ID       string `json:"id"`
	Box      string `json:"box"`
	RootID   string `json:"rootID"`
	Content  string `json:"content"`
	Markdown string `json:"markdown"`
}

type fullTextResponse struct {
	Blocks []searchBlock `json:"blocks"`
}

// Search runs the host's keyword full-text search scoped to one notebook.
func (c *Client) Search(ctx context.Context, notebookID, query string, limit int) ([]hybrid.FullTextHit, error) {
	var resp fullTextResponse
	req := fullTextRequest{Query: query, Paths: []string{notebookID}, Page: 1, PageSize: limit}
	if err := c.post(ctx, "/api/search/fullTextSearchBlock", req, &resp); err != nil {
		return nil, err
	}

	hits := make([]hybrid.FullTextHit, 0, len(resp.Blocks))
	for _, b := range resp.Blocks {
		if b.Box != "" && b.Box != notebookID {
			continue
		}
		content := b.Markdown
		if content == "" {
			content = b.Content
		}
		hits = append(hits, hybrid.FullTextHit{BlockID: b.ID, DocID: b.RootID, Content: content})
		if limit > 0 && len(hits) == limit {
			break
		}
	}
	return hits, nil
}
