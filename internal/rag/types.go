package rag

import "nb-assistant/internal/hybrid"

// QueryRequest is a retrieval query against one notebook.
type QueryRequest struct {
	// NotebookID is the notebook whose index is searched.
	NotebookID string `json:"notebookId"`
	// Text is the query text. It is embedded as-is, without normalization.
	Text string `json:"text"`
	// K is the number of vector hits to request. Zero uses the engine limit.
	K int `json:"k,omitempty"`
	// MinScore overrides the engine's minimum similarity when set.
	MinScore *float64 `json:"minScore,omitempty"`
	// FullText also runs a full-text search and merges its hits.
	FullText bool `json:"fullText,omitempty"`
}

// QueryResponse carries the ranked merged results.
type QueryResponse struct {
	NotebookID string          `json:"notebookId"`
	Results    []hybrid.Result `json:"results"`
}
