package storage

import "time"

// Chunk is a bounded run of consecutive block text with its source block ids.
// The JSON form is the persisted chunk array element.
type Chunk struct {
	ID           int      `json:"id"`
	NotebookID   string   `json:"notebookId"`
	NotebookName string   `json:"notebookName"`
	BlockIDs     []string `json:"blockIds"`
	Blocks       []string `json:"blocks,omitempty"` // block text, parallel to BlockIDs
	Content      string   `json:"content"`
}

// IndexCacheEntry is a locally cached index snapshot for a notebook.
type IndexCacheEntry struct {
	NotebookID string
	Snapshot   []byte // msgpack-encoded hnsw snapshot
	UpdatedAt  time.Time
}

// Rebuild marker states.
const (
	RebuildInProgress = "in_progress"
	RebuildComplete   = "complete"
)

// RebuildMarker records the state of the latest rebuild of a notebook.
type RebuildMarker struct {
	NotebookID string
	Generation string // UUID of the rebuild pass
	State      string // RebuildInProgress or RebuildComplete
	StartedAt  time.Time
	FinishedAt *time.Time
}
