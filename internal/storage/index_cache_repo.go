package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_index_cache_store.go -package=mocks nb-assistant/internal/storage IndexCacheStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

// IndexCacheStore defines the interface for cached index snapshots.
type IndexCacheStore interface {
	// Get returns the cached snapshot for a notebook.
	// Returns nil and ErrNotFound if not cached.
	Get(ctx context.Context, notebookID string) (*IndexCacheEntry, error)
	// Put inserts or replaces the cached snapshot for a notebook.
	Put(ctx context.Context, notebookID string, snapshot []byte) error
	// Delete removes the cached snapshot for a notebook.
	Delete(ctx context.Context, notebookID string) error
}

// IndexCacheRepo provides methods for index cache operations.
// It implements the IndexCacheStore interface.
type IndexCacheRepo struct {
	db *sql.DB
}

// NewIndexCacheRepo creates a new IndexCacheRepo.
func NewIndexCacheRepo(db *sql.DB) *IndexCacheRepo {
	return &IndexCacheRepo{db: db}
}

// Get returns the cached snapshot for a notebook.
func (r *IndexCacheRepo) Get(ctx context.Context, notebookID string) (*IndexCacheEntry, error) {
	var entry IndexCacheEntry
	var updatedAtStr string

	err := r.db.QueryRowContext(ctx,
		"SELECT notebook_id, snapshot, updated_at FROM index_cache WHERE notebook_id = ?",
		notebookID,
	).Scan(&entry.NotebookID, &entry.Snapshot, &updatedAtStr)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query index cache: %w", err)
	}

	entry.UpdatedAt = parseTimestamp(updatedAtStr)
	return &entry, nil
}

// Put inserts or replaces the cached snapshot for a notebook.
func (r *IndexCacheRepo) Put(ctx context.Context, notebookID string, snapshot []byte) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO index_cache (notebook_id, snapshot, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(notebook_id) DO UPDATE SET snapshot = excluded.snapshot, updated_at = excluded.updated_at`,
		notebookID, snapshot, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to store index cache: %w", err)
	}
	return nil
}

// Delete removes the cached snapshot for a notebook.
func (r *IndexCacheRepo) Delete(ctx context.Context, notebookID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM index_cache WHERE notebook_id = ?", notebookID)
	if err != nil {
		return fmt.Errorf("failed to delete index cache: %w", err)
	}
	return nil
}

// parseTimestamp accepts the formats SQLite and this package write.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05Z"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
