package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chunk_store.go -package=mocks nb-assistant/internal/storage ChunkStore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// ChunkStore defines the interface for the local chunk cache.
type ChunkStore interface {
	// ReplaceAll replaces every cached chunk of a notebook in one transaction.
	ReplaceAll(ctx context.Context, notebookID string, chunks []Chunk) error
	// GetByIDs returns the cached chunks with the given ids, ordered by id.
	// Unknown ids are ignored.
	GetByIDs(ctx context.Context, notebookID string, ids []int) ([]Chunk, error)
	// Count returns the number of cached chunks for a notebook.
	Count(ctx context.Context, notebookID string) (int, error)
	// DeleteByNotebook deletes all cached chunks for a notebook.
	DeleteByNotebook(ctx context.Context, notebookID string) error
}

// ChunkRepo provides methods for chunk operations.
// It implements the ChunkStore interface.
type ChunkRepo struct {
	db *sql.DB
}

// NewChunkRepo creates a new ChunkRepo.
func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// ReplaceAll replaces every cached chunk of a notebook in one transaction.
func (r *ChunkRepo) ReplaceAll(ctx context.Context, notebookID string, chunks []Chunk) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE notebook_id = ?", notebookID); err != nil {
		return fmt.Errorf("failed to clear chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO chunks (notebook_id, id, notebook_name, block_ids, blocks, content) VALUES (?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("failed to prepare chunk insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, chunk := range chunks {
		blockIDs, err := json.Marshal(chunk.BlockIDs)
		if err != nil {
			return fmt.Errorf("failed to encode block ids for chunk %d: %w", chunk.ID, err)
		}
		blocks := chunk.Blocks
		if blocks == nil {
			blocks = []string{}
		}
		blockTexts, err := json.Marshal(blocks)
		if err != nil {
			return fmt.Errorf("failed to encode blocks for chunk %d: %w", chunk.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, notebookID, chunk.ID, chunk.NotebookName, string(blockIDs), string(blockTexts), chunk.Content); err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", chunk.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit chunks: %w", err)
	}
	return nil
}

// GetByIDs returns the cached chunks with the given ids, ordered by id.
func (r *ChunkRepo) GetByIDs(ctx context.Context, notebookID string, ids []int) ([]Chunk, error) {
	if len(ids) == 0 {
		return []Chunk{}, nil
	}

	args := make([]any, 0, len(ids)+1)
	args = append(args, notebookID)
	for _, id := range ids {
		args = append(args, id)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")

	rows, err := r.db.QueryContext(ctx,
		"SELECT id, notebook_name, block_ids, blocks, content FROM chunks WHERE notebook_id = ? AND id IN ("+placeholders+") ORDER BY id",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	chunks := make([]Chunk, 0, len(ids))
	for rows.Next() {
		chunk := Chunk{NotebookID: notebookID}
		var blockIDs, blockTexts string
		if err := rows.Scan(&chunk.ID, &chunk.NotebookName, &blockIDs, &blockTexts, &chunk.Content); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		if err := json.Unmarshal([]byte(blockIDs), &chunk.BlockIDs); err != nil {
			return nil, fmt.Errorf("failed to decode block ids for chunk %d: %w", chunk.ID, err)
		}
		if err := json.Unmarshal([]byte(blockTexts), &chunk.Blocks); err != nil {
			return nil, fmt.Errorf("failed to decode blocks for chunk %d: %w", chunk.ID, err)
		}
		if len(chunk.Blocks) == 0 {
			chunk.Blocks = nil
		}
		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return chunks, nil
}

// Count returns the number of cached chunks for a notebook.
func (r *ChunkRepo) Count(ctx context.Context, notebookID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks WHERE notebook_id = ?", notebookID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}

// DeleteByNotebook deletes all cached chunks for a notebook.
func (r *ChunkRepo) DeleteByNotebook(ctx context.Context, notebookID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM chunks WHERE notebook_id = ?", notebookID)
	if err != nil {
		return fmt.Errorf("failed to delete chunks by notebook: %w", err)
	}
	return nil
}
